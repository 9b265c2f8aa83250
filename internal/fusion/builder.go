package fusion

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/checkfuse/checkfuse/internal/model"
)

// Fixed metadata stamped onto every built checklist.
const (
	FusedTitle   = "Fused Checklist"
	FusedVersion = "v1.0"
)

// ErrItemMissing signals a persisted suggestion referencing an item id that
// is not present in the supplied checklist. This is a data-integrity
// mismatch, fatal for the build rather than silently dropped.
var ErrItemMissing = errors.New("suggestion references unknown item")

// Builder assembles the final merged checklist from two source checklists,
// their suggestions, and the user's decisions.
type Builder struct {
	// Now supplies the output date; nil means time.Now.
	Now func() time.Time
}

// BuildInput carries everything a build consumes. Suggestions must be in
// stored rank order: that order is the documented tie-break when several
// accepted suggestions touch the same source item.
type BuildInput struct {
	ChecklistA  *model.Checklist
	ChecklistB  *model.Checklist
	Suggestions []model.FusionSuggestion
	Decisions   *Ledger
}

// Build produces the fused checklist: one fused item per accepted or edited
// suggestion, then every source item not consumed by one, sorted by section.
func (b *Builder) Build(in BuildInput) (*model.FusedChecklist, error) {
	if in.ChecklistA == nil || in.ChecklistB == nil {
		return nil, fmt.Errorf("both checklists are required")
	}
	if in.Decisions == nil {
		in.Decisions = NewLedger()
	}

	// Item ids are unique per checklist, not across checklists, so
	// consumption is tracked per side.
	consumedA := make(map[string]bool)
	consumedB := make(map[string]bool)

	var fused []model.ChecklistItem
	for _, sug := range in.Suggestions {
		decision, ok := in.Decisions.Get(sug.ID)
		if !ok || decision.Status == model.DecisionRejected {
			continue
		}

		itemA := in.ChecklistA.Parsed.Item(sug.ItemAID)
		if itemA == nil {
			return nil, fmt.Errorf("%w: suggestion %s, item %s in checklist %s",
				ErrItemMissing, sug.ID, sug.ItemAID, in.ChecklistA.ID)
		}
		itemB := in.ChecklistB.Parsed.Item(sug.ItemBID)
		if itemB == nil {
			return nil, fmt.Errorf("%w: suggestion %s, item %s in checklist %s",
				ErrItemMissing, sug.ID, sug.ItemBID, in.ChecklistB.ID)
		}

		text := sug.SuggestedText
		if decision.Status == model.DecisionEdited && decision.CustomText != "" {
			text = decision.CustomText
		}

		// Section and category come from the A side only. Known asymmetry,
		// kept for compatibility with the existing export layout.
		fused = append(fused, model.ChecklistItem{
			ID:         "fused_" + sug.ID,
			Section:    itemA.Section,
			Text:       text,
			References: unionRefs(itemA.References, itemB.References),
			Category:   itemA.Category,
			Metadata: model.Metadata{
				model.MetaFusedFrom: []string{sug.ItemAID, sug.ItemBID},
				model.MetaOriginalTexts: map[string]string{
					"item1": itemA.Text,
					"item2": itemB.Text,
				},
			},
		})

		// Marking is idempotent: a later suggestion over an already-consumed
		// item still emits its fused row above but consumes nothing new.
		consumedA[sug.ItemAID] = true
		consumedB[sug.ItemBID] = true
	}

	items := fused
	emitted := make(map[string]bool, len(items))
	for _, item := range items {
		emitted[item.ID] = true
	}

	items = appendCarried(items, emitted, in.ChecklistA.Parsed.Items, consumedA, "checklist1")
	items = appendCarried(items, emitted, in.ChecklistB.Parsed.Items, consumedB, "checklist2")

	// Lexicographic by section; stable, so relative order within a section
	// follows the fused/A/B concatenation order above.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Section < items[j].Section
	})

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	return &model.FusedChecklist{
		Items: items,
		Metadata: model.ChecklistMetadata{
			Title:    FusedTitle,
			Version:  FusedVersion,
			Date:     now().Format("2006-01-02"),
			Sections: sectionList(items),
		},
	}, nil
}

// appendCarried copies every unconsumed item through unchanged, tagged with
// its origin checklist. When the two sources use the same id scheme a
// carried B item can collide with a carried A item; the later arrival gets
// an origin-prefixed id so the output never holds one id twice, with the
// original id preserved in provenance.
func appendCarried(items []model.ChecklistItem, emitted map[string]bool, source []model.ChecklistItem, consumed map[string]bool, origin string) []model.ChecklistItem {
	for _, item := range source {
		if consumed[item.ID] {
			continue
		}
		out := item
		out.Metadata = cloneMeta(item.Metadata)
		out.Metadata[model.MetaSourceChecklist] = origin
		if emitted[out.ID] {
			out.Metadata["originalId"] = out.ID
			out.ID = origin + "_" + out.ID
		}
		emitted[out.ID] = true
		items = append(items, out)
	}
	return items
}

// unionRefs merges two reference lists, deduplicated by exact match with
// first-seen order preserved.
func unionRefs(a, b []string) []string {
	var out []string
	seen := make(map[string]bool, len(a)+len(b))
	for _, r := range append(append([]string{}, a...), b...) {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// sectionList returns the distinct sections in first-appearance order.
func sectionList(items []model.ChecklistItem) []string {
	var out []string
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.Section] {
			continue
		}
		seen[item.Section] = true
		out = append(out, item.Section)
	}
	return out
}

func cloneMeta(m model.Metadata) model.Metadata {
	out := make(model.Metadata, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
