package fusion

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/checkfuse/checkfuse/internal/model"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func testChecklists() (*model.Checklist, *model.Checklist) {
	a := &model.Checklist{
		ID: "clA",
		Parsed: model.ParsedChecklist{Items: []model.ChecklistItem{
			{ID: "a1", Section: "A. General", Text: "Staff must be trained annually.", Category: "Personnel", References: []string{"3.2"}},
			{ID: "a2", Section: "C. Hygiene", Text: "Surfaces are disinfected daily.", Category: "Hygiene"},
		}},
	}
	b := &model.Checklist{
		ID: "clB",
		Parsed: model.ParsedChecklist{Items: []model.ChecklistItem{
			{ID: "b1", Section: "B. HR", Text: "Personnel require yearly training.", Category: "Personnel", References: []string{"3.2"}},
			{ID: "b2", Section: "B. HR", Text: "A training register is maintained.", Category: "Documentation"},
		}},
	}
	return a, b
}

func suggestion(id, itemA, itemB, text string) model.FusionSuggestion {
	return model.FusionSuggestion{
		ID: id, ChecklistAID: "clA", ChecklistBID: "clB",
		ItemAID: itemA, ItemBID: itemB, SuggestedText: text, SimilarityScore: 0.85,
	}
}

func TestBuild_AcceptedSuggestionFusesItems(t *testing.T) {
	a, b := testChecklists()
	sugs := []model.FusionSuggestion{suggestion("s1", "a1", "b1", "Staff receive documented annual training.")}
	ledger := NewLedger()
	ledger.Accept("s1")

	builder := &Builder{Now: fixedNow}
	fused, err := builder.Build(BuildInput{ChecklistA: a, ChecklistB: b, Suggestions: sugs, Decisions: ledger})
	if err != nil {
		t.Fatal(err)
	}

	// 1 fused + a2 + b2 carried through.
	if len(fused.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(fused.Items))
	}

	var fusedItem *model.ChecklistItem
	for i := range fused.Items {
		if fused.Items[i].ID == "fused_s1" {
			fusedItem = &fused.Items[i]
		}
	}
	if fusedItem == nil {
		t.Fatal("fused item missing")
	}
	if fusedItem.Text != "Staff receive documented annual training." {
		t.Fatalf("wrong text: %q", fusedItem.Text)
	}
	// Section and category come from the A side.
	if fusedItem.Section != "A. General" || fusedItem.Category != "Personnel" {
		t.Fatalf("expected A-side section/category, got %s/%s", fusedItem.Section, fusedItem.Category)
	}
	// Shared reference deduplicates to a single entry.
	if diff := cmp.Diff([]string{"3.2"}, fusedItem.References); diff != "" {
		t.Fatalf("references mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a1", "b1"}, fusedItem.Metadata[model.MetaFusedFrom]); diff != "" {
		t.Fatalf("provenance mismatch:\n%s", diff)
	}

	// Neither consumed item is carried through.
	for _, item := range fused.Items {
		if item.ID == "a1" || item.ID == "b1" {
			t.Fatalf("consumed item %s carried through", item.ID)
		}
	}

	if fused.Metadata.Title != FusedTitle || fused.Metadata.Version != FusedVersion {
		t.Fatalf("unexpected metadata %+v", fused.Metadata)
	}
	if fused.Metadata.Date != "2026-03-15" {
		t.Fatalf("unexpected date %s", fused.Metadata.Date)
	}
}

func TestBuild_EditedTextWins(t *testing.T) {
	a, b := testChecklists()
	sugs := []model.FusionSuggestion{suggestion("s1", "a1", "b1", "generated")}
	ledger := NewLedger()
	if err := ledger.Edit("s1", "user wording"); err != nil {
		t.Fatal(err)
	}

	fused, err := (&Builder{Now: fixedNow}).Build(BuildInput{ChecklistA: a, ChecklistB: b, Suggestions: sugs, Decisions: ledger})
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range fused.Items {
		if item.ID == "fused_s1" && item.Text != "user wording" {
			t.Fatalf("expected custom text, got %q", item.Text)
		}
	}
}

func TestBuild_RejectedAndUndecidedCarryThrough(t *testing.T) {
	a, b := testChecklists()
	sugs := []model.FusionSuggestion{
		suggestion("s1", "a1", "b1", "x"),
		suggestion("s2", "a2", "b2", "y"),
	}
	ledger := NewLedger()
	ledger.Reject("s1")
	// s2 has no decision.

	fused, err := (&Builder{Now: fixedNow}).Build(BuildInput{ChecklistA: a, ChecklistB: b, Suggestions: sugs, Decisions: ledger})
	if err != nil {
		t.Fatal(err)
	}
	if len(fused.Items) != 4 {
		t.Fatalf("expected all 4 source items carried through, got %d", len(fused.Items))
	}
	origins := map[string]string{}
	for _, item := range fused.Items {
		origin, _ := item.Metadata[model.MetaSourceChecklist].(string)
		origins[item.ID] = origin
	}
	if origins["a1"] != "checklist1" || origins["b1"] != "checklist2" {
		t.Fatalf("missing origin provenance: %v", origins)
	}
}

func TestBuild_ItemCountInvariant(t *testing.T) {
	a, b := testChecklists()
	sugs := []model.FusionSuggestion{suggestion("s1", "a1", "b1", "x")}
	ledger := NewLedger()
	ledger.Accept("s1")

	fused, err := (&Builder{Now: fixedNow}).Build(BuildInput{ChecklistA: a, ChecklistB: b, Suggestions: sugs, Decisions: ledger})
	if err != nil {
		t.Fatal(err)
	}

	fusedCount, carriedA, carriedB := 0, 0, 0
	seen := map[string]bool{}
	for _, item := range fused.Items {
		if seen[item.ID] {
			t.Fatalf("duplicate item id %s", item.ID)
		}
		seen[item.ID] = true
		switch item.Metadata[model.MetaSourceChecklist] {
		case "checklist1":
			carriedA++
		case "checklist2":
			carriedB++
		default:
			fusedCount++
		}
	}
	if len(fused.Items) != fusedCount+carriedA+carriedB {
		t.Fatal("item count invariant violated")
	}
	if fusedCount != 1 || carriedA != 1 || carriedB != 1 {
		t.Fatalf("unexpected partition: fused=%d a=%d b=%d", fusedCount, carriedA, carriedB)
	}
}

func TestBuild_SortedBySectionStable(t *testing.T) {
	a, b := testChecklists()
	fused, err := (&Builder{Now: fixedNow}).Build(BuildInput{ChecklistA: a, ChecklistB: b})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(fused.Items); i++ {
		if fused.Items[i-1].Section > fused.Items[i].Section {
			t.Fatalf("sections out of order: %q after %q", fused.Items[i].Section, fused.Items[i-1].Section)
		}
	}
	// b1 and b2 share a section; their source order must be preserved.
	var hr []string
	for _, item := range fused.Items {
		if item.Section == "B. HR" {
			hr = append(hr, item.ID)
		}
	}
	if diff := cmp.Diff([]string{"b1", "b2"}, hr); diff != "" {
		t.Fatalf("equal-section order not stable:\n%s", diff)
	}
	// Section list follows first appearance after the sort.
	if diff := cmp.Diff([]string{"A. General", "B. HR", "C. Hygiene"}, fused.Metadata.Sections); diff != "" {
		t.Fatalf("sections mismatch:\n%s", diff)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	run := func() *model.FusedChecklist {
		a, b := testChecklists()
		sugs := []model.FusionSuggestion{suggestion("s1", "a1", "b1", "x")}
		ledger := NewLedger()
		ledger.Accept("s1")
		fused, err := (&Builder{Now: fixedNow}).Build(BuildInput{ChecklistA: a, ChecklistB: b, Suggestions: sugs, Decisions: ledger})
		if err != nil {
			t.Fatal(err)
		}
		return fused
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Fatalf("builds differ:\n%s", diff)
	}
}

func TestBuild_MissingItemIsFatal(t *testing.T) {
	a, b := testChecklists()
	sugs := []model.FusionSuggestion{suggestion("s1", "a1", "ghost", "x")}
	ledger := NewLedger()
	ledger.Accept("s1")

	_, err := (&Builder{Now: fixedNow}).Build(BuildInput{ChecklistA: a, ChecklistB: b, Suggestions: sugs, Decisions: ledger})
	if !errors.Is(err, ErrItemMissing) {
		t.Fatalf("expected ErrItemMissing, got %v", err)
	}
}

func TestBuild_SharedItemConsumedOnce(t *testing.T) {
	// Two accepted suggestions both consume a1. Both fused rows are
	// emitted, a1 is consumed exactly once, and nothing is duplicated.
	a, b := testChecklists()
	sugs := []model.FusionSuggestion{
		suggestion("s1", "a1", "b1", "first"),
		suggestion("s2", "a1", "b2", "second"),
	}
	ledger := NewLedger()
	ledger.Accept("s1")
	ledger.Accept("s2")

	fused, err := (&Builder{Now: fixedNow}).Build(BuildInput{ChecklistA: a, ChecklistB: b, Suggestions: sugs, Decisions: ledger})
	if err != nil {
		t.Fatal(err)
	}
	// fused_s1 + fused_s2 + a2; a1, b1, b2 all consumed.
	if len(fused.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(fused.Items))
	}
	for _, item := range fused.Items {
		if item.ID == "a1" {
			t.Fatal("consumed item a1 carried through")
		}
	}
}

func TestBuild_CrossChecklistIDCollision(t *testing.T) {
	a := &model.Checklist{ID: "clA", Parsed: model.ParsedChecklist{Items: []model.ChecklistItem{
		{ID: "item_1", Section: "A", Text: "from A", Category: "General"},
	}}}
	b := &model.Checklist{ID: "clB", Parsed: model.ParsedChecklist{Items: []model.ChecklistItem{
		{ID: "item_1", Section: "A", Text: "from B", Category: "General"},
	}}}

	fused, err := (&Builder{Now: fixedNow}).Build(BuildInput{ChecklistA: a, ChecklistB: b})
	if err != nil {
		t.Fatal(err)
	}
	if len(fused.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(fused.Items))
	}
	ids := map[string]bool{}
	for _, item := range fused.Items {
		if ids[item.ID] {
			t.Fatalf("duplicate output id %s", item.ID)
		}
		ids[item.ID] = true
	}
	if !ids["item_1"] || !ids["checklist2_item_1"] {
		t.Fatalf("expected disambiguated ids, got %v", ids)
	}
}

func TestBuild_DoesNotMutateSourceMetadata(t *testing.T) {
	a, b := testChecklists()
	a.Parsed.Items[1].Metadata = model.Metadata{"page": 4}

	_, err := (&Builder{Now: fixedNow}).Build(BuildInput{ChecklistA: a, ChecklistB: b})
	if err != nil {
		t.Fatal(err)
	}
	if _, tagged := a.Parsed.Items[1].Metadata[model.MetaSourceChecklist]; tagged {
		t.Fatal("builder mutated source item metadata")
	}
}
