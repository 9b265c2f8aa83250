// Package model defines the core checklist and fusion data types.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Metadata is an open-ended side channel for provenance and parser extras.
// Keys vary by source; consumers must tolerate missing entries.
type Metadata map[string]any

// ChecklistItem is one requirement line from a source document.
type ChecklistItem struct {
	ID         string   `json:"id"`
	Section    string   `json:"section"`
	Text       string   `json:"text"`
	Options    []string `json:"options,omitempty"`
	References []string `json:"references,omitempty"`
	Category   string   `json:"category"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// ChecklistMetadata describes the source document of a parsed checklist.
type ChecklistMetadata struct {
	Title    string   `json:"title,omitempty"`
	Version  string   `json:"version,omitempty"`
	Date     string   `json:"date,omitempty"`
	Sections []string `json:"sections,omitempty"`
}

// ParsedChecklist is the structured result of parsing one document.
type ParsedChecklist struct {
	Items    []ChecklistItem   `json:"items"`
	Metadata ChecklistMetadata `json:"metadata"`
}

// Validate checks the parsed checklist invariants: non-empty item text and
// ids unique within the checklist. Section membership in Metadata.Sections
// is best-effort and not enforced.
func (p *ParsedChecklist) Validate() error {
	seen := make(map[string]bool, len(p.Items))
	for i, item := range p.Items {
		if strings.TrimSpace(item.Text) == "" {
			return fmt.Errorf("item %d (%s): empty text", i, item.ID)
		}
		if item.ID == "" {
			return fmt.Errorf("item %d: missing id", i)
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate item id %q", item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}

// Item returns the item with the given id, or nil if absent.
func (p *ParsedChecklist) Item(id string) *ChecklistItem {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i]
		}
	}
	return nil
}

// Checklist is a persisted, content-addressed checklist record. Created once
// per distinct file content, looked up by FileHash before re-parsing, never
// mutated afterwards.
type Checklist struct {
	ID        string          `json:"id"`
	FileHash  string          `json:"file_hash"`
	FileName  string          `json:"file_name"`
	Parsed    ParsedChecklist `json:"parsed_content"`
	CreatedAt time.Time       `json:"created_at"`
}

// FusionCandidate is an in-memory proposed pairing of one item from each
// checklist, produced by the matcher before persistence.
type FusionCandidate struct {
	ItemA      ChecklistItem `json:"item_a"`
	ItemB      ChecklistItem `json:"item_b"`
	Similarity float64       `json:"similarity"`
	FusedText  string        `json:"fused_text"`
}

// FusionSuggestion is the persisted form of a FusionCandidate. Immutable
// once created; regeneration replaces the whole pair set.
type FusionSuggestion struct {
	ID              string    `json:"id"`
	ChecklistAID    string    `json:"checklist1_id"`
	ChecklistBID    string    `json:"checklist2_id"`
	ItemAID         string    `json:"item1_id"`
	ItemBID         string    `json:"item2_id"`
	SuggestedText   string    `json:"suggested_text"`
	SimilarityScore float64   `json:"similarity_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// DecisionStatus is the user's verdict on a suggestion.
type DecisionStatus string

const (
	DecisionAccepted DecisionStatus = "accepted"
	DecisionRejected DecisionStatus = "rejected"
	DecisionEdited   DecisionStatus = "edited"
)

// FusionDecision records one user verdict. CustomText is set only for
// edited decisions.
type FusionDecision struct {
	SuggestionID string         `json:"suggestion_id"`
	Status       DecisionStatus `json:"status"`
	CustomText   string         `json:"custom_text,omitempty"`
}

// FusedChecklist is the output of the fusion builder: fused items plus all
// unconsumed items from both sources, deterministically ordered.
type FusedChecklist struct {
	Items    []ChecklistItem   `json:"items"`
	Metadata ChecklistMetadata `json:"metadata"`
}

// Provenance metadata keys written by the fusion builder. The export layer
// and any downstream renderer key off these, so they are part of the
// output contract.
const (
	MetaFusedFrom       = "fusedFrom"
	MetaOriginalTexts   = "originalTexts"
	MetaSourceChecklist = "sourceChecklist"
)
