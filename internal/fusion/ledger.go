package fusion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/checkfuse/checkfuse/internal/model"
)

// Ledger maps suggestion ids to user decisions. It is owned by the single
// session driving a merge: every operation fully replaces any prior
// decision for that id, and no history is kept.
type Ledger struct {
	decisions map[string]model.FusionDecision
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{decisions: make(map[string]model.FusionDecision)}
}

// Accept records an accepted decision for the suggestion.
func (l *Ledger) Accept(id string) {
	l.decisions[id] = model.FusionDecision{SuggestionID: id, Status: model.DecisionAccepted}
}

// Reject records a rejected decision for the suggestion.
func (l *Ledger) Reject(id string) {
	l.decisions[id] = model.FusionDecision{SuggestionID: id, Status: model.DecisionRejected}
}

// Edit records an edited decision with replacement wording. The text must
// be non-empty after trimming.
func (l *Ledger) Edit(id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("edited text must not be empty")
	}
	l.decisions[id] = model.FusionDecision{SuggestionID: id, Status: model.DecisionEdited, CustomText: text}
	return nil
}

// Clear removes any decision for the suggestion.
func (l *Ledger) Clear(id string) {
	delete(l.decisions, id)
}

// Get returns the current decision for the suggestion, if any.
func (l *Ledger) Get(id string) (model.FusionDecision, bool) {
	d, ok := l.decisions[id]
	return d, ok
}

// Len returns the number of recorded decisions.
func (l *Ledger) Len() int { return len(l.decisions) }

// All returns every decision sorted by suggestion id.
func (l *Ledger) All() []model.FusionDecision {
	out := make([]model.FusionDecision, 0, len(l.decisions))
	for _, d := range l.decisions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SuggestionID < out[j].SuggestionID })
	return out
}

// SaveFile writes the ledger to a JSON file, creating parent directories.
// This is a serialization convenience for CLI sessions, not a second store.
func (l *Ledger) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.MarshalIndent(l.All(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadLedgerFile reads a ledger previously written by SaveFile. A missing
// file yields an empty ledger.
func LoadLedgerFile(path string) (*Ledger, error) {
	l := NewLedger()
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	var decisions []model.FusionDecision
	if err := json.Unmarshal(b, &decisions); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", path, err)
	}
	for _, d := range decisions {
		l.decisions[d.SuggestionID] = d
	}
	return l, nil
}
