// Package store provides the record storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/checkfuse/checkfuse/internal/model"
)

// ErrNotFound is returned when a record lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// Stats summarizes the database contents.
type Stats struct {
	Checklists      int    `json:"checklists"`
	SuggestionPairs int    `json:"suggestion_pairs"`
	Suggestions     int    `json:"suggestions"`
	DBPath          string `json:"db_path"`
	DBSizeBytes     int64  `json:"db_size_bytes"`
}

// Store defines the checklist and suggestion record storage.
type Store interface {
	// SaveChecklist stores a parsed checklist keyed by content hash.
	// If a record with the same hash already exists it is returned as-is;
	// checklist records are never mutated.
	SaveChecklist(ctx context.Context, fileHash, fileName string, parsed model.ParsedChecklist) (*model.Checklist, error)

	// GetChecklist retrieves a checklist by record id.
	GetChecklist(ctx context.Context, id string) (*model.Checklist, error)

	// GetChecklistByHash retrieves a checklist by content hash, or
	// ErrNotFound.
	GetChecklistByHash(ctx context.Context, fileHash string) (*model.Checklist, error)

	// ListChecklists lists stored checklists, newest first.
	ListChecklists(ctx context.Context, limit int) ([]model.Checklist, error)

	// FindSuggestions returns the stored suggestions for the ordered
	// checklist pair in rank order, or an empty slice when the pair has
	// never been matched.
	FindSuggestions(ctx context.Context, checklistAID, checklistBID string) ([]model.FusionSuggestion, error)

	// SaveSuggestions persists candidates for the pair and returns the
	// stored rows. If rows for the pair already exist they are returned
	// unchanged instead — the cache is keyed by pair identity alone, so a
	// concurrent or repeated save never duplicates a pair's rows.
	SaveSuggestions(ctx context.Context, checklistAID, checklistBID string, candidates []model.FusionCandidate) ([]model.FusionSuggestion, error)

	// ReplaceSuggestions drops any stored rows for the pair and persists
	// the candidates in their place, in one transaction.
	ReplaceSuggestions(ctx context.Context, checklistAID, checklistBID string, candidates []model.FusionCandidate) ([]model.FusionSuggestion, error)

	// GetSuggestion retrieves one suggestion by id.
	GetSuggestion(ctx context.Context, id string) (*model.FusionSuggestion, error)

	// Stats reports record counts.
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the store.
	Close() error
}
