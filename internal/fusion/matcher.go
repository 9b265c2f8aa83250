package fusion

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/checkfuse/checkfuse/internal/embedding"
	"github.com/checkfuse/checkfuse/internal/llm"
	"github.com/checkfuse/checkfuse/internal/model"
)

const (
	// DefaultThreshold is the minimum score for a pair to survive matching.
	DefaultThreshold = 0.7
	// DefaultMaxResults caps the number of candidates handed to generation.
	DefaultMaxResults = 50
	// defaultConcurrency bounds the generation fan-out.
	defaultConcurrency = 4
)

// Matcher enumerates and scores item pairs across two checklists and
// attaches generated fusion wording to the survivors.
type Matcher struct {
	Embedder    embedding.Embedder
	Generator   llm.Generator
	Logger      *zap.Logger
	Threshold   float64 // 0 means DefaultThreshold
	MaxResults  int     // 0 means DefaultMaxResults
	Concurrency int     // 0 means defaultConcurrency
}

// Match computes ranked fusion candidates for every cross-checklist item
// pair whose score clears the threshold. Embedding failure is fatal for the
// whole batch; a generation failure for one pair falls back to plain
// concatenation without aborting the rest.
func (m *Matcher) Match(ctx context.Context, itemsA, itemsB []model.ChecklistItem) ([]model.FusionCandidate, error) {
	threshold := m.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	maxResults := m.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	if len(itemsA) == 0 || len(itemsB) == 0 {
		return nil, nil
	}

	vecsA, err := m.embedItems(ctx, itemsA)
	if err != nil {
		return nil, fmt.Errorf("matching unavailable: embed checklist A: %w", err)
	}
	vecsB, err := m.embedItems(ctx, itemsB)
	if err != nil {
		return nil, fmt.Errorf("matching unavailable: embed checklist B: %w", err)
	}

	// Full cross product; exclusivity is resolved later by user decisions,
	// so one item may appear in several candidates.
	var candidates []model.FusionCandidate
	for i := range itemsA {
		for j := range itemsB {
			score, err := Score(itemsA[i], itemsB[j], vecsA[i], vecsB[j])
			if err != nil {
				return nil, fmt.Errorf("score %s/%s: %w", itemsA[i].ID, itemsB[j].ID, err)
			}
			if score >= threshold {
				candidates = append(candidates, model.FusionCandidate{
					ItemA:      itemsA[i],
					ItemB:      itemsB[j],
					Similarity: score,
				})
			}
		}
	}

	// Descending by score; SliceStable keeps enumeration order on ties so
	// two runs over the same input rank identically.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	if err := m.generateAll(ctx, candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (m *Matcher) embedItems(ctx context.Context, items []model.ChecklistItem) ([]embedding.Vector, error) {
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}
	vecs, err := m.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(items) {
		return nil, fmt.Errorf("expected %d vectors, got %d", len(items), len(vecs))
	}
	return vecs, nil
}

// generateAll fills FusedText for every candidate. Calls are independent,
// so they fan out in parallel; each result is slotted back by index and a
// failed call degrades to the concatenation fallback without cancelling
// its siblings.
func (m *Matcher) generateAll(ctx context.Context, candidates []model.FusionCandidate) error {
	concurrency := m.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range candidates {
		g.Go(func() error {
			c := &candidates[i]
			text, err := GenerateFusedText(gctx, m.Generator, c.ItemA, c.ItemB)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Warn("fusion text generation failed, using fallback",
						zap.String("item_a", c.ItemA.ID),
						zap.String("item_b", c.ItemB.ID),
						zap.Error(err))
				}
				text = FallbackText(c.ItemA, c.ItemB)
			}
			c.FusedText = text
			return nil
		})
	}
	return g.Wait()
}
