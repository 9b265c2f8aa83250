package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/checkfuse/checkfuse/internal/embedding"
	"github.com/checkfuse/checkfuse/internal/fusion"
	"github.com/checkfuse/checkfuse/internal/llm"
)

func init() {
	cmd := &cobra.Command{
		Use:   "suggest <checklist-a-id> <checklist-b-id>",
		Short: "Compute fusion suggestions for a checklist pair",
		Long: "Match items across two stored checklists and persist ranked fusion " +
			"suggestions. A pair that already has stored suggestions returns them " +
			"as-is regardless of flags; use --refresh to recompute and replace them.",
		Args: cobra.ExactArgs(2),
		Run:  runSuggest,
	}

	cmd.Flags().Float64P("threshold", "t", 0, "Minimum similarity score (default from config, 0.7)")
	cmd.Flags().IntP("max", "m", 0, "Maximum number of suggestions (default from config, 50)")
	cmd.Flags().Bool("refresh", false, "Bypass the cached pair and regenerate")

	RootCmd.AddCommand(cmd)
}

func runSuggest(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Sync()

	aID, bID := args[0], args[1]
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	maxResults, _ := cmd.Flags().GetInt("max")
	refresh, _ := cmd.Flags().GetBool("refresh")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()

	// Cached path: pair identity alone keys the cache, so the stored set is
	// returned even when threshold/max differ from what produced it.
	if !refresh {
		cached, err := s.FindSuggestions(ctx, aID, bID)
		if err != nil {
			exitErr("lookup suggestions", err)
		}
		if len(cached) > 0 {
			logger.Debug("returning cached suggestions",
				zap.String("pair", aID+"/"+bID), zap.Int("count", len(cached)))
			printJSON(cached)
			return
		}
	}

	checklistA, err := s.GetChecklist(ctx, aID)
	if err != nil {
		exitErr("load checklist A", err)
	}
	checklistB, err := s.GetChecklist(ctx, bID)
	if err != nil {
		exitErr("load checklist B", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	if threshold == 0 {
		threshold = cfg.Matching.Threshold
	}
	if maxResults == 0 {
		maxResults = cfg.Matching.MaxResults
	}

	embedder, err := embedding.New(cfg.Embedding.Provider, cfg.Embedding.BaseURL,
		cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dims)
	if err != nil {
		exitErr("embedding provider", err)
	}
	generator, err := llm.New(cfg.LLM.Provider, cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		exitErr("llm provider", err)
	}

	matcher := &fusion.Matcher{
		Embedder:    embedder,
		Generator:   generator,
		Logger:      logger,
		Threshold:   threshold,
		MaxResults:  maxResults,
		Concurrency: cfg.Matching.Concurrency,
	}

	logger.Debug("matching checklists",
		zap.Int("items_a", len(checklistA.Parsed.Items)),
		zap.Int("items_b", len(checklistB.Parsed.Items)),
		zap.Float64("threshold", threshold))

	candidates, err := matcher.Match(ctx, checklistA.Parsed.Items, checklistB.Parsed.Items)
	if err != nil {
		exitErr("match", err)
	}

	if refresh {
		suggestions, err := s.ReplaceSuggestions(ctx, aID, bID, candidates)
		if err != nil {
			exitErr("save suggestions", err)
		}
		printJSON(suggestions)
		return
	}
	suggestions, err := s.SaveSuggestions(ctx, aID, bID, candidates)
	if err != nil {
		exitErr("save suggestions", err)
	}
	printJSON(suggestions)
}
