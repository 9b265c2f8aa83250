package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/checkfuse/checkfuse/internal/fusion"
	"github.com/checkfuse/checkfuse/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "build <checklist-a-id> <checklist-b-id>",
		Short: "Build the fused checklist from recorded decisions",
		Long: "Assemble the final merged checklist: one fused item per accepted or " +
			"edited suggestion plus every item from both sources not consumed by one, " +
			"sorted by section.",
		Args: cobra.ExactArgs(2),
		Run:  runBuild,
	}

	cmd.Flags().StringP("out", "o", "", "Write JSON to a file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	fused := buildFused(cmd, args[0], args[1])

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		printJSON(fused)
		return
	}
	b := marshalJSON(fused)
	if err := os.WriteFile(out, b, 0o644); err != nil {
		exitErr("write output", err)
	}
}

// buildFused loads everything a build needs and runs the fusion builder.
// Shared by build and export.
func buildFused(cmd *cobra.Command, aID, bID string) *model.FusedChecklist {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()

	checklistA, err := s.GetChecklist(ctx, aID)
	if err != nil {
		exitErr("load checklist A", err)
	}
	checklistB, err := s.GetChecklist(ctx, bID)
	if err != nil {
		exitErr("load checklist B", err)
	}
	suggestions, err := s.FindSuggestions(ctx, aID, bID)
	if err != nil {
		exitErr("load suggestions", err)
	}
	ledger, err := fusion.LoadLedgerFile(sessionPath(aID, bID))
	if err != nil {
		exitErr("load session", err)
	}

	builder := &fusion.Builder{}
	fused, err := builder.Build(fusion.BuildInput{
		ChecklistA:  checklistA,
		ChecklistB:  checklistB,
		Suggestions: suggestions,
		Decisions:   ledger,
	})
	if err != nil {
		exitErr("build", err)
	}
	return fused
}
