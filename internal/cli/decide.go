package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/checkfuse/checkfuse/internal/fusion"
	"github.com/checkfuse/checkfuse/internal/model"
)

func init() {
	accept := &cobra.Command{
		Use:   "accept <suggestion-id>",
		Short: "Accept a fusion suggestion",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			decide(cmd, args[0], func(l *fusion.Ledger) error {
				l.Accept(args[0])
				return nil
			})
		},
	}

	reject := &cobra.Command{
		Use:   "reject <suggestion-id>",
		Short: "Reject a fusion suggestion",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			decide(cmd, args[0], func(l *fusion.Ledger) error {
				l.Reject(args[0])
				return nil
			})
		},
	}

	edit := &cobra.Command{
		Use:   "edit <suggestion-id> <text>",
		Short: "Accept a suggestion with replacement wording",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			text := strings.Join(args[1:], " ")
			decide(cmd, args[0], func(l *fusion.Ledger) error {
				return l.Edit(args[0], text)
			})
		},
	}

	clear := &cobra.Command{
		Use:   "clear <suggestion-id>",
		Short: "Remove any decision for a suggestion",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			decide(cmd, args[0], func(l *fusion.Ledger) error {
				l.Clear(args[0])
				return nil
			})
		},
	}

	decisions := &cobra.Command{
		Use:   "decisions <checklist-a-id> <checklist-b-id>",
		Short: "List recorded decisions for a checklist pair",
		Args:  cobra.ExactArgs(2),
		Run:   runDecisions,
	}

	RootCmd.AddCommand(accept, reject, edit, clear, decisions)
}

// decide applies one ledger mutation for the pair that owns the suggestion.
// Each write fully replaces any prior decision for that suggestion.
func decide(cmd *cobra.Command, suggestionID string, apply func(*fusion.Ledger) error) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sug, err := s.GetSuggestion(cmd.Context(), suggestionID)
	if err != nil {
		exitErr("lookup suggestion", err)
	}

	path := sessionPath(sug.ChecklistAID, sug.ChecklistBID)
	ledger, err := fusion.LoadLedgerFile(path)
	if err != nil {
		exitErr("load session", err)
	}

	if err := apply(ledger); err != nil {
		exitErr("record decision", err)
	}
	if err := ledger.SaveFile(path); err != nil {
		exitErr("save session", err)
	}

	if d, ok := ledger.Get(suggestionID); ok {
		printJSON(d)
	} else {
		printJSON(model.FusionDecision{SuggestionID: suggestionID})
	}
}

func runDecisions(cmd *cobra.Command, args []string) {
	ledger, err := fusion.LoadLedgerFile(sessionPath(args[0], args[1]))
	if err != nil {
		exitErr("load session", err)
	}
	printJSON(ledger.All())
}
