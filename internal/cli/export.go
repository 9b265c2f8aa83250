package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/checkfuse/checkfuse/internal/export"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export <checklist-a-id> <checklist-b-id>",
		Short: "Build and render the fused checklist",
		Long: "Build the fused checklist and render it as a section-grouped markdown " +
			"document with fused rows marked.",
		Args: cobra.ExactArgs(2),
		Run:  runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Write to a file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	fused := buildFused(cmd, args[0], args[1])
	doc := export.BuildDocument(fused)

	rendered, err := export.MarkdownRenderer{}.Render(doc)
	if err != nil {
		exitErr("render", err)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		fmt.Print(string(rendered))
		return
	}
	if err := os.WriteFile(out, rendered, 0o644); err != nil {
		exitErr("write output", err)
	}
}
