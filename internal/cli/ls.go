package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List stored checklists",
		Run:   runLs,
	}

	cmd.Flags().IntP("limit", "l", 20, "Maximum number of checklists to list")

	RootCmd.AddCommand(cmd)
}

func runLs(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	checklists, err := s.ListChecklists(cmd.Context(), limit)
	if err != nil {
		exitErr("list", err)
	}

	if formatFlag == "text" {
		for _, c := range checklists {
			fmt.Printf("%s  %-30s  %3d items  %s\n",
				c.ID, c.FileName, len(c.Parsed.Items), c.CreatedAt.Format("2006-01-02 15:04"))
		}
		return
	}
	printJSON(checklists)
}
