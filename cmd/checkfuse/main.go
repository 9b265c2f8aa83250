package main

import (
	"os"

	"github.com/checkfuse/checkfuse/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
