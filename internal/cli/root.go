// Package cli implements the checkfuse CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/checkfuse/checkfuse/internal/config"
	"github.com/checkfuse/checkfuse/internal/store"
)

var (
	dbPath     string
	configPath string
	formatFlag string
	debugFlag  bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "checkfuse",
	Short: "Merge overlapping audit checklists",
	Long: "checkfuse parses two audit-checklist documents, finds semantically overlapping " +
		"requirement items, proposes AI-fused wording for each match, and builds a " +
		"consolidated checklist from your accept/reject/edit decisions.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $CHECKFUSE_DB or ~/.checkfuse/checkfuse.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: ~/.checkfuse/config.toml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("CHECKFUSE_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".checkfuse", "checkfuse.db")
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// newLogger builds the diagnostic logger. Warnings and up go to stderr by
// default so JSON command output on stdout stays machine-readable.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if debugFlag {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// sessionPath is where the decision ledger for a checklist pair lives.
func sessionPath(checklistAID, checklistBID string) string {
	return filepath.Join(filepath.Dir(getDBPath()), "sessions",
		fmt.Sprintf("%s_%s.json", checklistAID, checklistBID))
}

func marshalJSON(v any) []byte {
	b, _ := json.MarshalIndent(v, "", "  ")
	return append(b, '\n')
}

func printJSON(v any) {
	os.Stdout.Write(marshalJSON(v))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
