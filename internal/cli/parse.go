package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/checkfuse/checkfuse/internal/parser"
)

func init() {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a checklist document and store it",
		Long: "Parse a checklist document into structured items and store it keyed by " +
			"content hash. A file with already-stored content returns the existing " +
			"record without re-parsing.",
		Args: cobra.ExactArgs(1),
		Run:  runParse,
	}

	cmd.Flags().String("name", "", "Override the stored file name")

	RootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Sync()

	data, err := os.ReadFile(args[0])
	if err != nil {
		exitErr("read file", err)
	}
	if len(data) == 0 {
		exitErr("parse", fmt.Errorf("%s is empty", args[0]))
	}

	fileName, _ := cmd.Flags().GetString("name")
	if fileName == "" {
		fileName = filepath.Base(args[0])
	}

	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	// Content-hash dedup: skip parsing entirely on a hit.
	if existing, err := s.GetChecklistByHash(cmd.Context(), fileHash); err == nil {
		logger.Debug("checklist already stored", zap.String("id", existing.ID), zap.String("hash", fileHash))
		printJSON(existing)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	var p parser.Parser = parser.TextParser{}
	if cfg.Parser.Endpoint != "" {
		p = parser.NewRemoteParser(cfg.Parser.Endpoint, cfg.Parser.APIKey)
	}

	logger.Debug("parsing document", zap.String("file", fileName), zap.Int("bytes", len(data)))
	parsed, err := p.Parse(cmd.Context(), data, fileName)
	if err != nil {
		exitErr("parse", err)
	}

	checklist, err := s.SaveChecklist(cmd.Context(), fileHash, fileName, *parsed)
	if err != nil {
		exitErr("save checklist", err)
	}

	printJSON(checklist)
}
