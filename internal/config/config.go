// Package config loads checkfuse configuration from a TOML file with
// environment variable overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider string `toml:"provider"` // ollama | openai | gemini
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	Dims     int    `toml:"dims"`
}

// LLMConfig selects and tunes the text generation provider.
type LLMConfig struct {
	Provider string `toml:"provider"` // ollama | openai | gemini
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
}

// ParserConfig points at the external document-understanding deployment.
// Empty endpoint means the local plain-text fallback parser.
type ParserConfig struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
}

// MatchingConfig tunes the candidate matcher.
type MatchingConfig struct {
	Threshold   float64 `toml:"threshold"`
	MaxResults  int     `toml:"max_results"`
	Concurrency int     `toml:"concurrency"`
}

// Config is the full checkfuse configuration.
type Config struct {
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Parser    ParserConfig    `toml:"parser"`
	Matching  MatchingConfig  `toml:"matching"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small"},
		LLM:       LLMConfig{Provider: "openai", Model: "gpt-4"},
		Matching:  MatchingConfig{Threshold: 0.7, MaxResults: 50, Concurrency: 4},
	}
}

// DefaultPath returns ~/.checkfuse/config.toml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".checkfuse", "config.toml")
}

// Load reads the config file at path (DefaultPath when empty) and applies
// environment overrides. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// fall through to env overrides
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers environment variables over file values. CHECKFUSE_*
// variables win over the file; provider API keys fall back to the
// conventional vendor variables.
func (c *Config) applyEnv() {
	setStr(&c.Embedding.Provider, "CHECKFUSE_EMBED_PROVIDER")
	setStr(&c.Embedding.Model, "CHECKFUSE_EMBED_MODEL")
	setStr(&c.Embedding.BaseURL, "CHECKFUSE_EMBED_URL")
	setStr(&c.LLM.Provider, "CHECKFUSE_LLM_PROVIDER")
	setStr(&c.LLM.Model, "CHECKFUSE_LLM_MODEL")
	setStr(&c.LLM.BaseURL, "CHECKFUSE_LLM_URL")
	setStr(&c.Parser.Endpoint, "CHECKFUSE_PARSER_ENDPOINT")
	setStr(&c.Parser.APIKey, "CHECKFUSE_PARSER_API_KEY")

	if v := os.Getenv("CHECKFUSE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Matching.Threshold = f
		}
	}
	if v := os.Getenv("CHECKFUSE_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Matching.MaxResults = n
		}
	}

	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = vendorKey(c.Embedding.Provider)
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = vendorKey(c.LLM.Provider)
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		if c.Embedding.Provider == "ollama" && c.Embedding.BaseURL == "" {
			c.Embedding.BaseURL = v
		}
		if c.LLM.Provider == "ollama" && c.LLM.BaseURL == "" {
			c.LLM.BaseURL = v
		}
	}
}

func vendorKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}

func setStr(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
