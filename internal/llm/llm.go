// Package llm provides a pluggable interface for text generation providers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Generator produces a completion for a prompt. Implementations own their
// timeout and retry policy; callers only distinguish success from failure.
type Generator interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// --- Ollama Provider ---

// OllamaGenerator uses a local Ollama instance for generation.
type OllamaGenerator struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaGenRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaGenResponse struct {
	Response string `json:"response"`
}

// NewOllamaGenerator creates a generator using Ollama's API.
func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	return &OllamaGenerator{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (g *OllamaGenerator) Complete(ctx context.Context, prompt, system string) (string, error) {
	body, _ := json.Marshal(ollamaGenRequest{Model: g.model, Prompt: prompt, System: system, Stream: false})
	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(b))
	}

	var result ollamaGenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Response), nil
}

// --- OpenAI-compatible Provider ---

// OpenAIGenerator uses any OpenAI-compatible chat completions API.
type OpenAIGenerator struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAIGenerator creates a generator using an OpenAI-compatible API.
func NewOpenAIGenerator(baseURL, apiKey, model string) *OpenAIGenerator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4"
	}
	return &OpenAIGenerator{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: 0.3,
		maxTokens:   500,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

func (g *OpenAIGenerator) Complete(ctx context.Context, prompt, system string) (string, error) {
	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, _ := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(b))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// New creates a generator for the given provider name.
// Supported providers: "ollama", "openai", "gemini".
func New(provider, baseURL, apiKey, model string) (Generator, error) {
	switch provider {
	case "ollama":
		return NewOllamaGenerator(baseURL, model), nil
	case "openai":
		return NewOpenAIGenerator(baseURL, apiKey, model), nil
	case "gemini":
		return NewGeminiGenerator(apiKey, model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
