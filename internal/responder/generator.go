// Package responder composes grounded answers from retrieved context.
package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Generator produces free text from a prompt. Implementations wrap an LLM
// backend; the Responder falls back to template answers when generation fails.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewOpenAIGenerator builds a generator against baseURL (e.g.
// "https://api.openai.com/v1"). The API key is read from the environment
// variable named by apiKeyEnv and must be non-empty.
func NewOpenAIGenerator(baseURL, apiKeyEnv, model string, maxTokens int, temperature float64) (*OpenAIGenerator, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key environment variable %s is not set", apiKeyEnv)
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIGenerator{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends prompt as a single user message and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completion error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
