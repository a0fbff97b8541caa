package embedding

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

// RemoteEmbedder calls an OpenAI-compatible /embeddings endpoint. Calls are
// one-shot; degradation on failure is the caller's concern (see FailSoft).
type RemoteEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	cache      *Cache
	client     *http.Client
}

// NewRemoteEmbedder creates a remote embeddings client. The API key is read from
// the environment variable named by apiKeyEnv.
func NewRemoteEmbedder(baseURL, apiKeyEnv, model string, dimensions, cacheSize int) (*RemoteEmbedder, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", apiKeyEnv)
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &RemoteEmbedder{
		baseURL:    baseURL,
		apiKey:     key,
		model:      model,
		dimensions: dimensions,
		cache:      NewCache(cacheSize),
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns the embedding for text. Empty text returns a zero vector without
// a network call.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return ZeroVector(e.dimensions), nil
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	vectors, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vectors[0])
	return vectors[0], nil
}

// EmbedBatch embeds texts in a single request, preserving input order. Empty
// strings become zero vectors and are not sent to the API.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	var nonEmpty []string
	var positions []int
	for i, t := range texts {
		if t == "" {
			out[i] = ZeroVector(e.dimensions)
			continue
		}
		nonEmpty = append(nonEmpty, t)
		positions = append(positions, i)
	}
	if len(nonEmpty) == 0 {
		return out, nil
	}
	vectors, err := e.request(ctx, nonEmpty)
	if err != nil {
		return nil, err
	}
	for i, vec := range vectors {
		out[positions[i]] = vec
	}
	return out, nil
}

// request posts inputs to the embeddings endpoint and returns one vector per
// input, in input order.
func (e *RemoteEmbedder) request(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Input: inputs, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings request returned %d: %s", resp.StatusCode, string(b))
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(parsed.Data) != len(inputs) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(parsed.Data), len(inputs))
	}
	vectors := make([][]float32, len(inputs))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embeddings response index %d out of range", item.Index)
		}
		if len(item.Embedding) != e.dimensions {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(item.Embedding), e.dimensions)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, vec := range vectors {
		if vec == nil {
			return nil, fmt.Errorf("embeddings response missing vector for input %d", i)
		}
	}
	return vectors, nil
}

// Dimensions returns the configured embedding dimension.
func (e *RemoteEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for RemoteEmbedder.
func (e *RemoteEmbedder) Close() error {
	return nil
}
