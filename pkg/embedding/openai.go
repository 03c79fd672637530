package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/semstore-dev/semstore/pkg/debug"
)

// Config holds settings for the OpenAI-compatible embedding client.
type Config struct {
	// URL is the base URL of the embedding service. The /v1/embeddings
	// suffix is appended when not already present.
	URL string

	// Model is the embedding model name sent with each request.
	Model string

	// APIKey, when set, is sent as a bearer token.
	APIKey string

	// Timeout bounds each HTTP request (default: 60s).
	Timeout time.Duration
}

// Client calls any OpenAI-compatible /v1/embeddings endpoint.
type Client struct {
	url        string
	model      string
	apiKey     string
	httpClient *http.Client

	mu   sync.RWMutex
	dims int
}

var _ Embedder = (*Client)(nil)

// NewClient creates an embedding client for an OpenAI-compatible endpoint.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	endpoint := cfg.URL
	if !strings.HasSuffix(endpoint, "/v1/embeddings") {
		endpoint = strings.TrimRight(endpoint, "/") + "/v1/embeddings"
	}

	return &Client{
		url:        endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// embeddingRequest is the JSON request body for the embeddings API.
type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embeddingResponse is the JSON response from the embeddings API.
type embeddingResponse struct {
	Data []embeddingData `json:"data"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// Embed sends texts to the embeddings endpoint and returns the vectors
// in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshaling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	debug.Log("embedding", "request", "url", c.url, "model", c.model, "texts", len(texts))
	if debug.TraceIsEnabled("embedding") {
		debug.Raw("embedding", string(body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading embedding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("parsing embedding response: %w", err)
	}

	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response contained %d vectors for %d inputs", len(embResp.Data), len(texts))
	}

	// Order results by index; providers may return them out of order.
	vectors := make([][]float32, len(texts))
	for _, d := range embResp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding response index %d out of range [0, %d)", d.Index, len(texts))
		}
		vectors[d.Index] = d.Embedding
	}

	// All vectors must share one dimensionality, learned from the first
	// successful response.
	want := len(vectors[0])
	if want == 0 {
		return nil, fmt.Errorf("embedding response contained an empty vector")
	}
	for i, v := range vectors {
		if len(v) != want {
			return nil, fmt.Errorf("embedding response vector %d has length %d, want %d", i, len(v), want)
		}
	}

	c.mu.Lock()
	if c.dims == 0 {
		c.dims = want
	}
	c.mu.Unlock()

	return vectors, nil
}

// Dimensions returns the dimensionality of the embedding vectors.
// Returns 0 until the first successful Embed call.
func (c *Client) Dimensions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dims
}
