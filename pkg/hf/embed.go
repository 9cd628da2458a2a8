// Package hf provides a Hugging Face Inference API client for the
// feature-extraction (text embedding) pipeline.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultBaseURL is the hosted Inference API endpoint.
const DefaultBaseURL = "https://api-inference.huggingface.co"

// EmbedClient calls the feature-extraction pipeline for a fixed model.
type EmbedClient struct {
	baseURL string
	model   string
	apiKey  string
	dims    int
	client  *http.Client
}

// NewEmbedClient creates an embedding client. dims is the expected vector
// dimension; responses with a different dimension are rejected.
func NewEmbedClient(baseURL, model, apiKey string, dims int) *EmbedClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &EmbedClient{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		dims:    dims,
		client:  &http.Client{},
	}
}

// NewEmbedClientWithHTTP injects a custom http.Client. Used in tests.
func NewEmbedClientWithHTTP(baseURL, model, apiKey string, dims int, hc *http.Client) *EmbedClient {
	c := NewEmbedClient(baseURL, model, apiKey, dims)
	c.client = hc
	return c
}

// Dims returns the configured embedding dimension.
func (c *EmbedClient) Dims() int { return c.dims }

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

// Embed converts texts into embeddings, one per input, positionally aligned.
// A response whose length or dimensions do not match the request is an error:
// callers must never receive misaligned vectors.
func (c *EmbedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("hf embed: marshal: %w", err)
	}

	url := c.baseURL + "/pipeline/feature-extraction/" + c.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hf embed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hf embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("hf embed: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var vectors [][]float64
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("hf embed: decode: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("hf embed: got %d vectors for %d inputs", len(vectors), len(texts))
	}

	out := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if c.dims > 0 && len(vec) != c.dims {
			return nil, fmt.Errorf("hf embed: vector %d has dimension %d, want %d", i, len(vec), c.dims)
		}
		v := make([]float32, len(vec))
		for j, x := range vec {
			v[j] = float32(x)
		}
		out[i] = v
	}
	return out, nil
}
