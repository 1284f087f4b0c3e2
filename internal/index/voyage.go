package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultVoyageEndpoint = "https://api.voyageai.com/v1/embeddings"
	defaultVoyageTimeout  = 30 * time.Second
)

// VoyageEmbedder calls the Voyage AI embeddings API. It embeds documents and
// queries with distinct input types, which is what makes the retrieval
// asymmetric.
type VoyageEmbedder struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewVoyageEmbedder builds a Voyage client for the given model.
func NewVoyageEmbedder(apiKey, model string) *VoyageEmbedder {
	return &VoyageEmbedder{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultVoyageEndpoint,
		client:   &http.Client{Timeout: defaultVoyageTimeout},
	}
}

type voyageRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedDocuments embeds corpus texts with input_type=document.
func (v *VoyageEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	return v.embed(ctx, texts, documentSide)
}

// EmbedQuery embeds a search query with input_type=query.
func (v *VoyageEmbedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	vectors, err := v.embed(ctx, []string{query}, querySide)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (v *VoyageEmbedder) embed(ctx context.Context, texts []string, inputType string) ([][]float64, error) {
	payload, err := json.Marshal(voyageRequest{
		Input:     texts,
		Model:     v.model,
		InputType: inputType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal voyage request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build voyage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voyage request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read voyage response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voyage returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed voyageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse voyage response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("voyage returned %d embeddings for %d inputs", len(parsed.Data), len(texts))
	}

	vectors := make([][]float64, len(parsed.Data))
	for i, item := range parsed.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
