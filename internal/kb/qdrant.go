// Package kb implements a PLUGIN-role knowledge-base module: the LLM module
// calls its Retrieve method directly (not through task_queue) to fetch the
// most relevant curated snippets from a Qdrant vector collection as
// generation context, the same retrieval-augmented pattern the reference
// implementation's pipeline offers for its call-center domain knowledge
// (adapted here to a fixed knowledge base rather than conversation
// history — this module never stores turns, only pre-seeded facts).
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// QdrantClient interacts with Qdrant's REST API.
type QdrantClient struct {
	url string
	cli *http.Client
}

func NewQdrantClient(url string) *QdrantClient {
	return &QdrantClient{url: url, cli: &http.Client{Timeout: 30 * time.Second}}
}

func (q *QdrantClient) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	body, err := json.Marshal(qdrantCreateCollection{Vectors: qdrantVectorConfig{Size: vectorSize, Distance: "Cosine"}})
	if err != nil {
		return fmt.Errorf("kb: marshal collection config: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, q.url+"/collections/"+name, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("kb: create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.cli.Do(req)
	if err != nil {
		return fmt.Errorf("kb: create collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusOK {
		return nil
	}
	return fmt.Errorf("kb: create collection status %d", resp.StatusCode)
}

// Point is a vector with payload, one curated knowledge-base entry.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (q *QdrantClient) Upsert(ctx context.Context, collection string, points []Point) error {
	body, err := json.Marshal(qdrantUpsertRequest{Points: points})
	if err != nil {
		return fmt.Errorf("kb: marshal upsert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, q.url+"/collections/"+collection+"/points", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("kb: create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.cli.Do(req)
	if err != nil {
		return fmt.Errorf("kb: upsert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kb: upsert status %d", resp.StatusCode)
	}
	return nil
}

// SearchResult is a single retrieval hit.
type SearchResult struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (q *QdrantClient) Search(ctx context.Context, collection string, vector []float64, topK int, scoreThreshold float64) ([]SearchResult, error) {
	body, err := json.Marshal(qdrantSearchRequest{Vector: vector, Limit: topK, ScoreThreshold: scoreThreshold, WithPayload: true})
	if err != nil {
		return nil, fmt.Errorf("kb: marshal search: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.url+"/collections/"+collection+"/points/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kb: create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kb: search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kb: search status %d", resp.StatusCode)
	}

	var result qdrantSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("kb: decode search response: %w", err)
	}
	return result.Result, nil
}

type qdrantCreateCollection struct {
	Vectors qdrantVectorConfig `json:"vectors"`
}
type qdrantVectorConfig struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}
type qdrantUpsertRequest struct {
	Points []Point `json:"points"`
}
type qdrantSearchRequest struct {
	Vector         []float64 `json:"vector"`
	Limit          int       `json:"limit"`
	ScoreThreshold float64   `json:"score_threshold"`
	WithPayload    bool      `json:"with_payload"`
}
type qdrantSearchResponse struct {
	Result []SearchResult `json:"result"`
}
