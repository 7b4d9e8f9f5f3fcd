package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// JinaReranker implements Reranker over Jina AI's rerank endpoint,
// the default vendor NewReranker falls back to for any provider with
// no dedicated client.
type JinaReranker struct {
	modelName string
	modelID   string
	apiKey    string
	baseURL   string
	client    *http.Client
}

type jinaRerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n,omitempty"`
	ReturnDocuments bool     `json:"return_documents,omitempty"`
}

type jinaRerankResponse struct {
	Results []RankResult `json:"results"`
}

// NewJinaReranker creates a new Jina reranker.
func NewJinaReranker(config *RerankerConfig) (*JinaReranker, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.jina.ai/v1"
	}
	return &JinaReranker{
		modelName: config.ModelName,
		modelID:   config.ModelID,
		apiKey:    config.APIKey,
		baseURL:   baseURL,
		client:    &http.Client{},
	}, nil
}

// Rerank scores documents against query via Jina's /rerank endpoint.
func (r *JinaReranker) Rerank(ctx context.Context, query string, documents []string) ([]RankResult, error) {
	payload, err := json.Marshal(jinaRerankRequest{
		Model:           r.modelName,
		Query:           query,
		Documents:       documents,
		ReturnDocuments: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling jina rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building jina rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling jina rerank: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading jina rerank response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina rerank returned HTTP %d: %s", resp.StatusCode, body)
	}

	var decoded jinaRerankResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshaling jina rerank response: %w", err)
	}
	return decoded.Results, nil
}

// GetModelName returns the reranking model's name.
func (r *JinaReranker) GetModelName() string { return r.modelName }

// GetModelID returns the reranking model's unique identifier.
func (r *JinaReranker) GetModelID() string { return r.modelID }
