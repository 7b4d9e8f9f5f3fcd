package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ZhipuReranker implements Reranker over Zhipu AI's (GLM) rerank
// endpoint.
type ZhipuReranker struct {
	modelName string
	modelID   string
	apiKey    string
	baseURL   string
	client    *http.Client
}

type zhipuRerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	ReturnDocuments bool     `json:"return_documents,omitempty"`
}

type zhipuRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
		Document       string  `json:"document,omitempty"`
	} `json:"results"`
}

// NewZhipuReranker creates a new Zhipu reranker.
func NewZhipuReranker(config *RerankerConfig) (*ZhipuReranker, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://open.bigmodel.cn/api/paas/v4/rerank"
	}
	return &ZhipuReranker{
		modelName: config.ModelName,
		modelID:   config.ModelID,
		apiKey:    config.APIKey,
		baseURL:   baseURL,
		client:    &http.Client{},
	}, nil
}

// Rerank scores documents against query via Zhipu's rerank endpoint.
func (r *ZhipuReranker) Rerank(ctx context.Context, query string, documents []string) ([]RankResult, error) {
	payload, err := json.Marshal(zhipuRerankRequest{
		Model:           r.modelName,
		Query:           query,
		Documents:       documents,
		ReturnDocuments: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling zhipu rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building zhipu rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling zhipu rerank: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading zhipu rerank response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zhipu rerank returned HTTP %d: %s", resp.StatusCode, body)
	}

	var decoded zhipuRerankResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshaling zhipu rerank response: %w", err)
	}

	results := make([]RankResult, len(decoded.Results))
	for i, res := range decoded.Results {
		results[i] = RankResult{
			Index:          res.Index,
			Document:       DocumentInfo{Text: res.Document},
			RelevanceScore: res.RelevanceScore,
		}
	}
	return results, nil
}

// GetModelName returns the reranking model's name.
func (r *ZhipuReranker) GetModelName() string { return r.modelName }

// GetModelID returns the reranking model's unique identifier.
func (r *ZhipuReranker) GetModelID() string { return r.modelID }
