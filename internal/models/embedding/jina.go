package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// JinaEmbedder implements text vectorization via Jina AI's embeddings
// API. Mostly OpenAI-shaped, but Jina takes a boolean `truncate` flag
// instead of `truncate_prompt_tokens`, so it can't share OpenAIEmbedder.
type JinaEmbedder struct {
	apiKey     string
	baseURL    string
	modelName  string
	dimensions int
	modelID    string
	httpClient *http.Client
	EmbedderPooler
}

type jinaEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Truncate   bool     `json:"truncate,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type jinaEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewJinaEmbedder creates a new Jina embedder.
func NewJinaEmbedder(apiKey, baseURL, modelName string,
	truncatePromptTokens int, dimensions int, modelID string, pooler EmbedderPooler,
) (*JinaEmbedder, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if baseURL == "" {
		baseURL = "https://api.jina.ai/v1"
	}
	return &JinaEmbedder{
		apiKey:         apiKey,
		baseURL:        baseURL,
		modelName:      modelName,
		dimensions:     dimensions,
		modelID:        modelID,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		EmbedderPooler: pooler,
	}, nil
}

// Embed converts a single text to a vector.
func (e *JinaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("jina embedder returned no vectors")
	}
	return vecs[0], nil
}

// BatchEmbed converts multiple texts to vectors in one request.
func (e *JinaEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body := jinaEmbedRequest{Model: e.modelName, Input: texts, Truncate: true}
	if e.dimensions > 0 {
		body.Dimensions = e.dimensions
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling jina embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building jina embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling jina embeddings: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading jina embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina embeddings returned HTTP %d: %s", resp.StatusCode, respBody)
	}

	var decoded jinaEmbedResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshaling jina embed response: %w", err)
	}

	out := make([][]float32, len(decoded.Data))
	for _, d := range decoded.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// GetModelName returns the configured model name.
func (e *JinaEmbedder) GetModelName() string { return e.modelName }

// GetDimensions returns the configured vector dimensions.
func (e *JinaEmbedder) GetDimensions() int { return e.dimensions }

// GetModelID returns the configured model ID.
func (e *JinaEmbedder) GetModelID() string { return e.modelID }
