package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements text vectorization via OpenAI's embeddings
// API, or any OpenAI-compatible remote endpoint routed to it.
type OpenAIEmbedder struct {
	client               *openai.Client
	modelName            string
	truncatePromptTokens int
	dimensions           int
	modelID              string
	EmbedderPooler
}

// NewOpenAIEmbedder creates an OpenAI-compatible embedder.
func NewOpenAIEmbedder(apiKey, baseURL, modelName string,
	truncatePromptTokens, dimensions int, modelID string, pooler EmbedderPooler,
) (*OpenAIEmbedder, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:               openai.NewClientWithConfig(cfg),
		modelName:            modelName,
		truncatePromptTokens: truncatePromptTokens,
		dimensions:           dimensions,
		modelID:              modelID,
		EmbedderPooler:       pooler,
	}, nil
}

// Embed converts a single text to a vector.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("openai embedder returned no vectors")
	}
	return vecs[0], nil
}

// BatchEmbed converts multiple texts to vectors in one request.
func (e *OpenAIEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.modelName),
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// GetModelName returns the configured model name.
func (e *OpenAIEmbedder) GetModelName() string { return e.modelName }

// GetDimensions returns the configured vector dimensions.
func (e *OpenAIEmbedder) GetDimensions() int { return e.dimensions }

// GetModelID returns the configured model ID.
func (e *OpenAIEmbedder) GetModelID() string { return e.modelID }
