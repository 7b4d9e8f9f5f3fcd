package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	ollamaapi "github.com/ollama/ollama/api"
)

// OllamaEmbedder implements text vectorization via a locally-hosted
// Ollama instance.
type OllamaEmbedder struct {
	client     *ollamaapi.Client
	modelName  string
	dimensions int
	modelID    string
	EmbedderPooler
}

// NewOllamaEmbedder creates an embedder against a local Ollama daemon.
func NewOllamaEmbedder(baseURL, modelName string, dimensions int, modelID string, pooler EmbedderPooler) (*OllamaEmbedder, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	return &OllamaEmbedder{
		client:         ollamaapi.NewClient(u, http.DefaultClient),
		modelName:      modelName,
		dimensions:     dimensions,
		modelID:        modelID,
		EmbedderPooler: pooler,
	}, nil
}

// Embed converts a single text to a vector.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings(ctx, &ollamaapi.EmbeddingRequest{
		Model:  e.modelName,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding request failed: %w", err)
	}
	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// BatchEmbed converts multiple texts to vectors via the bounded pool,
// since Ollama's embeddings endpoint is single-text-per-request.
func (e *OllamaEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.BatchEmbedWithPool(ctx, e, texts)
}

// GetModelName returns the configured model name.
func (e *OllamaEmbedder) GetModelName() string { return e.modelName }

// GetDimensions returns the configured vector dimensions.
func (e *OllamaEmbedder) GetDimensions() int { return e.dimensions }

// GetModelID returns the configured model ID.
func (e *OllamaEmbedder) GetModelID() string { return e.modelID }
