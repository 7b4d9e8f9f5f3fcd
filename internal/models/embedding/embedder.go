package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/pickeld/lucy/internal/models/provider"
	"github.com/pickeld/lucy/internal/types"
)

// Embedder defines the interface for text vectorization.
type Embedder interface {
	// Embed converts text to vector
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed converts multiple texts to vectors in batch
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// GetModelName returns the model name
	GetModelName() string

	// GetDimensions returns the vector dimensions
	GetDimensions() int

	// GetModelID returns the model ID
	GetModelID() string

	EmbedderPooler
}

// EmbedderPooler fans BatchEmbed calls out across a bounded worker
// pool instead of issuing one request per text sequentially.
type EmbedderPooler interface {
	BatchEmbedWithPool(ctx context.Context, model Embedder, texts []string) ([][]float32, error)
}

// Config represents the embedder configuration.
type Config struct {
	Source               types.ModelSource `json:"source"`
	BaseURL              string            `json:"base_url"`
	ModelName            string            `json:"model_name"`
	APIKey               string            `json:"api_key"`
	TruncatePromptTokens int               `json:"truncate_prompt_tokens"`
	Dimensions           int               `json:"dimensions"`
	ModelID              string            `json:"model_id"`
	Provider             string            `json:"provider"`
}

// NewEmbedder constructs an embedder from config and an explicitly
// supplied pooler — there is no DI container resolving the pooler
// behind the scenes, the caller (internal/host) owns it and passes it
// down like any other constructor argument.
func NewEmbedder(config Config, pooler EmbedderPooler) (Embedder, error) {
	switch strings.ToLower(string(config.Source)) {
	case string(types.ModelSourceLocal):
		return NewOllamaEmbedder(config.BaseURL, config.ModelName, config.Dimensions, config.ModelID, pooler)
	case string(types.ModelSourceRemote):
		providerName := provider.ProviderName(config.Provider)
		if providerName == "" {
			providerName = provider.DetectProvider(config.BaseURL)
		}

		switch providerName {
		case provider.ProviderJina:
			return NewJinaEmbedder(config.APIKey, config.BaseURL, config.ModelName,
				config.TruncatePromptTokens, config.Dimensions, config.ModelID, pooler)
		default:
			return NewOpenAIEmbedder(config.APIKey, config.BaseURL, config.ModelName,
				config.TruncatePromptTokens, config.Dimensions, config.ModelID, pooler)
		}
	default:
		return nil, fmt.Errorf("unsupported embedder source: %s", config.Source)
	}
}
