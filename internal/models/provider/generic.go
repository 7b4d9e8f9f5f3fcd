package provider

import (
	"fmt"

	"github.com/pickeld/lucy/internal/types"
)

// GenericProvider implements the Provider interface for any
// OpenAI-compatible HTTP endpoint with no fixed base URL — chiefly a
// local Ollama server (Ollama's `/v1` API is OpenAI-compatible), but
// also any other self-hosted OpenAI-shaped endpoint an operator points
// chat.base_url / embedding.base_url at.
type GenericProvider struct{}

func init() {
	Register(&GenericProvider{})
}

// Info returns the generic provider's metadata.
func (p *GenericProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:        ProviderGeneric,
		DisplayName: "Generic (OpenAI-compatible / Ollama)",
		Description: "any OpenAI-compatible endpoint, e.g. a local Ollama server",
		DefaultURLs: map[types.ModelType]string{}, // caller must supply base_url
		ModelTypes: []types.ModelType{
			types.ModelTypeKnowledgeQA,
			types.ModelTypeEmbedding,
			types.ModelTypeRerank,
			types.ModelTypeVLLM,
		},
		RequiresAuth: false, // local Ollama servers typically require no key
	}
}

// ValidateConfig validates a generic provider configuration.
func (p *GenericProvider) ValidateConfig(config *Config) error {
	if config.BaseURL == "" {
		return fmt.Errorf("base URL is required for the generic provider")
	}
	if config.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}
