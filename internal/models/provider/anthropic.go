package provider

import (
	"fmt"

	"github.com/pickeld/lucy/internal/types"
)

const (
	// AnthropicBaseURL is Anthropic's native Messages API endpoint.
	AnthropicBaseURL = "https://api.anthropic.com/v1"
)

// AnthropicProvider implements the Provider interface for Anthropic's
// Claude models, used by the retrieval engine (C8) as an alternative
// synthesis/condense model alongside the OpenAI-compatible providers.
type AnthropicProvider struct{}

func init() {
	Register(&AnthropicProvider{})
}

// Info returns the Anthropic provider's metadata.
func (p *AnthropicProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:        ProviderAnthropic,
		DisplayName: "Anthropic",
		Description: "claude-opus-4, claude-sonnet-4, claude-haiku, etc.",
		DefaultURLs: map[types.ModelType]string{
			types.ModelTypeKnowledgeQA: AnthropicBaseURL,
		},
		ModelTypes: []types.ModelType{
			types.ModelTypeKnowledgeQA,
		},
		RequiresAuth: true,
	}
}

// ValidateConfig validates an Anthropic provider configuration.
func (p *AnthropicProvider) ValidateConfig(config *Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("API key is required for Anthropic provider")
	}
	if config.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}
