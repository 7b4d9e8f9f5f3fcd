package chat

import (
	"fmt"
	"strings"

	"github.com/pickeld/lucy/internal/models/provider"
	"github.com/pickeld/lucy/internal/types"
)

// NewChat builds a chat client for config, routing remote configs
// through the provider registry (explicit or base-URL-detected) and
// local configs to Ollama. There is no DI container in the loop: the
// caller passes everything the constructor needs directly.
func NewChat(config ChatConfig) (Chat, error) {
	switch config.Source {
	case types.ModelSourceLocal:
		return NewOllamaChat(&config)
	case types.ModelSourceRemote:
		providerName := provider.DetectProvider(config.BaseURL)
		switch providerName {
		case provider.ProviderAnthropic:
			return NewAnthropicChat(&config)
		default:
			return NewOpenAIChat(&config)
		}
	default:
		return nil, fmt.Errorf("unsupported model source: %s", config.Source)
	}
}

// NewChatForProvider builds a chat client for a caller-pinned provider
// name rather than one detected from the base URL, used when the
// settings store carries an explicit provider selection instead of a
// bare base URL to sniff.
func NewChatForProvider(name provider.ProviderName, config ChatConfig) (Chat, error) {
	switch name {
	case provider.ProviderAnthropic:
		return NewAnthropicChat(&config)
	case provider.ProviderGeneric, "":
		return NewOpenAIChat(&config)
	default:
		info, ok := provider.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown provider: %s", name)
		}
		if config.BaseURL == "" {
			config.BaseURL = info.GetDefaultURL(types.ModelTypeKnowledgeQA)
		}
		if strings.EqualFold(string(name), string(provider.ProviderAnthropic)) {
			return NewAnthropicChat(&config)
		}
		return NewOpenAIChat(&config)
	}
}
