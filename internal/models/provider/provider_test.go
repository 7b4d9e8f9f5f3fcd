package provider

import (
	"testing"

	"github.com/pickeld/lucy/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRegistry(t *testing.T) {
	// Test that all default providers are registered
	t.Run("default providers registered", func(t *testing.T) {
		providers := List()
		assert.NotEmpty(t, providers, "should have registered providers")

		// Check specific providers exist
		for _, name := range []ProviderName{ProviderOpenAI, ProviderAnthropic, ProviderZhipu, ProviderJina, ProviderGeneric} {
			p, ok := Get(name)
			assert.True(t, ok, "provider %s should be registered", name)
			assert.NotNil(t, p, "provider %s should not be nil", name)
		}
	})

	t.Run("GetOrDefault fallback", func(t *testing.T) {
		// Non-existent provider should fall back to generic
		p := GetOrDefault("nonexistent")
		require.NotNil(t, p)
		assert.Equal(t, ProviderGeneric, p.Info().Name)
	})
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		url      string
		expected ProviderName
	}{
		{"https://api.openai.com/v1", ProviderOpenAI},
		{"https://api.anthropic.com/v1", ProviderAnthropic},
		{"https://open.bigmodel.cn/api/paas/v4", ProviderZhipu},
		{"https://api.jina.ai/v1", ProviderJina},
		{"https://custom-endpoint.example.com/v1", ProviderGeneric},
		{"http://localhost:11434/v1", ProviderGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result := DetectProvider(tt.url)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestOpenAIProviderValidation(t *testing.T) {
	p := &OpenAIProvider{}

	t.Run("valid config", func(t *testing.T) {
		config := &Config{
			APIKey:    "sk-test",
			ModelName: "gpt-4",
		}
		err := p.ValidateConfig(config)
		assert.NoError(t, err)
	})

	t.Run("missing API key", func(t *testing.T) {
		config := &Config{
			ModelName: "gpt-4",
		}
		err := p.ValidateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("missing model name", func(t *testing.T) {
		config := &Config{
			APIKey: "sk-test",
		}
		err := p.ValidateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "model name")
	})
}

func TestGenericProviderValidation(t *testing.T) {
	p := &GenericProvider{}

	t.Run("valid config", func(t *testing.T) {
		config := &Config{
			BaseURL:   "http://localhost:11434/v1",
			ModelName: "llama3",
		}
		err := p.ValidateConfig(config)
		assert.NoError(t, err)
	})

	t.Run("missing base URL", func(t *testing.T) {
		config := &Config{
			ModelName: "llama3",
		}
		err := p.ValidateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "base URL")
	})
}

func TestZhipuProviderValidation(t *testing.T) {
	p := &ZhipuProvider{}

	t.Run("valid config", func(t *testing.T) {
		config := &Config{
			APIKey:    "test-key",
			ModelName: "glm-4",
		}
		err := p.ValidateConfig(config)
		assert.NoError(t, err)
	})

	t.Run("info", func(t *testing.T) {
		info := p.Info()
		assert.Equal(t, ProviderZhipu, info.Name)
		assert.Equal(t, ZhipuChatBaseURL, info.GetDefaultURL(types.ModelTypeKnowledgeQA))
		assert.Equal(t, ZhipuEmbeddingBaseURL, info.GetDefaultURL(types.ModelTypeEmbedding))
	})
}

func TestListByModelType(t *testing.T) {
	t.Run("chat models", func(t *testing.T) {
		providers := ListByModelType(types.ModelTypeKnowledgeQA)
		assert.NotEmpty(t, providers)
		// OpenAI, Anthropic, Zhipu, and generic all support chat
		assert.GreaterOrEqual(t, len(providers), 4)
	})

	t.Run("rerank models", func(t *testing.T) {
		providers := ListByModelType(types.ModelTypeRerank)
		assert.NotEmpty(t, providers)
		// Check that Jina supports rerank
		found := false
		for _, p := range providers {
			if p.Name == ProviderJina {
				found = true
				break
			}
		}
		assert.True(t, found, "Jina should support rerank")
	})
}
