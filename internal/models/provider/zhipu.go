package provider

import (
	"fmt"

	"github.com/pickeld/lucy/internal/types"
)

const (
	// ZhipuChatBaseURL 智谱 GLM Chat 的默认 BaseURL
	ZhipuChatBaseURL = "https://open.bigmodel.cn/api/paas/v4"
	// ZhipuEmbeddingBaseURL 智谱 GLM Embedding 的默认 BaseURL
	ZhipuEmbeddingBaseURL = "https://open.bigmodel.cn/api/paas/v4/embeddings"
)

// ZhipuProvider implements the Provider interface for Zhipu AI (GLM).
type ZhipuProvider struct{}

func init() {
	Register(&ZhipuProvider{})
}

// Info returns the Zhipu provider's metadata.
func (p *ZhipuProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:        ProviderZhipu,
		DisplayName: "智谱 AI (GLM)",
		Description: "glm-4, glm-4-plus, embedding-3, rerank, etc.",
		DefaultURLs: map[types.ModelType]string{
			types.ModelTypeKnowledgeQA: ZhipuChatBaseURL,
			types.ModelTypeEmbedding:   ZhipuEmbeddingBaseURL,
			types.ModelTypeRerank:      ZhipuChatBaseURL,
		},
		ModelTypes: []types.ModelType{
			types.ModelTypeKnowledgeQA,
			types.ModelTypeEmbedding,
			types.ModelTypeRerank,
		},
		RequiresAuth: true,
	}
}

// ValidateConfig validates a Zhipu provider configuration.
func (p *ZhipuProvider) ValidateConfig(config *Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("API key is required for Zhipu AI provider")
	}
	if config.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}
