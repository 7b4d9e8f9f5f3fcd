// Package rerank provides the cross-encoder reranking step retrieval
// (C8 step 6) runs over dense+sparse candidates before prompt assembly.
package rerank

import (
	"context"
	"fmt"

	"github.com/pickeld/lucy/internal/models/provider"
)

// DocumentInfo carries the reranked document text back alongside its
// score, mirroring what each vendor's "return_documents" option hands
// back.
type DocumentInfo struct {
	Text string `json:"text"`
}

// RankResult is one reranked candidate, normalized across vendors.
type RankResult struct {
	Index          int          `json:"index"`
	Document       DocumentInfo `json:"document"`
	RelevanceScore float64      `json:"relevance_score"`
}

// RerankerConfig configures a vendor client constructor.
type RerankerConfig struct {
	APIKey    string
	BaseURL   string
	ModelName string
	ModelID   string
}

// Reranker is implemented by every vendor rerank client.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RankResult, error)
	GetModelName() string
	GetModelID() string
}

// NewReranker constructs a reranker for the named provider. Only Jina
// and Zhipu ship hand-rolled rerank clients; any other provider name
// (including the generic OpenAI-compatible one, which has no
// standardized rerank endpoint) falls back to Jina's request shape,
// which is the more widely copied de-facto rerank API.
func NewReranker(name provider.ProviderName, config *RerankerConfig) (Reranker, error) {
	switch name {
	case provider.ProviderZhipu:
		return NewZhipuReranker(config)
	case provider.ProviderJina:
		return NewJinaReranker(config)
	case "":
		return nil, fmt.Errorf("rerank provider not configured")
	default:
		return NewJinaReranker(config)
	}
}
