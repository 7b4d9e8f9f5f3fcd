// Package costmeter implements the cost ledger and static pricing
// table (spec component C2): one process-wide meter observes every
// chat/embed/whisper/image call, prices it, and appends the resulting
// event to a bounded in-memory buffer plus durable storage.
package costmeter

import "strings"

// Kind is the category of billable LLM call.
type Kind string

const (
	KindChat    Kind = "chat"
	KindEmbed   Kind = "embed"
	KindWhisper Kind = "whisper"
	KindImage   Kind = "image"
	KindRerank  Kind = "rerank"
)

// price holds the per-unit USD rates for one provider:model pricing key.
// Only the fields relevant to the model's Kind are populated.
type price struct {
	inPer1K     float64
	outPer1K    float64
	embedPer1K  float64
	perMinute   float64
	perImage    float64
	rerankPerDoc float64
}

// pricingTable maps "provider:model" to its price entry. Verified
// against provider pricing pages as of 2025-01-15; update here when
// providers change rates, nowhere else.
var pricingTable = map[string]price{
	"openai:gpt-4o":          {inPer1K: 0.0025, outPer1K: 0.010},
	"openai:gpt-4o-mini":     {inPer1K: 0.00015, outPer1K: 0.0006},
	"openai:gpt-4-turbo":     {inPer1K: 0.01, outPer1K: 0.03},
	"openai:gpt-4":           {inPer1K: 0.03, outPer1K: 0.06},
	"openai:gpt-3.5-turbo":   {inPer1K: 0.0005, outPer1K: 0.0015},
	"openai:o1":              {inPer1K: 0.015, outPer1K: 0.06},
	"openai:o1-mini":         {inPer1K: 0.003, outPer1K: 0.012},
	"openai:o3-mini":         {inPer1K: 0.0011, outPer1K: 0.0044},

	"openai:text-embedding-3-small": {embedPer1K: 0.00002},
	"openai:text-embedding-3-large": {embedPer1K: 0.00013},
	"openai:text-embedding-ada-002": {embedPer1K: 0.0001},

	"openai:whisper-1": {perMinute: 0.006},

	"openai:dall-e-3": {perImage: 0.040},
	"openai:dall-e-2": {perImage: 0.020},

	"anthropic:claude-3-5-sonnet": {inPer1K: 0.003, outPer1K: 0.015},
	"anthropic:claude-3-5-haiku":  {inPer1K: 0.0008, outPer1K: 0.004},
	"anthropic:claude-3-opus":     {inPer1K: 0.015, outPer1K: 0.075},

	"gemini:gemini-pro":             {inPer1K: 0.00125, outPer1K: 0.005},
	"gemini:gemini-1.5-flash":       {inPer1K: 0.000075, outPer1K: 0.0003},
	"gemini:gemini-1.5-pro":         {inPer1K: 0.00125, outPer1K: 0.005},
	"gemini:gemini-2.0-flash":       {inPer1K: 0.0001, outPer1K: 0.0004},
	"gemini:gemini-2.0-flash-lite":  {inPer1K: 0.000075, outPer1K: 0.0003},
	"gemini:text-embedding-004":     {embedPer1K: 0.00002},

	// Locally hosted ollama models incur no per-token API cost.
	"ollama:*": {},

	"jina:jina-reranker-v2-base-multilingual": {rerankPerDoc: 0.00002},
	"zhipu:rerank":                            {rerankPerDoc: 0.00002},
}

// aliases maps date-suffixed or namespaced model names to the
// canonical pricing-table model name (provider-qualification happens
// in resolveModelKey, not here).
var aliases = map[string]string{
	"gpt-4o-2024-11-20":      "gpt-4o",
	"gpt-4o-2024-08-06":      "gpt-4o",
	"gpt-4o-2024-05-13":      "gpt-4o",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt-4-turbo-2024-04-09": "gpt-4-turbo",
	"gpt-4-turbo-preview":    "gpt-4-turbo",
	"gpt-4-1106-preview":     "gpt-4-turbo",
	"gpt-3.5-turbo-0125":     "gpt-3.5-turbo",
	"gpt-3.5-turbo-1106":     "gpt-3.5-turbo",
	"models/gemini-pro":          "gemini-pro",
	"models/gemini-1.5-flash":    "gemini-1.5-flash",
	"models/gemini-1.5-pro":      "gemini-1.5-pro",
	"models/gemini-2.0-flash":    "gemini-2.0-flash",
	"claude-3-5-sonnet-20241022": "claude-3-5-sonnet",
	"claude-3-5-sonnet-20240620": "claude-3-5-sonnet",
	"claude-3-5-haiku-20241022":  "claude-3-5-haiku",
	"claude-3-opus-20240229":     "claude-3-opus",
}

// resolveModelKey resolves a provider + model name to a pricing-table
// key, handling date-suffixed and "models/"-prefixed variants. It
// always returns a best-effort key even when nothing matches, so
// callers look it up once and treat a miss as zero cost rather than
// erroring.
func resolveModelKey(provider, modelName string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	model := strings.TrimSpace(modelName)

	key := provider + ":" + model
	if _, ok := pricingTable[key]; ok {
		return key
	}

	canonical, ok := aliases[model]
	if !ok {
		canonical = model
	}
	key = provider + ":" + canonical
	if _, ok := pricingTable[key]; ok {
		return key
	}

	if stripped, found := strings.CutPrefix(model, "models/"); found {
		key = provider + ":" + stripped
		if _, ok := pricingTable[key]; ok {
			return key
		}
	}

	return provider + ":" + model
}

func chatCost(key string, inTokens, outTokens int) float64 {
	p, ok := pricingTable[key]
	if !ok {
		return 0
	}
	return float64(inTokens)/1000*p.inPer1K + float64(outTokens)/1000*p.outPer1K
}

func embedCost(key string, tokens int) float64 {
	p, ok := pricingTable[key]
	if !ok {
		return 0
	}
	return float64(tokens) / 1000 * p.embedPer1K
}

func whisperCost(key string, durationSeconds float64) float64 {
	p, ok := pricingTable[key]
	if !ok {
		return 0
	}
	return durationSeconds / 60 * p.perMinute
}

func imageCost(key string, count int) float64 {
	p, ok := pricingTable[key]
	if !ok {
		return 0
	}
	return float64(count) * p.perImage
}

func rerankCost(key string, docCount int) float64 {
	p, ok := pricingTable[key]
	if !ok {
		return 0
	}
	return float64(docCount) * p.rerankPerDoc
}
