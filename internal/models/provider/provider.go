// Package provider holds a small compile-time registry of LLM/embedding/
// rerank vendors. Each vendor file registers itself via an init() side
// effect (Register), the same compile-time-registration pattern spec.md
// §9 calls for in the channel plugin framework.
package provider

import (
	"sort"
	"strings"

	"github.com/pickeld/lucy/internal/types"
)

// ProviderName identifies a registered vendor.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderZhipu     ProviderName = "zhipu"
	ProviderJina      ProviderName = "jina"
	ProviderGeneric   ProviderName = "generic"
)

// Config is the vendor-agnostic configuration a Provider validates
// before a chat/embedding/rerank client is constructed from it.
type Config struct {
	APIKey               string
	BaseURL              string
	ModelName            string
	ModelID              string
	Dimensions           int
	TruncatePromptTokens int
}

// ProviderInfo describes a vendor: its default endpoints per model
// type and whether it requires an API key.
type ProviderInfo struct {
	Name         ProviderName
	DisplayName  string
	Description  string
	DefaultURLs  map[types.ModelType]string
	ModelTypes   []types.ModelType
	RequiresAuth bool
}

// GetDefaultURL returns the vendor's default base URL for a model
// type, or "" if the vendor has none configured for it.
func (i ProviderInfo) GetDefaultURL(mt types.ModelType) string {
	return i.DefaultURLs[mt]
}

// Supports reports whether the vendor exposes the given model type.
func (i ProviderInfo) Supports(mt types.ModelType) bool {
	for _, t := range i.ModelTypes {
		if t == mt {
			return true
		}
	}
	return false
}

// Provider is implemented by every vendor package file in this
// directory and registered via init().
type Provider interface {
	Info() ProviderInfo
	ValidateConfig(config *Config) error
}

var registry = map[ProviderName]Provider{}

// Register adds a provider to the compile-time registry. Called from
// each vendor file's init().
func Register(p Provider) {
	registry[p.Info().Name] = p
}

// Get looks up a provider by name.
func Get(name ProviderName) (Provider, bool) {
	p, ok := registry[name]
	return p, ok
}

// GetOrDefault looks up a provider by name, falling back to the
// generic OpenAI-compatible provider when the name is unknown.
func GetOrDefault(name ProviderName) Provider {
	if p, ok := registry[name]; ok {
		return p
	}
	return registry[ProviderGeneric]
}

// List returns every registered provider's info, sorted by name for
// stable output (e.g. settings UI dropdowns).
func List() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(registry))
	for _, p := range registry {
		out = append(out, p.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListByModelType returns the providers that support a given model
// type (e.g. all rerank-capable vendors).
func ListByModelType(mt types.ModelType) []ProviderInfo {
	out := make([]ProviderInfo, 0)
	for _, info := range List() {
		if info.Supports(mt) {
			out = append(out, info)
		}
	}
	return out
}

// urlSignatures maps a distinctive base-URL substring to the vendor
// it identifies, checked in order by DetectProvider.
var urlSignatures = []struct {
	substr string
	name   ProviderName
}{
	{"bigmodel.cn", ProviderZhipu},
	{"api.openai.com", ProviderOpenAI},
	{"api.anthropic.com", ProviderAnthropic},
	{"api.jina.ai", ProviderJina},
}

// DetectProvider guesses a vendor from a configured base URL, used
// when the caller hasn't pinned an explicit provider name. Falls back
// to ProviderGeneric (OpenAI-compatible) for anything unrecognized,
// including local endpoints like Ollama.
func DetectProvider(baseURL string) ProviderName {
	lower := strings.ToLower(baseURL)
	for _, sig := range urlSignatures {
		if strings.Contains(lower, sig.substr) {
			return sig.name
		}
	}
	return ProviderGeneric
}
