package types

import "time"

// ModelType identifies what a configured model is used for.
type ModelType string

const (
	// ModelTypeKnowledgeQA is a chat-completion model used for query
	// condensation and grounded answer synthesis (C8).
	ModelTypeKnowledgeQA ModelType = "knowledge_qa"
	// ModelTypeEmbedding is a dense-embedding model used during
	// ingestion (C5) and retrieval (C8).
	ModelTypeEmbedding ModelType = "embedding"
	// ModelTypeRerank is a cross-encoder reranker used by C8 step 6.
	ModelTypeRerank ModelType = "rerank"
	// ModelTypeVLLM is a vision-capable chat model, used for image
	// captioning of media chunks during ingestion.
	ModelTypeVLLM ModelType = "vllm"
)

// ModelSource distinguishes locally-hosted models (Ollama) from
// remote API providers.
type ModelSource string

const (
	ModelSourceLocal  ModelSource = "local"
	ModelSourceRemote ModelSource = "remote"
)

// ChatResponse is the normalized result of a non-streaming chat call.
type ChatResponse struct {
	Content   string        `json:"content"`
	ToolCalls []LLMToolCall `json:"tool_calls,omitempty"`
	Usage     ChatUsage     `json:"usage"`
}

// ChatUsage carries token accounting returned by (or estimated for) a
// chat completion call; consumed directly by the cost meter (C2).
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ResponseType tags a chunk of a streamed chat response.
type ResponseType string

const (
	ResponseTypeAnswer   ResponseType = "answer"
	ResponseTypeToolCall ResponseType = "tool_call"
	ResponseTypeError    ResponseType = "error"
)

// StreamResponse is one frame of a streamed chat response.
type StreamResponse struct {
	ResponseType ResponseType  `json:"response_type"`
	Content      string        `json:"content,omitempty"`
	ToolCalls    []LLMToolCall `json:"tool_calls,omitempty"`
	Done         bool          `json:"done"`
}

// LLMToolCall is a normalized tool-call emitted by a chat model.
type LLMToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function a tool call invokes and its raw
// JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// EmbeddingParameters holds the embedding-specific knobs a model
// config carries in addition to its vendor credentials.
type EmbeddingParameters struct {
	Dimensions int `json:"dimensions,omitempty"`
}

// ModelParameters is the vendor-agnostic connection/behavior config
// for one Model row. Lucy is single-tenant (spec explicitly excludes
// multi-tenant isolation), so unlike the keyed-by-tenant config this
// is modeled on, there's exactly one active set of credentials per
// model type at a time.
type ModelParameters struct {
	Provider             string              `json:"provider,omitempty"`
	BaseURL              string              `json:"base_url,omitempty"`
	APIKey               string              `json:"api_key,omitempty"`
	TruncatePromptTokens int                 `json:"truncate_prompt_tokens,omitempty"`
	ParameterSize        string              `json:"parameter_size,omitempty"`
	EmbeddingParameters  EmbeddingParameters `json:"embedding_parameters,omitempty"`
}

// Model describes the configuration of one chat/embedding/rerank/vllm
// model: which vendor to call and with what credentials. No table is
// migrated for it and no handler serves it; the running service takes
// its model choices from the chat.*/embedding.* settings keys.
type Model struct {
	ID          string          `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name"`
	Type        ModelType       `json:"type"`
	Source      ModelSource     `json:"source"`
	Description string          `json:"description"`
	Parameters  ModelParameters `json:"parameters" gorm:"serializer:json"`
	IsBuiltin   bool            `json:"is_builtin"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName pins the GORM table name explicitly.
func (Model) TableName() string { return "models" }
