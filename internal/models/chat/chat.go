// Package chat provides a vendor-neutral chat-completion interface
// used by the retrieval engine (C8) for query condensation and answer
// synthesis.
package chat

import (
	"context"
	"encoding/json"

	"github.com/pickeld/lucy/internal/types"
)

// Message is one turn in a chat-completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Name identifies the tool a "tool" role message is a result for.
	Name      string     `json:"name,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ChatOptions tunes a single completion request.
type ChatOptions struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
	Thinking    *bool
	Format      json.RawMessage
	Tools       []Tool
}

// Tool describes a callable function a model may invoke.
type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef is a tool's JSON-schema signature.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is a model-requested invocation of a Tool.
type ToolCall struct {
	ID       string              `json:"id"`
	Function ToolCallFunctionArg `json:"function"`
}

// ToolCallFunctionArg names the function a ToolCall invokes and its
// raw JSON arguments.
type ToolCallFunctionArg struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatConfig configures a vendor client constructor.
type ChatConfig struct {
	Source    types.ModelSource
	BaseURL   string
	APIKey    string
	ModelName string
	ModelID   string
}

// Chat is implemented by every vendor chat client (Ollama, OpenAI,
// Anthropic and OpenAI-compatible providers routed through Generic).
type Chat interface {
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*types.ChatResponse, error)
	ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan types.StreamResponse, error)
	GetModelName() string
	GetModelID() string
}
