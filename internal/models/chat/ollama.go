package chat

import (
	"context"
	"fmt"

	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/types"
	ollamaapi "github.com/ollama/ollama/api"
)

// OllamaChat talks to a locally-hosted Ollama instance. Lucy's C8
// pipeline never asks a model to call tools, so this client only
// carries the plain chat/stream shape, unlike a general-purpose
// agent's chat client.
type OllamaChat struct {
	modelName string
	modelID   string
	client    *ollamaapi.Client
}

// NewOllamaChat creates an Ollama chat client against baseURL.
func NewOllamaChat(config *ChatConfig) (*OllamaChat, error) {
	client, err := ollamaClientFor(config.BaseURL)
	if err != nil {
		return nil, err
	}
	return &OllamaChat{
		modelName: config.ModelName,
		modelID:   config.ModelID,
		client:    client,
	}, nil
}

func (c *OllamaChat) buildChatRequest(messages []Message, opts *ChatOptions, isStream bool) *ollamaapi.ChatRequest {
	stream := isStream
	req := &ollamaapi.ChatRequest{
		Model:    c.modelName,
		Messages: convertMessages(messages),
		Stream:   &stream,
		Options:  make(map[string]interface{}),
	}
	if opts != nil {
		if opts.Temperature > 0 {
			req.Options["temperature"] = opts.Temperature
		}
		if opts.TopP > 0 {
			req.Options["top_p"] = opts.TopP
		}
		if opts.MaxTokens > 0 {
			req.Options["num_predict"] = opts.MaxTokens
		}
	}
	return req
}

func convertMessages(messages []Message) []ollamaapi.Message {
	out := make([]ollamaapi.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, ollamaapi.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// Chat performs a non-streaming completion.
func (c *OllamaChat) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*types.ChatResponse, error) {
	req := c.buildChatRequest(messages, opts, false)
	logger.Infof(ctx, "sending chat request to ollama model %s", c.modelName)

	var content string
	var promptTokens, completionTokens int
	err := c.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
		content = resp.Message.Content
		if resp.EvalCount > 0 {
			promptTokens = resp.PromptEvalCount
			completionTokens = resp.EvalCount - promptTokens
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat request failed: %w", err)
	}

	return &types.ChatResponse{
		Content: content,
		Usage: types.ChatUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}

// ChatStream performs a streaming completion.
func (c *OllamaChat) ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan types.StreamResponse, error) {
	req := c.buildChatRequest(messages, opts, true)
	logger.Infof(ctx, "sending streaming chat request to ollama model %s", c.modelName)

	streamChan := make(chan types.StreamResponse)
	go func() {
		defer close(streamChan)
		err := c.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
			if resp.Message.Content != "" {
				streamChan <- types.StreamResponse{ResponseType: types.ResponseTypeAnswer, Content: resp.Message.Content}
			}
			if resp.Done {
				streamChan <- types.StreamResponse{ResponseType: types.ResponseTypeAnswer, Done: true}
			}
			return nil
		})
		if err != nil {
			logger.Errorf(ctx, "ollama streaming chat request failed: %v", err)
			streamChan <- types.StreamResponse{ResponseType: types.ResponseTypeError, Content: err.Error(), Done: true}
		}
	}()
	return streamChan, nil
}

// GetModelName returns the configured model name.
func (c *OllamaChat) GetModelName() string { return c.modelName }

// GetModelID returns the configured model ID.
func (c *OllamaChat) GetModelID() string { return c.modelID }
