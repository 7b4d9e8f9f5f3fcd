package chat

import (
	"context"
	"fmt"

	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/types"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIChat talks to OpenAI or any OpenAI-compatible remote endpoint
// (a local Ollama server, or any other self-hosted OpenAI-shaped API —
// anything the provider registry resolves to ProviderOpenAI or
// ProviderGeneric).
type OpenAIChat struct {
	client    *openai.Client
	modelName string
	modelID   string
}

// NewOpenAIChat creates an OpenAI-compatible chat client.
func NewOpenAIChat(config *ChatConfig) (*OpenAIChat, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	return &OpenAIChat{
		client:    openai.NewClientWithConfig(cfg),
		modelName: config.ModelName,
		modelID:   config.ModelID,
	}, nil
}

func convertMessagesOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content, Name: m.Name})
	}
	return out
}

// Chat performs a non-streaming completion.
func (c *OpenAIChat) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*types.ChatResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.modelName,
		Messages: convertMessagesOpenAI(messages),
	}
	if opts != nil {
		req.Temperature = opts.Temperature
		req.TopP = opts.TopP
		req.MaxTokens = opts.MaxTokens
	}

	logger.Infof(ctx, "sending chat request to openai-compatible model %s", c.modelName)
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat request returned no choices")
	}

	return &types.ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: types.ChatUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// ChatStream performs a streaming completion.
func (c *OpenAIChat) ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan types.StreamResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.modelName,
		Messages: convertMessagesOpenAI(messages),
		Stream:   true,
	}
	if opts != nil {
		req.Temperature = opts.Temperature
		req.TopP = opts.TopP
		req.MaxTokens = opts.MaxTokens
	}

	logger.Infof(ctx, "sending streaming chat request to openai-compatible model %s", c.modelName)
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai streaming chat request failed: %w", err)
	}

	out := make(chan types.StreamResponse)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				if err.Error() == "EOF" {
					out <- types.StreamResponse{ResponseType: types.ResponseTypeAnswer, Done: true}
					return
				}
				logger.Errorf(ctx, "openai streaming chat request failed: %v", err)
				out <- types.StreamResponse{ResponseType: types.ResponseTypeError, Content: err.Error(), Done: true}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta != "" {
				out <- types.StreamResponse{ResponseType: types.ResponseTypeAnswer, Content: delta}
			}
		}
	}()
	return out, nil
}

// GetModelName returns the configured model name.
func (c *OpenAIChat) GetModelName() string { return c.modelName }

// GetModelID returns the configured model ID.
func (c *OpenAIChat) GetModelID() string { return c.modelID }
