package chat

import (
	"context"
	"fmt"

	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/types"
	anthropicSDK "github.com/anthropics/anthropic-sdk-go"
	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicChat talks to Anthropic's native Messages API, the second
// chat provider alongside the OpenAI-compatible family.
type AnthropicChat struct {
	client    anthropicSDK.Client
	modelName string
	modelID   string
}

// NewAnthropicChat creates an Anthropic chat client.
func NewAnthropicChat(config *ChatConfig) (*AnthropicChat, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	opts := []anthropicOption.RequestOption{anthropicOption.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, anthropicOption.WithBaseURL(config.BaseURL))
	}
	return &AnthropicChat{
		client:    anthropicSDK.NewClient(opts...),
		modelName: config.ModelName,
		modelID:   config.ModelID,
	}, nil
}

func (c *AnthropicChat) buildParams(messages []Message, opts *ChatOptions) anthropicSDK.MessageNewParams {
	var system string
	converted := make([]anthropicSDK.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system += m.Content + "\n"
			continue
		}
		block := anthropicSDK.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			converted = append(converted, anthropicSDK.NewAssistantMessage(block))
		} else {
			converted = append(converted, anthropicSDK.NewUserMessage(block))
		}
	}

	maxTokens := int64(defaultAnthropicMaxTokens)
	if opts != nil && opts.MaxTokens > 0 {
		maxTokens = int64(opts.MaxTokens)
	}

	params := anthropicSDK.MessageNewParams{
		Model:     anthropicSDK.Model(c.modelName),
		MaxTokens: maxTokens,
		Messages:  converted,
	}
	if system != "" {
		params.System = []anthropicSDK.TextBlockParam{{Text: system}}
	}
	if opts != nil && opts.Temperature > 0 {
		params.Temperature = anthropicSDK.Float(float64(opts.Temperature))
	}
	if opts != nil && opts.TopP > 0 {
		params.TopP = anthropicSDK.Float(float64(opts.TopP))
	}
	return params
}

// Chat performs a non-streaming completion.
func (c *AnthropicChat) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*types.ChatResponse, error) {
	params := c.buildParams(messages, opts)

	logger.Infof(ctx, "sending chat request to anthropic model %s", c.modelName)
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic chat request failed: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &types.ChatResponse{
		Content: content,
		Usage: types.ChatUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// ChatStream performs a streaming completion.
func (c *AnthropicChat) ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan types.StreamResponse, error) {
	params := c.buildParams(messages, opts)

	logger.Infof(ctx, "sending streaming chat request to anthropic model %s", c.modelName)
	stream := c.client.Messages.NewStreaming(ctx, params)

	out := make(chan types.StreamResponse)
	go func() {
		defer close(out)
		for stream.Next() {
			event := stream.Current()
			if delta, ok := event.AsAny().(anthropicSDK.ContentBlockDeltaEvent); ok {
				if text := delta.Delta.Text; text != "" {
					out <- types.StreamResponse{ResponseType: types.ResponseTypeAnswer, Content: text}
				}
			}
		}
		if err := stream.Err(); err != nil {
			logger.Errorf(ctx, "anthropic streaming chat request failed: %v", err)
			out <- types.StreamResponse{ResponseType: types.ResponseTypeError, Content: err.Error(), Done: true}
			return
		}
		out <- types.StreamResponse{ResponseType: types.ResponseTypeAnswer, Done: true}
	}()
	return out, nil
}

// GetModelName returns the configured model name.
func (c *AnthropicChat) GetModelName() string { return c.modelName }

// GetModelID returns the configured model ID.
func (c *AnthropicChat) GetModelID() string { return c.modelID }
