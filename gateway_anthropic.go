package chatd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

const anthropicProviderName = "anthropic"

// AnthropicGateway implements the ModelGateway interface using
// Anthropic's messages API.
type AnthropicGateway struct {
	client AnthropicClientProvider
	model  anthropic.Model
}

// AnthropicGatewayConfig holds configuration for the Anthropic gateway.
type AnthropicGatewayConfig struct {
	// Client is the AnthropicClientProvider implementation to use
	Client AnthropicClientProvider
	// Model specifies which Anthropic model to use
	Model anthropic.Model
}

// NewAnthropicGateway creates a new Anthropic gateway with the
// specified configuration. If no model is specified, it defaults to
// Claude 3.5 Sonnet.
//
// Example usage:
//
//	client := NewAnthropicClient("your-api-key")
//	gateway := NewAnthropicGateway(AnthropicGatewayConfig{
//	    Client: client,
//	})
func NewAnthropicGateway(config AnthropicGatewayConfig) *AnthropicGateway {
	if config.Model == "" {
		config.Model = anthropic.ModelClaude_3_5_Sonnet_20240620
	}

	return &AnthropicGateway{
		client: config.Client,
		model:  config.Model,
	}
}

// toAnthropicMessages converts the window's role/content pairs into
// Anthropic's message format.
func (g *AnthropicGateway) toAnthropicMessages(messages []PromptMessage) []anthropic.MessageParam {
	converted := make([]anthropic.MessageParam, 0, len(messages))
	for _, message := range messages {
		switch message.Role {
		case RoleAssistant:
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(message.Content)))
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(message.Content)))
		}
	}
	return converted
}

// Reply sends the message window to Anthropic and returns the
// concatenated text blocks of the response. A response without text
// content surfaces as UpstreamError.
func (g *AnthropicGateway) Reply(ctx context.Context, messages []PromptMessage, config ReplyConfig) (ModelReply, error) {
	startTime := time.Now()

	message, err := g.client.CreateMessage(ctx, anthropic.MessageNewParams{
		Model:       anthropic.F(g.model),
		Messages:    anthropic.F(g.toAnthropicMessages(messages)),
		MaxTokens:   anthropic.F(config.maxToken),
		TopP:        anthropic.Float(config.topP),
		Temperature: anthropic.Float(config.temperature),
	})
	if err != nil {
		return ModelReply{}, &UpstreamError{Provider: anthropicProviderName, Err: err}
	}

	var text strings.Builder
	for _, block := range message.Content {
		if textBlock, ok := block.AsUnion().(anthropic.TextBlock); ok {
			text.WriteString(textBlock.Text)
		}
	}

	reply := strings.TrimSpace(text.String())
	if reply == "" {
		return ModelReply{}, &UpstreamError{Provider: anthropicProviderName, Err: errors.New("no text content in response")}
	}

	return ModelReply{
		Text:             reply,
		TotalInputToken:  int(message.Usage.InputTokens),
		TotalOutputToken: int(message.Usage.OutputTokens),
		CompletionTime:   time.Since(startTime).Seconds(),
	}, nil
}
