package chatd

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClientProvider defines the message call used by
// AnthropicGateway. The indirection lets tests substitute the client.
type AnthropicClientProvider interface {
	// CreateMessage creates a new message using Anthropic's API.
	CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// AnthropicClient implements the AnthropicClientProvider interface
// using Anthropic's official SDK.
type AnthropicClient struct {
	messages *anthropic.MessageService
}

// NewAnthropicClient creates a new AnthropicClient with the provided
// API key.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		messages: client.Messages,
	}
}

// CreateMessage implements the AnthropicClientProvider interface using
// the Anthropic client.
func (c *AnthropicClient) CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.messages.New(ctx, params)
}
