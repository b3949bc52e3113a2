package chatd

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAnthropicClient implements AnthropicClientProvider for testing.
type MockAnthropicClient struct {
	createMessageFunc func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
	lastParams        anthropic.MessageNewParams
}

func (m *MockAnthropicClient) CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	m.lastParams = params
	if m.createMessageFunc != nil {
		return m.createMessageFunc(ctx, params)
	}
	return nil, errors.New("not implemented")
}

func textMessage(t *testing.T, text string) *anthropic.Message {
	t.Helper()

	message := &anthropic.Message{
		Role:  anthropic.MessageRoleAssistant,
		Model: anthropic.ModelClaude_3_5_Sonnet_20240620,
		Type:  anthropic.MessageTypeMessage,
		Usage: anthropic.Usage{
			InputTokens:  10,
			OutputTokens: 5,
		},
	}

	var block anthropic.ContentBlock
	require.NoError(t, block.UnmarshalJSON([]byte(`{"type": "text", "text": "`+text+`"}`)))
	message.Content = []anthropic.ContentBlock{block}

	return message
}

func TestNewAnthropicGateway_DefaultModel(t *testing.T) {
	gateway := NewAnthropicGateway(AnthropicGatewayConfig{Client: &MockAnthropicClient{}})
	assert.Equal(t, anthropic.ModelClaude_3_5_Sonnet_20240620, gateway.model)
}

func TestAnthropicGateway_Reply(t *testing.T) {
	mockClient := &MockAnthropicClient{
		createMessageFunc: func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
			return textMessage(t, "Test response"), nil
		},
	}

	gateway := NewAnthropicGateway(AnthropicGatewayConfig{Client: mockClient})

	reply, err := gateway.Reply(context.Background(), []PromptMessage{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "how are you?"},
	}, NewReplyConfig(WithMaxToken(512)))

	require.NoError(t, err)
	assert.Equal(t, "Test response", reply.Text)
	assert.Equal(t, 10, reply.TotalInputToken)
	assert.Equal(t, 5, reply.TotalOutputToken)

	assert.Len(t, mockClient.lastParams.Messages.Value, 3)
	assert.Equal(t, int64(512), mockClient.lastParams.MaxTokens.Value)
}

func TestAnthropicGateway_Reply_Failures(t *testing.T) {
	tests := []struct {
		name              string
		createMessageFunc func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
	}{
		{
			name: "API error",
			createMessageFunc: func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
				return nil, errors.New("rate limited")
			},
		},
		{
			name: "no text content in response",
			createMessageFunc: func(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
				return &anthropic.Message{
					Role: anthropic.MessageRoleAssistant,
					Type: anthropic.MessageTypeMessage,
				}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := NewAnthropicGateway(AnthropicGatewayConfig{
				Client: &MockAnthropicClient{createMessageFunc: tt.createMessageFunc},
			})

			_, err := gateway.Reply(context.Background(), []PromptMessage{
				{Role: RoleUser, Content: "hi"},
			}, NewReplyConfig())

			var upstreamErr *UpstreamError
			assert.ErrorAs(t, err, &upstreamErr)
			assert.Equal(t, "anthropic", upstreamErr.Provider)
		})
	}
}
