package chatd

import (
	"context"
)

// ModelReply carries the text of the first completion choice plus the
// provider's usage counters.
type ModelReply struct {
	Text             string
	TotalInputToken  int
	TotalOutputToken int
	CompletionTime   float64
}

// ModelGateway adapts an ordered message history into a chat-completion
// request against an external model API and extracts the reply text.
// Implementations never retry internally; retry policy belongs to the
// caller.
type ModelGateway interface {
	Reply(ctx context.Context, messages []PromptMessage, config ReplyConfig) (ModelReply, error)
}

// ReplyConfig holds the sampling parameters for one reply request.
type ReplyConfig struct {
	temperature float64
	topP        float64
	maxToken    int64
}

// ReplyOption configures a ReplyConfig.
type ReplyOption func(*ReplyConfig)

// NewReplyConfig builds a config with deterministic-leaning defaults:
// temperature 0.2, topP 1.0, maxToken 1000.
func NewReplyConfig(opts ...ReplyOption) ReplyConfig {
	config := ReplyConfig{
		temperature: 0.2,
		topP:        1.0,
		maxToken:    1000,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return config
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) ReplyOption {
	return func(config *ReplyConfig) {
		config.temperature = temperature
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(topP float64) ReplyOption {
	return func(config *ReplyConfig) {
		config.topP = topP
	}
}

// WithMaxToken sets the completion token budget.
func WithMaxToken(maxToken int64) ReplyOption {
	return func(config *ReplyConfig) {
		config.maxToken = maxToken
	}
}
