package chatd

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
)

const openAIProviderName = "openai"

// DefaultOpenAIModel is the completion model used when none is
// configured.
const DefaultOpenAIModel = "gpt-4.1-mini"

// OpenAIGateway implements the ModelGateway interface using OpenAI's
// chat completion API.
type OpenAIGateway struct {
	client OpenAIClientProvider
	model  string
}

// OpenAIGatewayConfig holds configuration for the OpenAI gateway.
type OpenAIGatewayConfig struct {
	// Client is the OpenAIClientProvider implementation to use
	Client OpenAIClientProvider
	// Model specifies which OpenAI model to use
	Model string
}

// NewOpenAIGateway creates a new OpenAI gateway with the specified
// configuration.
//
// Example usage:
//
//	client := NewOpenAIClient("your-api-key")
//	gateway := NewOpenAIGateway(OpenAIGatewayConfig{
//	    Client: client,
//	    Model:  "gpt-4.1-mini",
//	})
func NewOpenAIGateway(config OpenAIGatewayConfig) *OpenAIGateway {
	if config.Model == "" {
		config.Model = DefaultOpenAIModel
	}

	return &OpenAIGateway{
		client: config.Client,
		model:  config.Model,
	}
}

// toOpenAIMessages converts the window's role/content pairs into
// OpenAI's message format.
func (g *OpenAIGateway) toOpenAIMessages(messages []PromptMessage) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, message := range messages {
		switch message.Role {
		case RoleAssistant:
			converted = append(converted, openai.AssistantMessage(message.Content))
		default:
			converted = append(converted, openai.UserMessage(message.Content))
		}
	}
	return converted
}

// Reply sends the message window to OpenAI and returns the text of the
// first completion choice. Network failures, non-success responses and
// response bodies without choices all surface as UpstreamError.
func (g *OpenAIGateway) Reply(ctx context.Context, messages []PromptMessage, config ReplyConfig) (ModelReply, error) {
	startTime := time.Now()

	completion, err := g.client.CreateCompletion(ctx, openai.ChatCompletionNewParams{
		Messages:    openai.F(g.toOpenAIMessages(messages)),
		Model:       openai.F(g.model),
		MaxTokens:   openai.Int(config.maxToken),
		TopP:        openai.Float(config.topP),
		Temperature: openai.Float(config.temperature),
	})
	if err != nil {
		return ModelReply{}, &UpstreamError{Provider: openAIProviderName, Err: err}
	}

	if len(completion.Choices) == 0 {
		return ModelReply{}, &UpstreamError{Provider: openAIProviderName, Err: errors.New("no choices in response")}
	}

	return ModelReply{
		Text:             completion.Choices[0].Message.Content,
		TotalInputToken:  int(completion.Usage.PromptTokens),
		TotalOutputToken: int(completion.Usage.CompletionTokens),
		CompletionTime:   time.Since(startTime).Seconds(),
	}, nil
}
