package chatd

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shaharia-lab/chatd/observability"
)

// TracingModelGateway implements the decorator pattern for tracing any
// ModelGateway.
type TracingModelGateway struct {
	gateway ModelGateway
}

// NewTracingModelGateway creates a new tracing decorator for the given
// gateway.
func NewTracingModelGateway(gateway ModelGateway) *TracingModelGateway {
	return &TracingModelGateway{
		gateway: gateway,
	}
}

// Reply implements the ModelGateway interface with added tracing.
func (t *TracingModelGateway) Reply(ctx context.Context, messages []PromptMessage, config ReplyConfig) (ModelReply, error) {
	ctx, span := observability.StartSpan(ctx, "ModelGateway.Reply")
	defer span.End()

	reply, err := t.gateway.Reply(ctx, messages, config)
	if err != nil {
		span.RecordError(err)
		return ModelReply{}, err
	}

	span.SetAttributes(
		attribute.Int("total_input_token", reply.TotalInputToken),
		attribute.Int("total_output_token", reply.TotalOutputToken),
		attribute.Int("message_count", len(messages)),
		attribute.Float64("completion_time", reply.CompletionTime),
		attribute.Float64("temperature", config.temperature),
		attribute.Float64("top_p", config.topP),
		attribute.Int64("max_token", config.maxToken),
	)

	return reply, nil
}
