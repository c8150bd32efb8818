package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/service/channel"
)

// Channel 为推送渠道实现添加链路追踪的装饰器
type Channel struct {
	channel channel.PushChannel
	name    string
	tracer  trace.Tracer
}

// NewChannel 创建一个新的带有链路追踪的推送渠道
func NewChannel(name string, ch channel.PushChannel) *Channel {
	return &Channel{
		channel: ch,
		name:    name,
		tracer:  otel.Tracer("fastfast-common/channel"),
	}
}

func (c *Channel) Send(ctx context.Context, messages []channel.TokenMessage) ([]domain.DispatchResult, error) {
	ctx, span := c.tracer.Start(ctx, "PushChannel.Send",
		trace.WithAttributes(
			attribute.String("channel.name", c.name),
			attribute.Int("channel.tokens", len(messages)),
		))
	defer span.End()

	results, err := c.channel.Send(ctx, messages)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		failed := 0
		for _, result := range results {
			if result.Status == domain.DispatchFailed {
				failed++
			}
		}
		span.SetAttributes(attribute.Int("channel.failed", failed))
	}

	return results, err
}
