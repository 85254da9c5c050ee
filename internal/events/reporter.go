// Package events delivers the lifecycle engine's domain events to
// registered consumers. Delivery is fire-and-forget: a failing consumer is
// logged and never blocks the operation that produced the event.
package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/qboard/qboard/internal/engine"
)

// Consumer receives every reported event.
type Consumer interface {
	Consume(ctx context.Context, event string, actor engine.Actor, params map[string]any) error
}

// Bus implements the engine's event reporter over a fixed set of consumers
// registered at startup.
type Bus struct {
	consumers []Consumer
	logger    *zap.Logger
}

// NewBus creates an event bus.
func NewBus(logger *zap.Logger, consumers ...Consumer) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{consumers: consumers, logger: logger}
}

// Report delivers one event to every consumer in registration order.
func (b *Bus) Report(ctx context.Context, event string, actor engine.Actor, params map[string]any) {
	b.logger.Debug("[EVENT] reported",
		zap.String("event", event),
		zap.Any("user_id", actor.UserID),
		zap.String("handle", actor.Handle))
	for _, c := range b.consumers {
		if err := c.Consume(ctx, event, actor, params); err != nil {
			b.logger.Warn("[EVENT] consumer failed",
				zap.String("event", event), zap.Error(err))
		}
	}
}
