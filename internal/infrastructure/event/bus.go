// Package event dispatches billing domain events to in-process handlers
// once the originating transaction has committed.
package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Bus is a synchronous in-memory event bus. A failing or panicking handler
// never stops delivery to the remaining handlers.
type Bus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	failures atomic.Int64
}

// NewBus creates an event bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish delivers events in order. It stops early only when ctx is done.
func (b *Bus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, evt := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		telemetry.AddEvent(trace.SpanFromContext(ctx), "domain_event",
			"event.type", evt.EventType(),
			"event.aggregate_id", evt.AggregateID().String(),
		)

		for _, handler := range b.registry.Handlers(evt.EventType()) {
			if err := b.dispatch(ctx, handler, evt); err != nil {
				b.failures.Add(1)
				b.logger.Error("event handler failed",
					zap.String("event_type", evt.EventType()),
					zap.String("event_id", evt.EventID().String()),
					zap.String("aggregate_id", evt.AggregateID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit types the handler's own
// EventTypes are used; an empty list subscribes to everything.
func (b *Bus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("event handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from every event type
func (b *Bus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Failures returns how many handler invocations failed since start
func (b *Bus) Failures() int64 {
	return b.failures.Load()
}

func (b *Bus) dispatch(ctx context.Context, handler shared.EventHandler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, evt)
}

var _ shared.EventBus = (*Bus)(nil)
