package event

import (
	"context"
	"encoding/json"

	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes every billing event to the log as a structured
// audit record. Money-moving events carry their full JSON payload.
type AuditLogHandler struct {
	logger      *zap.Logger
	withPayload map[string]bool
}

// NewAuditLogHandler creates an audit handler. payloadTypes lists the event
// types whose body is included.
func NewAuditLogHandler(log *zap.Logger, payloadTypes ...string) *AuditLogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	withPayload := make(map[string]bool, len(payloadTypes))
	for _, t := range payloadTypes {
		withPayload[t] = true
	}
	return &AuditLogHandler{
		logger:      logger.ForComponent(log, "billing_audit"),
		withPayload: withPayload,
	}
}

// EventTypes subscribes to every event
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with the request and trace fields of ctx
func (h *AuditLogHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
		zap.String("aggregate_type", evt.AggregateType()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.Time("occurred_at", evt.OccurredAt()),
	}
	if h.withPayload[evt.EventType()] {
		payload, err := json.Marshal(evt)
		if err != nil {
			return err
		}
		fields = append(fields, zap.ByteString("payload", payload))
	}

	logger.WithLogger(ctx, h.logger).Info("billing event", fields...)
	return nil
}
