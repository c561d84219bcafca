// Package telemetry provides OpenTelemetry tracing, the OTLP log bridge,
// Pyroscope profiling and Prometheus business metrics for the billing engine.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of billing spans
const TracerName = "meterbill-backend"

// Attribute keys for billing spans
const (
	SpanAttrPeriodID      = "period_id"
	SpanAttrPeriodStatus  = "period_status"
	SpanAttrCustomerID    = "customer_id"
	SpanAttrMeterID       = "meter_id"
	SpanAttrReadingID     = "reading_id"
	SpanAttrInvoiceID     = "invoice_id"
	SpanAttrPaymentID     = "payment_id"
	SpanAttrPaymentMethod = "payment_method"
	SpanAttrAmount        = "amount"
	SpanAttrTxType        = "wallet_tx_type"
	SpanAttrAttempt       = "attempt"
)

// StartSpan opens an internal span on the global provider with the given
// key/value attributes. The caller ends it.
func StartSpan(ctx context.Context, name string, keyValues ...any) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs(keyValues)...),
	)
}

// StartServiceSpan names the span "<aggregate>.<operation>", e.g. "payment.record".
func StartServiceSpan(ctx context.Context, aggregate, operation string, keyValues ...any) (context.Context, trace.Span) {
	return StartSpan(ctx, aggregate+"."+operation, keyValues...)
}

// SetAttributes takes alternating keys and values. Non-string keys and a
// trailing key without a value are dropped.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span != nil {
		span.SetAttributes(attrs(keyValues)...)
	}
}

func SetAttribute(span trace.Span, key string, value any) {
	if span != nil {
		span.SetAttributes(attr(key, value))
	}
}

// RecordError marks the span failed with err as its status description
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func AddEvent(span trace.Span, name string, keyValues ...any) {
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(attrs(keyValues)...))
	}
}

// GetTraceID is the hex trace ID of the active span, or ""
func GetTraceID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).TraceID(); id.IsValid() {
		return id.String()
	}
	return ""
}

func GetSpanID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).SpanID(); id.IsValid() {
		return id.String()
	}
	return ""
}

func attrs(keyValues []any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 1; i < len(keyValues); i += 2 {
		if key, ok := keyValues[i-1].(string); ok {
			out = append(out, attr(key, keyValues[i]))
		}
	}
	return out
}

func attr(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	}
	return attribute.String(key, fmt.Sprint(value))
}
