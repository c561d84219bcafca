package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

// Values a request carries for log correlation. Each is also the zap field name.
const (
	RequestIDKey  contextKey = "request_id"
	CustomerIDKey contextKey = "customer_id"
	PeriodIDKey   contextKey = "period_id"

	loggerKey contextKey = "logger"
)

var correlationKeys = []contextKey{RequestIDKey, CustomerIDKey, PeriodIDKey}

func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored by WithContext, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores id in ctx and returns a logger carrying it, which is
// also stored in the returned context.
func WithRequestID(ctx context.Context, l *zap.Logger, id string) (context.Context, *zap.Logger) {
	return scoped(ctx, l, RequestIDKey, id)
}

func WithCustomerID(ctx context.Context, l *zap.Logger, id string) (context.Context, *zap.Logger) {
	return scoped(ctx, l, CustomerIDKey, id)
}

func WithPeriodID(ctx context.Context, l *zap.Logger, id string) (context.Context, *zap.Logger) {
	return scoped(ctx, l, PeriodIDKey, id)
}

func scoped(ctx context.Context, l *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	l = l.With(zap.String(string(key), value))
	return WithContext(context.WithValue(ctx, key, value), l), l
}

func GetRequestID(ctx context.Context) string  { return valueOf(ctx, RequestIDKey) }
func GetCustomerID(ctx context.Context) string { return valueOf(ctx, CustomerIDKey) }
func GetPeriodID(ctx context.Context) string   { return valueOf(ctx, PeriodIDKey) }

func valueOf(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// WithTraceContext adds trace_id and span_id of the active span. Without a
// valid span l is returned as is.
func WithTraceContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(zap.Stringer("trace_id", sc.TraceID()), zap.Stringer("span_id", sc.SpanID()))
}

// ContextLogger resolves trace and correlation fields from its context at
// each call, so it also sees values stored after it was created.
//
//	logger.L(ctx).Info("payment recorded", zap.String("receipt", n))
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger uses l instead of the logger stored in ctx. A nil l logs nothing.
func WithLogger(ctx context.Context, l *zap.Logger) *ContextLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, logger: l}
}

func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

// Zap returns the enriched zap logger.
func (cl *ContextLogger) Zap() *zap.Logger {
	l := WithTraceContext(cl.ctx, cl.logger)
	for _, key := range correlationKeys {
		if v := valueOf(cl.ctx, key); v != "" {
			l = l.With(zap.String(string(key), v))
		}
	}
	return l
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.Zap().Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.Zap().Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.Zap().Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.Zap().Error(msg, fields...) }
