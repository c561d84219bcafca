// Package middleware holds the gin middleware of the billing API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig opens a server span per request via otelgin, named after
// the route pattern. Disabled tracing is a pass-through.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// routeSpanAttributes maps path parameters onto span attributes. Values that
// are not UUIDs are skipped.
var routeSpanAttributes = map[string]string{
	"customerId": "customer_id",
	"id":         "resource_id",
}

// SpanAttributes annotates the request span once the handler has run: the
// request ID, customer and resource IDs from the route, and the status code of
// failed requests. Only 5xx answers mark the span as an error. Mount it after
// TracingWithConfig.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if id := getRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		for param, key := range routeSpanAttributes {
			if v := c.Param(param); v != "" && uuid.Validate(v) == nil {
				span.SetAttributes(attribute.String(key, v))
			}
		}

		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
