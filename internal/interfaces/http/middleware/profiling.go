package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
)

// Profiling runs each request under pprof labels for its method, route
// pattern and billing resource, so Pyroscope can slice CPU and allocation
// profiles per endpoint. Disabled, it only calls c.Next.
func Profiling(enabled bool, skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || slices.Contains(skipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	labels := map[string]string{telemetry.ProfilingLabelMethod: c.Request.Method}
	route := c.FullPath()
	if route == "" {
		return labels
	}
	labels[telemetry.ProfilingLabelRoute] = route
	if resource := billingResource(route); resource != "" {
		labels[telemetry.ProfilingLabelResource] = resource
	}
	return labels
}

// billingResource is the path segment after /billing/, e.g. "periods" for
// /api/v1/billing/periods/:id/transition.
func billingResource(route string) string {
	_, rest, ok := strings.Cut(route, "/billing/")
	if !ok {
		return ""
	}
	resource, _, _ := strings.Cut(rest, "/")
	return resource
}
