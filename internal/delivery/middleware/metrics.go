package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"accounts/internal/infra/metrics"
)

// Route label for requests that matched no route, keeping label cardinality bounded.
const unmatchedRoute = "unmatched"

// MetricsMiddleware records request counts and latencies per route template.
type MetricsMiddleware struct {
	registry *metrics.Registry
}

// NewMetricsMiddleware creates a new metrics middleware
func NewMetricsMiddleware(registry *metrics.Registry) *MetricsMiddleware {
	return &MetricsMiddleware{registry: registry}
}

// Handle observes the request after the handler chain and the error handler ran.
func (m *MetricsMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			// Let the error handler write the response so the real status is recorded.
			c.Error(err)
		}

		route := c.Path()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request().Method

		m.registry.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
		m.registry.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		return nil
	}
}
