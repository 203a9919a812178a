package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/delivery/http/problem"
	"accounts/internal/errors"
)

// ErrorMiddleware handles errors in the HTTP pipeline
type ErrorMiddleware struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger: logger,
		now:    time.Now,
	}
}

// HandleHTTPError renders err as a problem document. Server-side failures are
// logged with their cause; clients only ever see the generic detail.
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	req := c.Request()
	doc, unclassified := problem.FromError(err, req.URL.Path, m.now())

	logger := deliverycontext.LoggerFrom(req.Context(), m.logger)
	switch {
	case unclassified:
		logger.Error("Unhandled error",
			slog.Any("error", err),
			slog.String("path", req.URL.Path),
			slog.String("method", req.Method),
			slog.String("stack", errors.Stack(err)),
		)
	case doc.Status == http.StatusUnauthorized:
		logger.Debug("Request not authenticated", slog.Any("error", err))
	}

	if writeErr := problem.Write(c, doc); writeErr != nil {
		logger.Warn("Failed to write error response", slog.Any("error", writeErr))
	}
}
