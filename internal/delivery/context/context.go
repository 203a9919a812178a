// Package context carries request-scoped values between the HTTP delivery
// and the layers below it.
package context

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"

	"accounts/internal/domain/entity"
)

// HeaderXRequestID is the header a request id is read from and echoed in.
const HeaderXRequestID = echo.HeaderXRequestID

// echo.Context keys.
const (
	echoKeyRequestID = "request_id"
	echoKeyAccount   = "account"
)

type ctxKey int

// context.Context keys.
const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyLogger
)

// RequestID returns the id assigned by the request id middleware, or "".
func RequestID(c echo.Context) string {
	id, _ := c.Get(echoKeyRequestID).(string)

	return id
}

func SetRequestID(c echo.Context, requestID string) {
	c.Set(echoKeyRequestID, requestID)
}

// RequestIDFrom returns the request id stored in ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)

	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// LoggerFrom returns the request-scoped logger stored in ctx, or fallback.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(ctxKeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return fallback
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// SetAccount stores the account resolved from the bearer token.
func SetAccount(c echo.Context, account *entity.Account) {
	c.Set(echoKeyAccount, account)
}

// Account returns the authenticated account. It reports false on routes
// without authentication.
func Account(c echo.Context) (*entity.Account, bool) {
	account, ok := c.Get(echoKeyAccount).(*entity.Account)

	return account, ok && account != nil
}
