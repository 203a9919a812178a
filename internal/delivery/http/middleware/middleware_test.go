package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"accounts/config"
	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/errors"
	mockUsecase "accounts/internal/mocks/usecase"
)

func newTestEcho(t *testing.T, uc *mockUsecase.MockAccountUsecase, listRequiresAuth bool) *echo.Echo {
	t.Helper()

	cfg := &config.Config{}
	cfg.Auth.ListRequiresAuth = listRequiresAuth

	e := echo.New()
	e.HTTPErrorHandler = NewErrorMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))).HandleHTTPError

	auth := NewAuthMiddleware(uc, cfg)
	e.GET("/me", func(c echo.Context) error {
		account, ok := deliverycontext.Account(c)
		if !ok {
			return errors.New("account missing")
		}

		return c.JSON(http.StatusOK, map[string]int64{"id": account.ID})
	}, auth.Authenticate)
	e.GET("/list", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, auth.ListPolicy)
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("driver: connection reset by peer")
	})

	return e
}

func serve(e *echo.Echo, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Run("missing or malformed header", func(t *testing.T) {
		uc := mockUsecase.NewMockAccountUsecase(t)
		e := newTestEcho(t, uc, false)

		for _, header := range []string{"", "Basic abc", "Bearer", "Bearer   "} {
			rec := serve(e, "/me", header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
			assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
			assert.Equal(t, "TOKEN_MISSING", decodeProblem(t, rec)["code"])
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		uc := mockUsecase.NewMockAccountUsecase(t)
		uc.EXPECT().AuthenticateAccessToken(mock.Anything, "bad").
			Return(nil, domainerrors.NewTokenError(domainerrors.TokenSignature, nil))
		e := newTestEcho(t, uc, false)

		rec := serve(e, "/me", "Bearer bad")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_INVALID", decodeProblem(t, rec)["code"])
	})

	t.Run("valid token with lower-case scheme", func(t *testing.T) {
		uc := mockUsecase.NewMockAccountUsecase(t)
		uc.EXPECT().AuthenticateAccessToken(mock.Anything, "good").Return(&entity.Account{ID: 9}, nil)
		e := newTestEcho(t, uc, false)

		rec := serve(e, "/me", "bearer good")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":9}`, rec.Body.String())
	})
}

func TestAuthMiddleware_ListPolicy(t *testing.T) {
	open := newTestEcho(t, mockUsecase.NewMockAccountUsecase(t), false)
	assert.Equal(t, http.StatusOK, serve(open, "/list", "").Code)

	closed := newTestEcho(t, mockUsecase.NewMockAccountUsecase(t), true)
	assert.Equal(t, http.StatusUnauthorized, serve(closed, "/list", "").Code)
}

func TestErrorMiddleware(t *testing.T) {
	e := newTestEcho(t, mockUsecase.NewMockAccountUsecase(t), false)

	t.Run("unclassified error is generic", func(t *testing.T) {
		rec := serve(e, "/boom", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")

		body := decodeProblem(t, rec)
		assert.Equal(t, "INTERNAL_ERROR", body["code"])
		assert.Equal(t, "/boom", body["instance"])
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := serve(e, "/nowhere", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))
	})
}
