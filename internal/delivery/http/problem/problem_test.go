package problem

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deliverycontext "accounts/internal/delivery/context"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/errors"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func TestStatusFor(t *testing.T) {
	tests := map[domainerrors.Kind]int{
		domainerrors.KindInvalidInput:       http.StatusUnprocessableEntity,
		domainerrors.KindNotFound:           http.StatusNotFound,
		domainerrors.KindInvalidCredentials: http.StatusUnauthorized,
		domainerrors.KindConflict:           http.StatusConflict,
		domainerrors.KindForbidden:          http.StatusForbidden,
		domainerrors.KindUnauthenticated:    http.StatusUnauthorized,
		domainerrors.KindInternal:           http.StatusInternalServerError,
	}

	for kind, status := range tests {
		assert.Equal(t, status, StatusFor(kind), kind.String())
	}
}

func TestFromError(t *testing.T) {
	t.Run("domain error keeps code and violations", func(t *testing.T) {
		err := errors.Wrap(domainerrors.NewInvalidInput(domainerrors.FieldViolation{Field: "email", Rule: "format"}), "register")

		doc, unclassified := FromError(err, "/users", fixedNow)
		assert.False(t, unclassified)
		assert.Equal(t, http.StatusUnprocessableEntity, doc.Status)
		assert.Equal(t, "about:blank", doc.Type)
		assert.Equal(t, "Unprocessable Entity", doc.Title)
		assert.Equal(t, "VALIDATION_FAILED", doc.Code)
		assert.Equal(t, "/users", doc.Instance)
		assert.Equal(t, "2026-03-04T05:06:07Z", doc.Extras.Timestamp)
		require.Len(t, doc.Extras.Errors, 1)
		assert.Equal(t, "email", doc.Extras.Errors[0].Field)
	})

	t.Run("token failure reports generic token error", func(t *testing.T) {
		err := domainerrors.NewTokenError(domainerrors.TokenExpired, nil)

		doc, _ := FromError(err, "/users/me", fixedNow)
		assert.Equal(t, http.StatusUnauthorized, doc.Status)
		assert.Equal(t, "TOKEN_INVALID", doc.Code)
		assert.NotContains(t, doc.Detail, "expired")
	})

	t.Run("database failure is not leaked", func(t *testing.T) {
		err := domainerrors.NewDatabaseExecuteError(errors.New("pq: relation \"accounts\" does not exist"), "find")

		doc, unclassified := FromError(err, "/users", fixedNow)
		assert.True(t, unclassified)
		assert.Equal(t, http.StatusInternalServerError, doc.Status)
		assert.NotContains(t, doc.Detail, "relation")
	})

	t.Run("echo error", func(t *testing.T) {
		doc, unclassified := FromError(echo.ErrMethodNotAllowed, "/users/me", fixedNow)
		assert.False(t, unclassified)
		assert.Equal(t, http.StatusMethodNotAllowed, doc.Status)
		assert.Equal(t, "HTTP_ERROR", doc.Code)
	})

	t.Run("unknown error", func(t *testing.T) {
		doc, unclassified := FromError(errors.New("boom: secret detail"), "/users", fixedNow)
		assert.True(t, unclassified)
		assert.Equal(t, http.StatusInternalServerError, doc.Status)
		assert.Equal(t, "INTERNAL_ERROR", doc.Code)
		assert.NotContains(t, doc.Detail, "secret")
	})
}

func TestWrite(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	deliverycontext.SetRequestID(c, "req-1")

	doc, _ := FromError(domainerrors.ErrTokenMissing, "/users/me", fixedNow)
	require.NoError(t, Write(c, doc))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MIMEApplicationProblemJSON, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TOKEN_MISSING", body["code"])
	assert.Equal(t, "/users/me", body["instance"])
	extras, ok := body["extras"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "req-1", extras["request_id"])
	assert.NotContains(t, extras, "errors")
}
