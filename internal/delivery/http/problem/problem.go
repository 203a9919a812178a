// Package problem renders errors as problem documents
// (application/problem+json).
package problem

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	deliverycontext "accounts/internal/delivery/context"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/errors"
)

// MIMEApplicationProblemJSON is the media type of every error response.
const MIMEApplicationProblemJSON = "application/problem+json"

const (
	typeAboutBlank = "about:blank"
	codeHTTPError  = "HTTP_ERROR"
)

// Document is the body of an error response.
type Document struct {
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Status   int     `json:"status"`
	Detail   string  `json:"detail"`
	Instance string  `json:"instance"`
	Code     string  `json:"code,omitempty"`
	Extras   *Extras `json:"extras,omitempty"`
}

// Extras carries the optional members of a Document.
type Extras struct {
	Timestamp string                        `json:"timestamp"`
	RequestID string                        `json:"request_id,omitempty"`
	Errors    []domainerrors.FieldViolation `json:"errors,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domainerrors.Kind) int {
	switch kind {
	case domainerrors.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case domainerrors.KindNotFound:
		return http.StatusNotFound
	case domainerrors.KindInvalidCredentials, domainerrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case domainerrors.KindConflict:
		return http.StatusConflict
	case domainerrors.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the document for err. The second result reports whether
// err was unclassified; its text never reaches the document.
func FromError(err error, instance string, now time.Time) (*Document, bool) {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		status := StatusFor(appErr.Kind())
		doc := newDocument(status, appErr.Message(), appErr.ErrorCode(), instance, now)
		doc.Extras.Errors = appErr.Violations()

		return doc, status >= http.StatusInternalServerError
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		detail := http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok && msg != "" {
			detail = msg
		}
		if httpErr.Code >= http.StatusInternalServerError {
			detail = domainerrors.ErrInternal.Message()
		}

		return newDocument(httpErr.Code, detail, codeHTTPError, instance, now), httpErr.Code >= http.StatusInternalServerError
	}

	return newDocument(
		http.StatusInternalServerError,
		domainerrors.ErrInternal.Message(),
		domainerrors.ErrInternal.ErrorCode(),
		instance,
		now,
	), true
}

func newDocument(status int, detail, code, instance string, now time.Time) *Document {
	return &Document{
		Type:     typeAboutBlank,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
		Code:     code,
		Extras: &Extras{
			Timestamp: now.UTC().Format(time.RFC3339Nano),
		},
	}
}

// Write sends doc as the response. 401 responses advertise the bearer scheme.
func Write(c echo.Context, doc *Document) error {
	if doc.Extras != nil && doc.Extras.RequestID == "" {
		doc.Extras.RequestID = deliverycontext.RequestID(c)
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, MIMEApplicationProblemJSON)
	if doc.Status == http.StatusUnauthorized {
		header.Set(echo.HeaderWWWAuthenticate, "Bearer")
	}

	if c.Request().Method == http.MethodHead {
		return errors.WithStack(c.NoContent(doc.Status))
	}

	return errors.WithStack(c.JSON(doc.Status, doc))
}
