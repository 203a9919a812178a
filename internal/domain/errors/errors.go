// Package errors defines the domain error taxonomy. Errors carry a Kind that
// the delivery layer maps to a transport status; the domain never knows about HTTP.
package errors

import (
	"accounts/internal/errors"
)

// Kind classifies a domain error independently of any transport.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindInvalidCredentials
	KindConflict
	KindForbidden
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// FieldViolation is a machine-readable reason for one rejected input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message,omitempty"`
}

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	Kind() Kind
	ErrorCode() string // Business error code
	Message() string   // User-facing message, safe to return to clients
	Violations() []FieldViolation
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	kind       Kind
	errorCode  string
	message    string
	violations []FieldViolation
}

// NewBaseError creates a new base error
func NewBaseError(kind Kind, errorCode, message string) *BaseError {
	return &BaseError{
		kind:      kind,
		errorCode: errorCode,
		message:   message,
	}
}

func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

func (e *BaseError) Kind() Kind {
	return e.kind
}

func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

func (e *BaseError) Message() string {
	return e.message
}

func (e *BaseError) Violations() []FieldViolation {
	return e.violations
}

// WithViolations returns a copy of the error carrying the given field violations.
func (e *BaseError) WithViolations(violations ...FieldViolation) *BaseError {
	return &BaseError{
		kind:       e.kind,
		errorCode:  e.errorCode,
		message:    e.message,
		violations: append([]FieldViolation(nil), violations...),
	}
}

// Is matches on the error code so copies made by WithViolations still match
// the predefined sentinel.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return t.errorCode == e.errorCode
}

// Predefined error types
var (
	ErrValidationFailed = NewBaseError(
		KindInvalidInput,
		"VALIDATION_FAILED",
		"one or more fields are invalid",
	)

	ErrAccountNotFound = NewBaseError(
		KindNotFound,
		"ACCOUNT_NOT_FOUND",
		"account not found",
	)

	ErrInvalidCredentials = NewBaseError(
		KindInvalidCredentials,
		"INVALID_CREDENTIALS",
		"invalid credentials",
	)

	ErrDuplicateEmail = NewBaseError(
		KindConflict,
		"EMAIL_ALREADY_EXISTS",
		"email is already registered",
	)

	ErrDuplicatePhone = NewBaseError(
		KindConflict,
		"PHONE_ALREADY_EXISTS",
		"phone is already registered",
	)

	ErrAccountConflict = NewBaseError(
		KindConflict,
		"ACCOUNT_CONFLICT",
		"account conflicts with an existing record",
	)

	ErrForbidden = NewBaseError(
		KindForbidden,
		"FORBIDDEN",
		"an account may only modify itself",
	)

	ErrTokenMissing = NewBaseError(
		KindUnauthenticated,
		"TOKEN_MISSING",
		"bearer token is missing",
	)

	ErrTokenInvalid = NewBaseError(
		KindUnauthenticated,
		"TOKEN_INVALID",
		"invalid token",
	)

	ErrPasswordHashFailed = NewBaseError(
		KindInternal,
		"PASSWORD_HASH_FAILED",
		"password processing failed",
	)

	ErrInternal = NewBaseError(
		KindInternal,
		"INTERNAL_ERROR",
		"internal server error",
	)
)

// NewInvalidInput builds a validation error listing every failing field.
func NewInvalidInput(violations ...FieldViolation) error {
	return ErrValidationFailed.WithViolations(violations...)
}

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, e.details).Error()
}

func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

func (e *DatabaseExecuteError) Kind() Kind {
	return KindInternal
}

func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message never includes driver text.
func (e *DatabaseExecuteError) Message() string {
	return ErrInternal.Message()
}

func (e *DatabaseExecuteError) Violations() []FieldViolation {
	return nil
}
