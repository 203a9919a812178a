package errors

import "fmt"

// TokenFailure names the check a bearer token failed. It is kept for logs only;
// clients always see ErrTokenInvalid.
type TokenFailure string

const (
	TokenMalformed    TokenFailure = "malformed"
	TokenSignature    TokenFailure = "signature"
	TokenAlgorithm    TokenFailure = "algorithm"
	TokenExpired      TokenFailure = "expired"
	TokenNotYetValid  TokenFailure = "not_yet_valid"
	TokenIssuer       TokenFailure = "issuer"
	TokenAudience     TokenFailure = "audience"
	TokenWrongType    TokenFailure = "type"
	TokenSubject      TokenFailure = "subject"
	TokenClaimsFailed TokenFailure = "claims"
)

// TokenError is returned by token validation. It matches ErrTokenInvalid and
// reports the same client-facing code and message regardless of Reason.
type TokenError struct {
	Reason TokenFailure
	cause  error
}

func NewTokenError(reason TokenFailure, cause error) *TokenError {
	return &TokenError{Reason: reason, cause: cause}
}

func (e *TokenError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("invalid token: %s", e.Reason)
	}

	return fmt.Sprintf("invalid token: %s: %v", e.Reason, e.cause)
}

func (e *TokenError) Unwrap() error {
	return e.cause
}

func (e *TokenError) Is(target error) bool {
	return target == ErrTokenInvalid
}

func (e *TokenError) Kind() Kind {
	return ErrTokenInvalid.Kind()
}

func (e *TokenError) ErrorCode() string {
	return ErrTokenInvalid.ErrorCode()
}

func (e *TokenError) Message() string {
	return ErrTokenInvalid.Message()
}

func (e *TokenError) Violations() []FieldViolation {
	return nil
}
