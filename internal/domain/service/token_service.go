package service

import "time"

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the validated content of a bearer token.
type TokenClaims struct {
	Subject   string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Extra holds the non-registered claims, e.g. "phone" on login tokens.
	Extra map[string]any
}

// TokenService is the single component that signs and validates tokens.
type TokenService interface {
	// IssueAccessToken signs an access token for subject. Registered claim
	// names in extra are ignored. expiresIn is the lifetime in seconds.
	IssueAccessToken(subject string, extra map[string]any) (token string, expiresIn int64, err error)

	IssueRefreshToken(subject string) (string, error)

	// Validate checks signature, algorithm, time claims and, when configured,
	// issuer and audience. Failures match errors.ErrTokenInvalid.
	Validate(token string) (*TokenClaims, error)
}
