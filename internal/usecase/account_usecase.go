// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"strings"

	"accounts/internal/domain/entity"
	"accounts/internal/domain/service"
	"accounts/internal/domain/validation"
)

// TokenTypeBearer is the token_type reported to clients.
const TokenTypeBearer = "bearer"

// --- Input DTOs ---

// RegisterInput is a validated and normalized registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    *string
	Password string
}

// NewRegisterInput normalizes the raw fields and reports every failing field at once.
func NewRegisterInput(name, email string, phone *string, password string) (*RegisterInput, error) {
	var c validation.Collector

	normalizedName, err := validation.NormalizeName(name)
	c.Add(err)
	normalizedEmail, err := validation.NormalizeEmail(email)
	c.Add(err)
	normalizedPhone, err := validation.NormalizePhone(phone)
	c.Add(err)
	c.Add(validation.ValidatePassword(password))

	if err := c.Err(); err != nil {
		return nil, err
	}

	return &RegisterInput{
		Name:     normalizedName,
		Email:    normalizedEmail,
		Phone:    normalizedPhone,
		Password: password,
	}, nil
}

// LoginInput identifies an account by phone.
type LoginInput struct {
	Phone    string
	Password string
}

// NewLoginInput strips formatting from the phone so "(11) 98765-4321" finds
// the account stored as "11987654321". Only presence is checked here; an
// unknown phone is reported by the lookup.
func NewLoginInput(phone, password string) (*LoginInput, error) {
	var c validation.Collector

	digits := validation.DigitsOnly(phone)
	if digits == "" {
		c.Violation(validation.FieldPhone, validation.RuleRequired, "phone is required")
	}
	if password == "" {
		c.Violation(validation.FieldPassword, validation.RuleRequired, "password is required")
	}

	if err := c.Err(); err != nil {
		return nil, err
	}

	return &LoginInput{Phone: digits, Password: password}, nil
}

// UpdateInput holds the fields a partial update supplies. Nil means unchanged.
type UpdateInput struct {
	Name     *string
	Email    *string
	Phone    *string
	Password *string
}

// NewUpdateInput validates only the supplied fields.
func NewUpdateInput(name, email, phone, password *string) (*UpdateInput, error) {
	var (
		c     validation.Collector
		input UpdateInput
	)

	if name != nil {
		normalized, err := validation.NormalizeName(*name)
		c.Add(err)
		input.Name = &normalized
	}
	if email != nil {
		normalized, err := validation.NormalizeEmail(*email)
		c.Add(err)
		input.Email = &normalized
	}
	if phone != nil {
		normalized, err := validation.NormalizePhone(phone)
		c.Add(err)
		input.Phone = normalized
	}
	if password != nil {
		c.Add(validation.ValidatePassword(*password))
		input.Password = password
	}

	if err := c.Err(); err != nil {
		return nil, err
	}

	return &input, nil
}

// ListInput is a page request. A zero Limit selects the configured default.
type ListInput struct {
	Offset int
	Limit  int
}

// RefreshInput carries a refresh token presented by the client.
type RefreshInput struct {
	RefreshToken string
}

// NewRefreshInput rejects a blank token before any parsing happens.
func NewRefreshInput(token string) (*RefreshInput, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		var c validation.Collector
		c.Violation("refresh_token", validation.RuleRequired, "refresh_token is required")

		return nil, c.Err()
	}

	return &RefreshInput{RefreshToken: token}, nil
}

// --- Output DTOs ---

// LoginOutput is the token response of a login or refresh.
type LoginOutput struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int64
	RefreshToken string
	Account      *entity.Account
}

// ListOutput is one page of accounts.
type ListOutput struct {
	Items  []*entity.Account
	Offset int
	Limit  int
}

// AccountUsecase defines the account operations the delivery layer depends on.
type AccountUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*entity.Account, error)

	// Authenticate checks phone and password and returns the account.
	Authenticate(ctx context.Context, input *LoginInput) (*entity.Account, error)

	// Login authenticates and issues an access and a refresh token.
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// RefreshAccessToken exchanges a refresh token for a new access token.
	RefreshAccessToken(ctx context.Context, input *RefreshInput) (*LoginOutput, error)

	// AuthenticateAccessToken resolves a bearer access token to its account.
	AuthenticateAccessToken(ctx context.Context, token string) (*entity.Account, error)

	// ResolveSubject loads the account named by validated claims.
	ResolveSubject(ctx context.Context, claims *service.TokenClaims) (*entity.Account, error)

	GetAccount(ctx context.Context, id int64) (*entity.Account, error)

	// UpdateProfile applies a partial update. Accounts may only update themselves.
	UpdateProfile(ctx context.Context, actorID, targetID int64, input *UpdateInput) (*entity.Account, error)

	// Delete removes the account permanently. Accounts may only delete themselves.
	Delete(ctx context.Context, actorID, targetID int64) error

	List(ctx context.Context, input ListInput) (*ListOutput, error)
}
