package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"accounts/config"
	deliverycontext "accounts/internal/delivery/context"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/usecase"
)

const bearerScheme = "bearer"

// AuthMiddleware resolves the bearer access token to an account.
type AuthMiddleware struct {
	uc               usecase.AccountUsecase
	listRequiresAuth bool
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(uc usecase.AccountUsecase, cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		uc:               uc,
		listRequiresAuth: cfg.Auth.ListRequiresAuth,
	}
}

// Authenticate rejects the request unless it carries a valid access token
// whose subject still exists. The account is stored on the echo context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return domainerrors.ErrTokenMissing
		}

		account, err := m.uc.AuthenticateAccessToken(c.Request().Context(), token)
		if err != nil {
			return err
		}
		deliverycontext.SetAccount(c, account)

		return next(c)
	}
}

// ListPolicy applies Authenticate only when listing is configured to require it.
func (m *AuthMiddleware) ListPolicy(next echo.HandlerFunc) echo.HandlerFunc {
	if m.listRequiresAuth {
		return m.Authenticate(next)
	}

	return next
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
