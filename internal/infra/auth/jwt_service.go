package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"accounts/config"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
)

const (
	claimSubject   = "sub"
	claimIssuer    = "iss"
	claimAudience  = "aud"
	claimIssuedAt  = "iat"
	claimNotBefore = "nbf"
	claimExpiresAt = "exp"
	claimID        = "jti"
	claimType      = "typ"
)

var reservedClaims = map[string]struct{}{
	claimSubject:   {},
	claimIssuer:    {},
	claimAudience:  {},
	claimIssuedAt:  {},
	claimNotBefore: {},
	claimExpiresAt: {},
	claimID:        {},
	claimType:      {},
}

// jwtService is the TokenService backed by HMAC-signed JWTs.
type jwtService struct {
	secret     []byte
	method     jwt.SigningMethod
	issuer     string
	audience   string
	parser     *jwt.Parser
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService is the constructor for jwtService.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	return newJWTService(cfg.Token, time.Now)
}

func newJWTService(tc config.TokenConfig, now func() time.Time) (*jwtService, error) {
	if strings.TrimSpace(tc.Secret) == "" {
		return nil, errors.New("token secret must be provided")
	}

	alg := tc.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, errors.Errorf("unsupported token algorithm %q: only HMAC algorithms are allowed", alg)
	}

	if tc.AccessTTL <= 0 || tc.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	}
	if tc.EnforceIssuer && tc.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(tc.Issuer))
	}
	if tc.EnforceAudience && tc.Audience != "" {
		opts = append(opts, jwt.WithAudience(tc.Audience))
	}

	return &jwtService{
		secret:     []byte(tc.Secret),
		method:     method,
		issuer:     tc.Issuer,
		audience:   tc.Audience,
		parser:     jwt.NewParser(opts...),
		accessTTL:  tc.AccessTTL,
		refreshTTL: tc.RefreshTTL,
		now:        now,
	}, nil
}

func (s *jwtService) IssueAccessToken(subject string, extra map[string]any) (string, int64, error) {
	token, err := s.sign(subject, service.TokenTypeAccess, s.accessTTL, extra)
	if err != nil {
		return "", 0, err
	}

	return token, int64(s.accessTTL / time.Second), nil
}

func (s *jwtService) IssueRefreshToken(subject string) (string, error) {
	return s.sign(subject, service.TokenTypeRefresh, s.refreshTTL, nil)
}

func (s *jwtService) sign(subject string, typ service.TokenType, ttl time.Duration, extra map[string]any) (string, error) {
	if subject == "" {
		return "", errors.New("token subject must not be empty")
	}

	now := s.now()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		claims[k] = v
	}

	claims[claimSubject] = subject
	claims[claimIssuedAt] = now.Unix()
	claims[claimNotBefore] = now.Unix()
	claims[claimExpiresAt] = now.Add(ttl).Unix()
	claims[claimType] = string(typ)
	if s.issuer != "" {
		claims[claimIssuer] = s.issuer
	}
	if s.audience != "" {
		claims[claimAudience] = s.audience
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}

	return signed, nil
}

func (s *jwtService) Validate(tokenString string) (*service.TokenClaims, error) {
	claims := jwt.MapClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, domainerrors.NewTokenError(s.classify(token, err), err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, domainerrors.NewTokenError(domainerrors.TokenSubject, err)
	}

	typ, _ := claims[claimType].(string)
	switch service.TokenType(typ) {
	case service.TokenTypeAccess, service.TokenTypeRefresh:
	default:
		return nil, domainerrors.NewTokenError(domainerrors.TokenWrongType, nil)
	}

	result := &service.TokenClaims{
		Subject: subject,
		Type:    service.TokenType(typ),
		Extra:   map[string]any{},
	}
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		result.IssuedAt = iat.Time
	}
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		result.ExpiresAt = exp.Time
	}
	for k, v := range claims {
		if _, reserved := reservedClaims[k]; !reserved {
			result.Extra[k] = v
		}
	}

	return result, nil
}

func (s *jwtService) classify(token *jwt.Token, err error) domainerrors.TokenFailure {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domainerrors.TokenMalformed
	case errors.Is(err, jwt.ErrTokenUnverifiable),
		token != nil && token.Method != nil && token.Method.Alg() != s.method.Alg():
		return domainerrors.TokenAlgorithm
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domainerrors.TokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return domainerrors.TokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return domainerrors.TokenNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return domainerrors.TokenIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return domainerrors.TokenAudience
	default:
		return domainerrors.TokenClaimsFailed
	}
}
