// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"accounts/config"
	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/infra/metrics"
	"accounts/internal/usecase"
)

// Claim carrying the login phone on access tokens.
const claimPhone = "phone"

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager    repository.TransactionManager
	hasher       service.PasswordHasher
	tokenService service.TokenService
	pagination   config.PaginationConfig
	metrics      *metrics.Registry
	logger       *slog.Logger
}

// AccountServiceParams holds dependencies for the account service, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Config       *config.Config
	Metrics      *metrics.Registry `optional:"true"`
	Logger       *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		txManager:    params.TxManager,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		pagination:   params.Config.Pagination,
		metrics:      params.Metrics,
		logger:       params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.LoggerFrom(ctx, srv.logger)
}

func (srv *accountService) observeAuth(operation, outcome string) {
	if srv.metrics != nil {
		srv.metrics.AuthAttemptsTotal.WithLabelValues(operation, outcome).Inc()
	}
}

// Register hashes the password before opening the transaction so no pooled
// connection is held during key derivation.
func (srv *accountService) Register(ctx context.Context, input *usecase.RegisterInput) (*entity.Account, error) {
	passwordHash, err := srv.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	account := &entity.Account{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: passwordHash,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.AccountRepo().Create(ctx, account)
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to register account")
	}

	srv.log(ctx).Info("Account registered", slog.Int64("accountID", account.ID))

	return account, nil
}

func (srv *accountService) Authenticate(ctx context.Context, input *usecase.LoginInput) (*entity.Account, error) {
	var account *entity.Account
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.AccountRepo().FindByPhone(ctx, input.Phone)
		if err != nil {
			return err
		}
		account = found

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account by phone")
	}

	if !srv.hasher.Verify(ctx, input.Password, account.PasswordHash) {
		return nil, domainerrors.ErrInvalidCredentials
	}

	return account, nil
}

func (srv *accountService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	account, err := srv.Authenticate(ctx, input)
	if err != nil {
		srv.observeAuth("login", "failure")
		srv.log(ctx).Info("Login rejected", slog.Any("error", err))

		return nil, err
	}

	output, err := srv.issueTokens(account, true)
	if err != nil {
		return nil, err
	}

	srv.observeAuth("login", "success")
	srv.log(ctx).Debug("Login succeeded", slog.Int64("accountID", account.ID))

	return output, nil
}

// RefreshAccessToken issues a new access token. The refresh token itself is
// not rotated.
func (srv *accountService) RefreshAccessToken(ctx context.Context, input *usecase.RefreshInput) (*usecase.LoginOutput, error) {
	claims, err := srv.tokenService.Validate(input.RefreshToken)
	if err != nil {
		srv.observeAuth("refresh", "failure")

		return nil, err
	}
	if claims.Type != service.TokenTypeRefresh {
		srv.observeAuth("refresh", "failure")

		return nil, domainerrors.NewTokenError(domainerrors.TokenWrongType, nil)
	}

	account, err := srv.ResolveSubject(ctx, claims)
	if err != nil {
		srv.observeAuth("refresh", "failure")

		return nil, err
	}

	output, err := srv.issueTokens(account, false)
	if err != nil {
		return nil, err
	}
	srv.observeAuth("refresh", "success")

	return output, nil
}

func (srv *accountService) issueTokens(account *entity.Account, withRefresh bool) (*usecase.LoginOutput, error) {
	subject := strconv.FormatInt(account.ID, 10)

	var extra map[string]any
	if account.HasPhone() {
		extra = map[string]any{claimPhone: *account.Phone}
	}

	accessToken, expiresIn, err := srv.tokenService.IssueAccessToken(subject, extra)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	output := &usecase.LoginOutput{
		AccessToken: accessToken,
		TokenType:   usecase.TokenTypeBearer,
		ExpiresIn:   expiresIn,
		Account:     account,
	}

	if withRefresh {
		output.RefreshToken, err = srv.tokenService.IssueRefreshToken(subject)
		if err != nil {
			return nil, errors.Wrap(err, "failed to issue refresh token")
		}
	}

	return output, nil
}

func (srv *accountService) AuthenticateAccessToken(ctx context.Context, token string) (*entity.Account, error) {
	claims, err := srv.tokenService.Validate(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != service.TokenTypeAccess {
		return nil, domainerrors.NewTokenError(domainerrors.TokenWrongType, nil)
	}

	return srv.ResolveSubject(ctx, claims)
}

// ResolveSubject turns a subject that no longer names an account into a token
// failure, so a deleted account's tokens stop working immediately.
func (srv *accountService) ResolveSubject(ctx context.Context, claims *service.TokenClaims) (*entity.Account, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, domainerrors.NewTokenError(domainerrors.TokenSubject, err)
	}

	account, err := srv.GetAccount(ctx, id)
	if errors.Is(err, domainerrors.ErrAccountNotFound) {
		return nil, domainerrors.NewTokenError(domainerrors.TokenSubject, err)
	}
	if err != nil {
		return nil, err
	}

	return account, nil
}

func (srv *accountService) GetAccount(ctx context.Context, id int64) (*entity.Account, error) {
	var account *entity.Account
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.AccountRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		account = found

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get account")
	}

	return account, nil
}

func (srv *accountService) UpdateProfile(ctx context.Context, actorID, targetID int64, input *usecase.UpdateInput) (*entity.Account, error) {
	if actorID != targetID {
		return nil, domainerrors.ErrForbidden
	}

	changes := entity.AccountChanges{
		Name:  input.Name,
		Email: input.Email,
		Phone: input.Phone,
	}
	if input.Password != nil {
		passwordHash, err := srv.hasher.Hash(ctx, *input.Password)
		if err != nil {
			return nil, errors.Wrap(err, "failed to hash password")
		}
		changes.PasswordHash = &passwordHash
	}

	var account *entity.Account
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.AccountRepo()

		found, err := accountRepo.FindByID(ctx, targetID)
		if err != nil {
			return err
		}

		changes.ApplyTo(found)
		if err := accountRepo.Update(ctx, found); err != nil {
			return err
		}
		account = found

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update account")
	}

	srv.log(ctx).Info("Account updated", slog.Int64("accountID", account.ID))

	return account, nil
}

func (srv *accountService) Delete(ctx context.Context, actorID, targetID int64) error {
	if actorID != targetID {
		return domainerrors.ErrForbidden
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.AccountRepo().Delete(ctx, targetID)
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete account")
	}

	srv.log(ctx).Info("Account deleted", slog.Int64("accountID", targetID))

	return nil
}

func (srv *accountService) List(ctx context.Context, input usecase.ListInput) (*usecase.ListOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = srv.pagination.DefaultLimit
	}

	var violations []domainerrors.FieldViolation
	if input.Offset < 0 {
		violations = append(violations, domainerrors.FieldViolation{Field: "offset", Rule: "min", Message: "offset must not be negative"})
	}
	if limit < 1 || limit > srv.pagination.MaxLimit {
		violations = append(violations, domainerrors.FieldViolation{
			Field:   "limit",
			Rule:    "range",
			Message: "limit must be between 1 and " + strconv.Itoa(srv.pagination.MaxLimit),
		})
	}
	if len(violations) > 0 {
		return nil, domainerrors.NewInvalidInput(violations...)
	}

	var items []*entity.Account
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.AccountRepo().List(ctx, input.Offset, limit)
		if err != nil {
			return err
		}
		items = found

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}

	return &usecase.ListOutput{Items: items, Offset: input.Offset, Limit: limit}, nil
}
