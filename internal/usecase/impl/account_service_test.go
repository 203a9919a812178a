package impl

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"accounts/config"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
	"accounts/internal/infra/metrics"
	mockRepo "accounts/internal/mocks/repository"
	mockSvc "accounts/internal/mocks/service"
	"accounts/internal/usecase"
)

// accountServiceFixtures holds all test dependencies for account service tests.
type accountServiceFixtures struct {
	service      usecase.AccountUsecase
	txManager    *mockRepo.MockTransactionManager
	accountRepo  *mockRepo.MockAccountRepository
	hasher       *mockSvc.MockPasswordHasher
	tokenService *mockSvc.MockTokenService
	metrics      *metrics.Registry
}

func createTestAccountService(t *testing.T) accountServiceFixtures {
	txManager := mockRepo.NewMockTransactionManager(t)
	accountRepo := mockRepo.NewMockAccountRepository(t)
	hasher := mockSvc.NewMockPasswordHasher(t)
	tokenService := mockSvc.NewMockTokenService(t)
	registry := metrics.NewRegistry()

	cfg := &config.Config{}
	cfg.Pagination = config.PaginationConfig{DefaultLimit: 20, MaxLimit: 100}

	svc := NewAccountService(AccountServiceParams{
		TxManager:    txManager,
		Hasher:       hasher,
		TokenService: tokenService,
		Config:       cfg,
		Metrics:      registry,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return accountServiceFixtures{
		service:      svc,
		txManager:    txManager,
		accountRepo:  accountRepo,
		hasher:       hasher,
		tokenService: tokenService,
		metrics:      registry,
	}
}

// expectTx runs the transaction callback against the account repository mock.
func (f accountServiceFixtures) expectTx(t *testing.T, times int) {
	factory := mockRepo.NewMockRepositoryFactory(t)
	factory.EXPECT().AccountRepo().Return(f.accountRepo).Maybe()

	f.txManager.EXPECT().
		Execute(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, fn func(repository.RepositoryFactory) error) error {
			return fn(factory)
		}).
		Times(times)
}

func strPtr(s string) *string { return &s }

func sampleAccount() *entity.Account {
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	return &entity.Account{
		ID:           7,
		Name:         "Ana Silva",
		Email:        "ana@ex.com",
		Phone:        strPtr("11987654321"),
		PasswordHash: "$argon2id$stored",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestAccountService_Register_Success(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	input, err := usecase.NewRegisterInput("Ana Silva", "ANA@EX.com", strPtr("(11)98765-4321"), "abc12345")
	require.NoError(t, err)

	fx.hasher.EXPECT().Hash(ctx, "abc12345").Return("$argon2id$hash", nil)
	fx.expectTx(t, 1)
	fx.accountRepo.EXPECT().
		Create(ctx, mock.AnythingOfType("*entity.Account")).
		Run(func(_ context.Context, account *entity.Account) {
			account.ID = 1
		}).
		Return(nil)

	account, err := fx.service.Register(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, int64(1), account.ID)
	assert.Equal(t, "ana@ex.com", account.Email)
	assert.Equal(t, "11987654321", *account.Phone)
	assert.Equal(t, "$argon2id$hash", account.PasswordHash)
}

func TestAccountService_Register_Duplicate(t *testing.T) {
	for _, dupErr := range []error{domainerrors.ErrDuplicateEmail, domainerrors.ErrDuplicatePhone} {
		fx := createTestAccountService(t)
		ctx := context.Background()

		fx.hasher.EXPECT().Hash(ctx, "abc12345").Return("$argon2id$hash", nil)
		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().Create(ctx, mock.Anything).Return(dupErr)

		_, err := fx.service.Register(ctx, &usecase.RegisterInput{Name: "Ana", Email: "ana@ex.com", Password: "abc12345"})
		assert.True(t, errors.Is(err, dupErr))
	}
}

func TestAccountService_Register_HashFailureSkipsStore(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	fx.hasher.EXPECT().Hash(ctx, "abc12345").Return("", context.DeadlineExceeded)

	_, err := fx.service.Register(ctx, &usecase.RegisterInput{Name: "Ana", Email: "ana@ex.com", Password: "abc12345"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	fx.txManager.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestAccountService_Authenticate(t *testing.T) {
	t.Run("unknown phone", func(t *testing.T) {
		fx := createTestAccountService(t)
		ctx := context.Background()

		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().FindByPhone(ctx, "11900000000").Return(nil, domainerrors.ErrAccountNotFound)

		_, err := fx.service.Authenticate(ctx, &usecase.LoginInput{Phone: "11900000000", Password: "abc12345"})
		assert.True(t, errors.Is(err, domainerrors.ErrAccountNotFound))
	})

	t.Run("wrong password", func(t *testing.T) {
		fx := createTestAccountService(t)
		ctx := context.Background()
		stored := sampleAccount()

		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().FindByPhone(ctx, "11987654321").Return(stored, nil)
		fx.hasher.EXPECT().Verify(ctx, "wrong123", stored.PasswordHash).Return(false)

		_, err := fx.service.Authenticate(ctx, &usecase.LoginInput{Phone: "11987654321", Password: "wrong123"})
		assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	})

	t.Run("match", func(t *testing.T) {
		fx := createTestAccountService(t)
		ctx := context.Background()
		stored := sampleAccount()

		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().FindByPhone(ctx, "11987654321").Return(stored, nil)
		fx.hasher.EXPECT().Verify(ctx, "abc12345", stored.PasswordHash).Return(true)

		account, err := fx.service.Authenticate(ctx, &usecase.LoginInput{Phone: "11987654321", Password: "abc12345"})
		require.NoError(t, err)
		assert.Same(t, stored, account)
	})
}

func TestAccountService_Login_IssuesTokens(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()
	stored := sampleAccount()

	fx.expectTx(t, 1)
	fx.accountRepo.EXPECT().FindByPhone(ctx, "11987654321").Return(stored, nil)
	fx.hasher.EXPECT().Verify(ctx, "abc12345", stored.PasswordHash).Return(true)
	fx.tokenService.EXPECT().
		IssueAccessToken("7", map[string]any{"phone": "11987654321"}).
		Return("access-token", int64(3600), nil)
	fx.tokenService.EXPECT().IssueRefreshToken("7").Return("refresh-token", nil)

	output, err := fx.service.Login(ctx, &usecase.LoginInput{Phone: "11987654321", Password: "abc12345"})
	require.NoError(t, err)
	assert.Equal(t, "access-token", output.AccessToken)
	assert.Equal(t, "bearer", output.TokenType)
	assert.Equal(t, int64(3600), output.ExpiresIn)
	assert.Equal(t, "refresh-token", output.RefreshToken)
	assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.AuthAttemptsTotal.WithLabelValues("login", "success")), 0)
}

func TestAccountService_Login_FailureCounted(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()
	stored := sampleAccount()

	fx.expectTx(t, 1)
	fx.accountRepo.EXPECT().FindByPhone(ctx, "11987654321").Return(stored, nil)
	fx.hasher.EXPECT().Verify(ctx, "nope1234", stored.PasswordHash).Return(false)

	_, err := fx.service.Login(ctx, &usecase.LoginInput{Phone: "11987654321", Password: "nope1234"})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.AuthAttemptsTotal.WithLabelValues("login", "failure")), 0)
	fx.tokenService.AssertNotCalled(t, "IssueAccessToken", mock.Anything, mock.Anything)
}

func TestAccountService_RefreshAccessToken(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fx := createTestAccountService(t)
		ctx := context.Background()
		stored := sampleAccount()

		fx.tokenService.EXPECT().Validate("refresh-token").
			Return(&service.TokenClaims{Subject: "7", Type: service.TokenTypeRefresh}, nil)
		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().FindByID(ctx, int64(7)).Return(stored, nil)
		fx.tokenService.EXPECT().
			IssueAccessToken("7", map[string]any{"phone": "11987654321"}).
			Return("new-access", int64(3600), nil)

		output, err := fx.service.RefreshAccessToken(ctx, &usecase.RefreshInput{RefreshToken: "refresh-token"})
		require.NoError(t, err)
		assert.Equal(t, "new-access", output.AccessToken)
		assert.Empty(t, output.RefreshToken)
	})

	t.Run("access token presented", func(t *testing.T) {
		fx := createTestAccountService(t)

		fx.tokenService.EXPECT().Validate("access-token").
			Return(&service.TokenClaims{Subject: "7", Type: service.TokenTypeAccess}, nil)

		_, err := fx.service.RefreshAccessToken(context.Background(), &usecase.RefreshInput{RefreshToken: "access-token"})
		assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))
	})

	t.Run("invalid token", func(t *testing.T) {
		fx := createTestAccountService(t)

		fx.tokenService.EXPECT().Validate("garbage").
			Return(nil, domainerrors.NewTokenError(domainerrors.TokenMalformed, nil))

		_, err := fx.service.RefreshAccessToken(context.Background(), &usecase.RefreshInput{RefreshToken: "garbage"})
		assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))
		assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.AuthAttemptsTotal.WithLabelValues("refresh", "failure")), 0)
	})
}

func TestAccountService_AuthenticateAccessToken(t *testing.T) {
	t.Run("resolves account", func(t *testing.T) {
		fx := createTestAccountService(t)
		ctx := context.Background()
		stored := sampleAccount()

		fx.tokenService.EXPECT().Validate("token").
			Return(&service.TokenClaims{Subject: "7", Type: service.TokenTypeAccess}, nil)
		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().FindByID(ctx, int64(7)).Return(stored, nil)

		account, err := fx.service.AuthenticateAccessToken(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, int64(7), account.ID)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		fx := createTestAccountService(t)

		fx.tokenService.EXPECT().Validate("token").
			Return(&service.TokenClaims{Subject: "7", Type: service.TokenTypeRefresh}, nil)

		_, err := fx.service.AuthenticateAccessToken(context.Background(), "token")
		assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))
	})

	t.Run("deleted account", func(t *testing.T) {
		fx := createTestAccountService(t)
		ctx := context.Background()

		fx.tokenService.EXPECT().Validate("token").
			Return(&service.TokenClaims{Subject: "7", Type: service.TokenTypeAccess}, nil)
		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().FindByID(ctx, int64(7)).Return(nil, domainerrors.ErrAccountNotFound)

		_, err := fx.service.AuthenticateAccessToken(ctx, "token")
		assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))
	})

	t.Run("non numeric subject", func(t *testing.T) {
		fx := createTestAccountService(t)

		fx.tokenService.EXPECT().Validate("token").
			Return(&service.TokenClaims{Subject: "ana@ex.com", Type: service.TokenTypeAccess}, nil)

		_, err := fx.service.AuthenticateAccessToken(context.Background(), "token")
		assert.True(t, errors.Is(err, domainerrors.ErrTokenInvalid))
	})
}

func TestAccountService_UpdateProfile(t *testing.T) {
	t.Run("forbidden for another account", func(t *testing.T) {
		fx := createTestAccountService(t)

		_, err := fx.service.UpdateProfile(context.Background(), 7, 8, &usecase.UpdateInput{Name: strPtr("Bob")})
		assert.True(t, errors.Is(err, domainerrors.ErrForbidden))
	})

	t.Run("partial update with password", func(t *testing.T) {
		fx := createTestAccountService(t)
		ctx := context.Background()
		stored := sampleAccount()

		fx.hasher.EXPECT().Hash(ctx, "newpass123").Return("$argon2id$new", nil)
		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().FindByID(ctx, int64(7)).Return(stored, nil)
		fx.accountRepo.EXPECT().
			Update(ctx, mock.AnythingOfType("*entity.Account")).
			Run(func(_ context.Context, account *entity.Account) {
				account.UpdatedAt = account.UpdatedAt.Add(time.Second)
			}).
			Return(nil)

		account, err := fx.service.UpdateProfile(ctx, 7, 7, &usecase.UpdateInput{
			Name:     strPtr("Ana S."),
			Password: strPtr("newpass123"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana S.", account.Name)
		assert.Equal(t, "ana@ex.com", account.Email)
		assert.Equal(t, "11987654321", *account.Phone)
		assert.Equal(t, "$argon2id$new", account.PasswordHash)
		assert.True(t, account.UpdatedAt.After(account.CreatedAt))
	})

	t.Run("target gone", func(t *testing.T) {
		fx := createTestAccountService(t)
		ctx := context.Background()

		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().FindByID(ctx, int64(7)).Return(nil, domainerrors.ErrAccountNotFound)

		_, err := fx.service.UpdateProfile(ctx, 7, 7, &usecase.UpdateInput{Email: strPtr("new@ex.com")})
		assert.True(t, errors.Is(err, domainerrors.ErrAccountNotFound))
	})
}

func TestAccountService_Delete(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	assert.True(t, errors.Is(fx.service.Delete(ctx, 7, 8), domainerrors.ErrForbidden))

	fx.expectTx(t, 1)
	fx.accountRepo.EXPECT().Delete(ctx, int64(7)).Return(nil)
	assert.NoError(t, fx.service.Delete(ctx, 7, 7))
}

func TestAccountService_List(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		fx := createTestAccountService(t)
		ctx := context.Background()

		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().List(ctx, 0, 20).Return([]*entity.Account{sampleAccount()}, nil)

		output, err := fx.service.List(ctx, usecase.ListInput{})
		require.NoError(t, err)
		assert.Len(t, output.Items, 1)
		assert.Equal(t, 20, output.Limit)
	})

	t.Run("explicit page", func(t *testing.T) {
		fx := createTestAccountService(t)
		ctx := context.Background()

		fx.expectTx(t, 1)
		fx.accountRepo.EXPECT().List(ctx, 40, 100).Return([]*entity.Account{}, nil)

		output, err := fx.service.List(ctx, usecase.ListInput{Offset: 40, Limit: 100})
		require.NoError(t, err)
		assert.Empty(t, output.Items)
		assert.Equal(t, 40, output.Offset)
	})

	t.Run("out of bounds", func(t *testing.T) {
		fx := createTestAccountService(t)

		for _, input := range []usecase.ListInput{{Offset: -1}, {Limit: 101}, {Limit: -5}} {
			_, err := fx.service.List(context.Background(), input)
			assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed), "%+v", input)
		}
	})
}
