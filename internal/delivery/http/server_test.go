package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accounts/config"
	"accounts/internal/delivery/http/middleware"
	"accounts/internal/delivery/http/router"
	"accounts/internal/delivery/http/router/handler"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/infra/auth"
	"accounts/internal/infra/metrics"
	"accounts/internal/usecase/impl"
)

// memoryStore is an AccountRepository that enforces the same uniqueness rules
// as the database constraints.
type memoryStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]entity.Account
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: map[int64]entity.Account{}}
}

func (s *memoryStore) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(s)
}

func (s *memoryStore) AccountRepo() repository.AccountRepository { return s }

func (s *memoryStore) conflict(account *entity.Account) error {
	for id, existing := range s.accounts {
		if id == account.ID {
			continue
		}
		if existing.Email == account.Email {
			return domainerrors.ErrDuplicateEmail
		}
		if existing.HasPhone() && account.HasPhone() && *existing.Phone == *account.Phone {
			return domainerrors.ErrDuplicatePhone
		}
	}

	return nil
}

func (s *memoryStore) Create(_ context.Context, account *entity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conflict(account); err != nil {
		return err
	}
	s.nextID++
	account.ID = s.nextID
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt
	s.accounts[account.ID] = *account

	return nil
}

func (s *memoryStore) find(match func(entity.Account) bool) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if match(account) {
			found := account

			return &found, nil
		}
	}

	return nil, domainerrors.ErrAccountNotFound
}

func (s *memoryStore) FindByID(_ context.Context, id int64) (*entity.Account, error) {
	return s.find(func(a entity.Account) bool { return a.ID == id })
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	return s.find(func(a entity.Account) bool { return a.Email == email })
}

func (s *memoryStore) FindByPhone(_ context.Context, phone string) (*entity.Account, error) {
	return s.find(func(a entity.Account) bool { return a.HasPhone() && *a.Phone == phone })
}

func (s *memoryStore) List(_ context.Context, offset, limit int) ([]*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*entity.Account
	for id := int64(1); id <= s.nextID && len(items) < limit; id++ {
		account, ok := s.accounts[id]
		if !ok {
			continue
		}
		if offset > 0 {
			offset--

			continue
		}
		items = append(items, &account)
	}

	return items, nil
}

func (s *memoryStore) Update(_ context.Context, account *entity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; !ok {
		return domainerrors.ErrAccountNotFound
	}
	if err := s.conflict(account); err != nil {
		return err
	}
	account.UpdatedAt = account.UpdatedAt.Add(time.Microsecond)
	s.accounts[account.ID] = *account

	return nil
}

func (s *memoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return domainerrors.ErrAccountNotFound
	}
	delete(s.accounts, id)

	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.HTTP.MaxRequestBodySize = "100KB"
	cfg.Token = config.TokenConfig{
		Secret:     "integration-test-secret",
		Algorithm:  "HS256",
		Issuer:     "accounts",
		Audience:   "accounts-api",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
	cfg.Hasher = config.HasherConfig{
		Algorithm:   "argon2id",
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
		BcryptCost:  4,
		Workers:     2,
	}
	cfg.Pagination = config.PaginationConfig{DefaultLimit: 20, MaxLimit: 100}

	return cfg
}

// newTestServer wires the real service, hasher and token service over an
// in-memory store.
func newTestServer(t *testing.T) (*echo.Echo, *memoryStore) {
	t.Helper()

	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := metrics.NewRegistry()
	store := newMemoryStore()

	hasher, err := auth.NewPasswordHasher(cfg, registry)
	require.NoError(t, err)
	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	uc := impl.NewAccountService(impl.AccountServiceParams{
		TxManager:    store,
		Hasher:       hasher,
		TokenService: tokens,
		Config:       cfg,
		Metrics:      registry,
		Logger:       logger,
	})

	e := NewEcho(cfg, logger, registry, router.RouterParams{
		AccountHandler: handler.NewAccountHandler(uc, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(uc, cfg),
		Metrics:        registry,
	})

	return e, store
}

func call(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())

	return body
}

func TestServer_AccountLifecycle(t *testing.T) {
	e, store := newTestServer(t)

	rec := call(e, http.MethodPost, "/users",
		`{"name":"Ana Silva","email":"ANA@EX.com","phone":"(11)98765-4321","password":"abc12345"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "ana@ex.com", created["email"])
	assert.Equal(t, "11987654321", created["phone"])
	assert.NotContains(t, rec.Body.String(), "password")

	stored, err := store.FindByEmail(context.Background(), "ana@ex.com")
	require.NoError(t, err)
	assert.NotEqual(t, "abc12345", stored.PasswordHash)

	rec = call(e, http.MethodPost, "/users/login", `{"phone":"11987654321","password":"wrong999"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPost, "/users/login", `{"phone":"(11) 98765-4321","password":"abc12345"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decode(t, rec)
	assert.Equal(t, "bearer", token["token_type"])
	assert.InDelta(t, 3600, token["expires_in"], 0)
	accessToken, ok := token["access_token"].(string)
	require.True(t, ok)
	refreshToken, ok := token["refresh_token"].(string)
	require.True(t, ok)

	rec = call(e, http.MethodGet, "/users/me", "", accessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created["id"], decode(t, rec)["id"])

	// A refresh token is not accepted as a bearer credential.
	rec = call(e, http.MethodGet, "/users/me", "", refreshToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPatch, "/users/me", `{"name":"Ana S."}`, accessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode(t, rec)
	assert.Equal(t, "Ana S.", updated["name"])
	assert.Equal(t, "ana@ex.com", updated["email"])
	assert.NotEqual(t, created["updated_at"], updated["updated_at"])

	rec = call(e, http.MethodPost, "/users/token/refresh", `{"refresh_token":"`+refreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode(t, rec), "refresh_token")

	rec = call(e, http.MethodDelete, "/users/me", "", accessToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = call(e, http.MethodGet, "/users/me", "", accessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", decode(t, rec)["code"])

	rec = call(e, http.MethodPost, "/users/token/refresh", `{"refresh_token":"`+refreshToken+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_DuplicateRegistration(t *testing.T) {
	e, store := newTestServer(t)

	rec := call(e, http.MethodPost, "/users", `{"name":"Ana Silva","email":"ana@ex.com","password":"abc12345"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(e, http.MethodPost, "/users", `{"name":"Other","email":"ANA@ex.com","password":"xyz98765"}`, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_ALREADY_EXISTS", decode(t, rec)["code"])

	first, err := store.FindByEmail(context.Background(), "ana@ex.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", first.Name)
}

func TestServer_SelfOnlyUpdate(t *testing.T) {
	e, _ := newTestServer(t)

	require.Equal(t, http.StatusCreated, call(e, http.MethodPost, "/users",
		`{"name":"Ana Silva","email":"ana@ex.com","phone":"11987654321","password":"abc12345"}`, "").Code)
	require.Equal(t, http.StatusCreated, call(e, http.MethodPost, "/users",
		`{"name":"Bruno Lima","email":"bruno@ex.com","phone":"21912345678","password":"abc12345"}`, "").Code)

	rec := call(e, http.MethodPost, "/users/login", `{"phone":"11987654321","password":"abc12345"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	accessToken, _ := decode(t, rec)["access_token"].(string)

	assert.Equal(t, http.StatusForbidden, call(e, http.MethodPut, "/users/2", `{"name":"Hacked"}`, accessToken).Code)
	assert.Equal(t, http.StatusOK, call(e, http.MethodPut, "/users/1", `{"name":"Ana Maria"}`, accessToken).Code)
	assert.Equal(t, http.StatusConflict, call(e, http.MethodPatch, "/users/me", `{"phone":"(21) 91234-5678"}`, accessToken).Code)

	rec = call(e, http.MethodGet, "/users?offset=1&limit=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	items, ok := page["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "bruno@ex.com", items[0].(map[string]any)["email"])

	assert.Equal(t, http.StatusUnprocessableEntity, call(e, http.MethodGet, "/users?limit=1000", "", "").Code)
}

func TestServer_UnknownLoginPhone(t *testing.T) {
	e, _ := newTestServer(t)

	rec := call(e, http.MethodPost, "/users/login", `{"phone":"11900000000","password":"abc12345"}`, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))
}

func TestServer_MetricsEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	call(e, http.MethodGet, "/health", "", "")
	rec := call(e, http.MethodGet, "/metrics", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `accounts_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
