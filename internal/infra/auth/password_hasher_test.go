package auth

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"accounts/config"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
	"accounts/internal/infra/metrics"
)

// testHasherConfig keeps the cost low so the suite stays fast.
func testHasherConfig(algorithm string) *config.Config {
	cfg := &config.Config{}
	cfg.Hasher = config.HasherConfig{
		Algorithm:   algorithm,
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
		BcryptCost:  bcrypt.MinCost,
		Workers:     2,
	}

	return cfg
}

func newTestHasher(t *testing.T, algorithm string) service.PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(testHasherConfig(algorithm), nil)
	require.NoError(t, err)

	return h
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	for _, algorithm := range []string{"argon2id", "bcrypt"} {
		t.Run(algorithm, func(t *testing.T) {
			h := newTestHasher(t, algorithm)
			ctx := context.Background()

			hash, err := h.Hash(ctx, "abc12345")
			require.NoError(t, err)
			assert.NotEqual(t, "abc12345", hash)

			assert.True(t, h.Verify(ctx, "abc12345", hash))
			assert.False(t, h.Verify(ctx, "abc12346", hash))
			assert.False(t, h.Verify(ctx, "", hash))
		})
	}
}

func TestPasswordHasher_Argon2idFormat(t *testing.T) {
	h := newTestHasher(t, "argon2id")

	hash, err := h.Hash(context.Background(), "abc12345")
	require.NoError(t, err)

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 6)
	assert.Equal(t, "argon2id", parts[1])
	assert.Equal(t, "v=19", parts[2])
	assert.Equal(t, "m=8192,t=1,p=1", parts[3])
}

func TestPasswordHasher_FreshSaltPerCall(t *testing.T) {
	h := newTestHasher(t, "argon2id")
	ctx := context.Background()

	first, err := h.Hash(ctx, "abc12345")
	require.NoError(t, err)
	second, err := h.Hash(ctx, "abc12345")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify(ctx, "abc12345", first))
	assert.True(t, h.Verify(ctx, "abc12345", second))
}

func TestPasswordHasher_ShortPassword(t *testing.T) {
	h := newTestHasher(t, "argon2id")

	_, err := h.Hash(context.Background(), "abc1234")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestPasswordHasher_BcryptRejectsOverlongPassword(t *testing.T) {
	h := newTestHasher(t, "bcrypt")

	_, err := h.Hash(context.Background(), strings.Repeat("a1", 40))
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestPasswordHasher_VerifyAcceptsEitherAlgorithm(t *testing.T) {
	ctx := context.Background()
	argonHash, err := newTestHasher(t, "argon2id").Hash(ctx, "abc12345")
	require.NoError(t, err)
	bcryptHash, err := newTestHasher(t, "bcrypt").Hash(ctx, "abc12345")
	require.NoError(t, err)

	h := newTestHasher(t, "bcrypt")
	assert.True(t, h.Verify(ctx, "abc12345", argonHash))
	assert.True(t, h.Verify(ctx, "abc12345", bcryptHash))
}

func TestPasswordHasher_VerifyMalformedHashes(t *testing.T) {
	h := newTestHasher(t, "argon2id")
	ctx := context.Background()

	for _, hash := range []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$!!!",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHQ$ZGlnZXN0",
		"$argon2id$v=19$m=8192,t=1,p=0$c2FsdHNhbHQ$ZGlnZXN0",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$ZGlnZXN0",
		"$2a$04$short",
		"$scrypt$ln=15,r=8,p=1$c2FsdA$ZGlnZXN0",
	} {
		assert.False(t, h.Verify(ctx, "abc12345", hash), hash)
	}
}

func TestPasswordHasher_CancelledContext(t *testing.T) {
	h := newTestHasher(t, "argon2id")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "abc12345")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	assert.False(t, h.Verify(ctx, "abc12345", "$2a$04$anything"))
}

func TestPasswordHasher_ConcurrentUseAndMetrics(t *testing.T) {
	registry := metrics.NewRegistry()
	h, err := NewPasswordHasher(testHasherConfig("argon2id"), registry)
	require.NoError(t, err)

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := h.Hash(ctx, "abc12345")
			assert.NoError(t, err)
			assert.True(t, h.Verify(ctx, "abc12345", hash))
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, testutil.CollectAndCount(registry.HashDuration))
	assert.InDelta(t, 0, testutil.ToFloat64(registry.HashInFlight), 0)
}

func TestNewPasswordHasher_InvalidConfig(t *testing.T) {
	cfg := testHasherConfig("scrypt")
	_, err := NewPasswordHasher(cfg, nil)
	assert.Error(t, err)

	cfg = testHasherConfig("argon2id")
	cfg.Hasher.Memory = 0
	_, err = NewPasswordHasher(cfg, nil)
	assert.Error(t, err)

	cfg = testHasherConfig("bcrypt")
	cfg.Hasher.BcryptCost = 40
	_, err = NewPasswordHasher(cfg, nil)
	assert.Error(t, err)

	cfg = testHasherConfig("argon2id")
	cfg.Hasher.Workers = 0
	_, err = NewPasswordHasher(cfg, nil)
	assert.Error(t, err)
}
