package auth

import (
	"context"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"accounts/config"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
	"accounts/internal/infra/metrics"
)

const minPasswordLength = 8

type hashAlgorithm interface {
	name() string
	recognizes(encoded string) bool
	hash(password string) (string, error)
	verify(password, encoded string) (bool, error)
}

// pooledHasher runs every hash computation on a bounded set of goroutines so
// request handlers never burn CPU on key derivation themselves.
type pooledHasher struct {
	primary    hashAlgorithm
	algorithms []hashAlgorithm
	workers    *semaphore.Weighted
	metrics    *metrics.Registry
}

// NewPasswordHasher builds the hasher from the hasher section of the config.
// New hashes use the configured algorithm; Verify accepts argon2id and bcrypt.
func NewPasswordHasher(cfg *config.Config, registry *metrics.Registry) (service.PasswordHasher, error) {
	hc := cfg.Hasher

	argon, err := newArgon2idAlgorithm(Argon2idParams{
		Memory:      hc.Memory,
		Iterations:  hc.Iterations,
		Parallelism: hc.Parallelism,
		SaltLength:  hc.SaltLength,
		KeyLength:   hc.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	bc, err := newBcryptAlgorithm(hc.BcryptCost)
	if err != nil {
		return nil, err
	}

	if hc.Workers <= 0 {
		return nil, errors.New("hasher workers must be positive")
	}

	h := &pooledHasher{
		algorithms: []hashAlgorithm{argon, bc},
		workers:    semaphore.NewWeighted(int64(hc.Workers)),
		metrics:    registry,
	}

	switch hc.Algorithm {
	case "", argon.name():
		h.primary = argon
	case bc.name():
		h.primary = bc
	default:
		return nil, errors.Errorf("unsupported hash algorithm %q", hc.Algorithm)
	}

	return h, nil
}

func (h *pooledHasher) Hash(ctx context.Context, password string) (string, error) {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return "", domainerrors.NewInvalidInput(domainerrors.FieldViolation{
			Field:   "password",
			Rule:    "length",
			Message: "password must be at least 8 characters",
		})
	}
	if _, isBcrypt := h.primary.(*bcryptAlgorithm); isBcrypt && len(password) > bcryptMaxPasswordBytes {
		return "", domainerrors.NewInvalidInput(domainerrors.FieldViolation{
			Field:   "password",
			Rule:    "length",
			Message: "password is too long for the configured hash algorithm",
		})
	}

	var (
		encoded string
		hashErr error
	)
	if err := h.run(ctx, h.primary.name(), "hash", func() {
		encoded, hashErr = h.primary.hash(password)
	}); err != nil {
		return "", err
	}
	if hashErr != nil {
		return "", errors.Wrap(domainerrors.ErrPasswordHashFailed, hashErr.Error())
	}

	return encoded, nil
}

func (h *pooledHasher) Verify(ctx context.Context, password, encoded string) bool {
	if encoded == "" {
		return false
	}

	algo := h.algorithmFor(encoded)
	if algo == nil {
		return false
	}

	var matched bool
	if err := h.run(ctx, algo.name(), "verify", func() {
		// A malformed hash is reported as a mismatch.
		matched, _ = algo.verify(password, encoded)
	}); err != nil {
		return false
	}

	return matched
}

func (h *pooledHasher) algorithmFor(encoded string) hashAlgorithm {
	for _, algo := range h.algorithms {
		if algo.recognizes(encoded) {
			return algo
		}
	}

	return nil
}

// run executes fn on a pool goroutine and waits for it or for ctx. When ctx
// ends first the computation finishes in the background and its slot is
// released then; fn's results must not be read in that case.
func (h *pooledHasher) run(ctx context.Context, algorithm, operation string, fn func()) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	start := time.Now()
	if err := h.workers.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "acquire hashing worker")
	}

	done := make(chan struct{})
	go func() {
		defer h.workers.Release(1)
		defer close(done)

		if h.metrics != nil {
			h.metrics.HashInFlight.Inc()
			defer h.metrics.HashInFlight.Dec()
		}

		fn()
	}()

	select {
	case <-done:
		if h.metrics != nil {
			h.metrics.HashDuration.WithLabelValues(algorithm, operation).Observe(time.Since(start).Seconds())
		}

		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}
