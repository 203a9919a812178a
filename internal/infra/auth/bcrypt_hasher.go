package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"accounts/internal/errors"
)

// bcrypt only reads the first 72 bytes of a password.
const bcryptMaxPasswordBytes = 72

type bcryptAlgorithm struct {
	cost int
}

func newBcryptAlgorithm(cost int) (*bcryptAlgorithm, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	return &bcryptAlgorithm{cost: cost}, nil
}

func (b *bcryptAlgorithm) name() string {
	return "bcrypt"
}

func (b *bcryptAlgorithm) recognizes(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

func (b *bcryptAlgorithm) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt generate")
	}

	return string(hashed), nil
}

func (b *bcryptAlgorithm) verify(password, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, errors.Wrap(err, "bcrypt compare")
	}
}
