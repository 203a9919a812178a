// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"accounts/internal/errors"
)

const argon2idPrefix = "$argon2id$"

// Argon2idParams holds the cost parameters for new argon2id hashes.
type Argon2idParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type argon2idAlgorithm struct {
	params Argon2idParams
}

func newArgon2idAlgorithm(params Argon2idParams) (*argon2idAlgorithm, error) {
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 || params.SaltLength == 0 || params.KeyLength == 0 {
		return nil, errors.New("argon2id parameters must be fully configured")
	}

	return &argon2idAlgorithm{params: params}, nil
}

func (a *argon2idAlgorithm) name() string {
	return "argon2id"
}

func (a *argon2idAlgorithm) recognizes(encoded string) bool {
	return strings.HasPrefix(encoded, argon2idPrefix)
}

// hash returns $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<digest>
// with unpadded standard base64 for salt and digest.
func (a *argon2idAlgorithm) hash(password string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "generate salt")
	}

	digest := argon2.IDKey([]byte(password), salt, a.params.Iterations, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.params.Memory, a.params.Iterations, a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// verify recomputes the digest with the parameters embedded in encoded, so
// hashes made under older cost settings keep verifying.
func (a *argon2idAlgorithm) verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errors.New("malformed argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, errors.New("unsupported argon2id version")
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, errors.Wrap(err, "malformed argon2id parameters")
	}
	if memory == 0 || iterations == 0 || parallelism == 0 {
		return false, errors.New("argon2id parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errors.Wrap(err, "decode salt")
	}

	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return false, errors.New("decode digest")
	}

	candidate := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(digest)))

	return subtle.ConstantTimeCompare(digest, candidate) == 1, nil
}
