// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

import "context"

// PasswordHasher derives and checks password hashes. Work is CPU-bound, so
// implementations run it off the caller's goroutine and honour ctx.
type PasswordHasher interface {
	// Hash returns a self-describing hash string with a fresh random salt.
	Hash(ctx context.Context, password string) (string, error)

	// Verify reports whether password matches hash. Malformed or unsupported
	// hashes never match.
	Verify(ctx context.Context, password, hash string) bool
}
