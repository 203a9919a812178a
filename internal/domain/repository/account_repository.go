// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"accounts/internal/domain/entity"
)

// AccountRepository defines the persistence operations for accounts.
// Implementations translate storage failures into domain errors: a missing row
// becomes ErrAccountNotFound, a unique violation becomes ErrDuplicateEmail or
// ErrDuplicatePhone.
type AccountRepository interface {
	// Create persists a new account and fills in ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, account *entity.Account) error

	FindByID(ctx context.Context, id int64) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByPhone(ctx context.Context, phone string) (*entity.Account, error)

	// List returns accounts ordered by ascending ID.
	List(ctx context.Context, offset, limit int) ([]*entity.Account, error)

	// Update writes every mutable field of the account and advances UpdatedAt.
	Update(ctx context.Context, account *entity.Account) error

	Delete(ctx context.Context, id int64) error
}
