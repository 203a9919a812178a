// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/infra/persistence/model"
)

// updated_at is stored with microsecond precision.
const timestampResolution = time.Microsecond

// accountRepository implements repository.AccountRepository using GORM.
type accountRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAccountRepository returns a repository bound to db, which may be a transaction.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db, now: time.Now}
}

func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	now := repo.now().UTC().Truncate(timestampResolution)
	m := fromAccountDomain(account)
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := repo.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateWriteError(err, "failed to create account")
	}

	account.ID = m.ID
	account.CreatedAt = m.CreatedAt
	account.UpdatedAt = m.UpdatedAt

	return nil
}

func (repo *accountRepository) FindByID(ctx context.Context, id int64) (*entity.Account, error) {
	return repo.findOne(ctx, "failed to find account by id", "id = ?", id)
}

func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return repo.findOne(ctx, "failed to find account by email", "email = ?", email)
}

func (repo *accountRepository) FindByPhone(ctx context.Context, phone string) (*entity.Account, error) {
	return repo.findOne(ctx, "failed to find account by phone", "phone = ?", phone)
}

func (repo *accountRepository) findOne(ctx context.Context, details string, query string, arg any) (*entity.Account, error) {
	var m model.AccountModel
	if err := repo.db.WithContext(ctx).Where(query, arg).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrAccountNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, details)
	}

	return toAccountDomain(&m), nil
}

func (repo *accountRepository) List(ctx context.Context, offset, limit int) ([]*entity.Account, error) {
	var models []*model.AccountModel
	if err := repo.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list accounts")
	}

	accounts := make([]*entity.Account, 0, len(models))
	for _, m := range models {
		accounts = append(accounts, toAccountDomain(m))
	}

	return accounts, nil
}

// Update writes the mutable columns. updated_at is moved strictly past its
// previous value even when the clock has not advanced.
func (repo *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	updatedAt := repo.now().UTC().Truncate(timestampResolution)
	if !updatedAt.After(account.UpdatedAt) {
		updatedAt = account.UpdatedAt.Add(timestampResolution)
	}

	result := repo.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"name":          account.Name,
			"email":         account.Email,
			"phone":         account.Phone,
			"password_hash": account.PasswordHash,
			"updated_at":    updatedAt,
		})
	if result.Error != nil {
		return translateWriteError(result.Error, "failed to update account")
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAccountNotFound
	}

	account.UpdatedAt = updatedAt

	return nil
}

func (repo *accountRepository) Delete(ctx context.Context, id int64) error {
	result := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&model.AccountModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete account")
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAccountNotFound
	}

	return nil
}

func fromAccountDomain(account *entity.Account) *model.AccountModel {
	return &model.AccountModel{
		ID:           account.ID,
		Name:         account.Name,
		Email:        account.Email,
		Phone:        account.Phone,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
}

func toAccountDomain(m *model.AccountModel) *entity.Account {
	return &entity.Account{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		Phone:        m.Phone,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
