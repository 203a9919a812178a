package postgres

import (
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	domainerrors "accounts/internal/domain/errors"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"
	pgCheckViolation   = "23514"
)

// Constraint names declared in the accounts migration.
const (
	constraintEmailUnique = "uq_accounts_email"
	constraintPhoneUnique = "uq_accounts_phone"
	constraintNameLength  = "ck_accounts_name_length"
	constraintPhoneDigits = "ck_accounts_phone_digits"
)

// translateWriteError turns insert and update failures into domain errors.
// Driver text never leaves this package.
func translateWriteError(err error, details string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return uniqueViolationError(pgErr.ConstraintName)
		case pgCheckViolation:
			return checkViolationError(pgErr.ConstraintName, err, details)
		case pgNotNullViolation:
			return domainerrors.NewInvalidInput(domainerrors.FieldViolation{
				Field: pgErr.ColumnName,
				Rule:  "required",
			})
		}
	}

	if isUniqueConstraintViolation(err) {
		return domainerrors.ErrAccountConflict
	}

	return domainerrors.NewDatabaseExecuteError(err, details)
}

func uniqueViolationError(constraint string) error {
	switch constraint {
	case constraintEmailUnique:
		return domainerrors.ErrDuplicateEmail
	case constraintPhoneUnique:
		return domainerrors.ErrDuplicatePhone
	default:
		return domainerrors.ErrAccountConflict
	}
}

func checkViolationError(constraint string, err error, details string) error {
	switch constraint {
	case constraintNameLength:
		return domainerrors.NewInvalidInput(domainerrors.FieldViolation{Field: "name", Rule: "length"})
	case constraintPhoneDigits:
		return domainerrors.NewInvalidInput(domainerrors.FieldViolation{Field: "phone", Rule: "digits"})
	default:
		return domainerrors.NewDatabaseExecuteError(err, details)
	}
}

// isUniqueConstraintViolation covers drivers configured with TranslateError,
// where the constraint name is no longer available.
func isUniqueConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
