// Package validator adapts go-playground/validator to echo and reports
// failures as domain field violations.
package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/errors"
)

// Validator implements echo.Validator.
type Validator struct {
	validate *validator.Validate
}

// New returns a validator that names fields after their json tags.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return &Validator{validate: validate}
}

// Validate checks the struct tags of i. Every failing field is reported in a
// single invalid-input error.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errors.Wrap(err, "validate request")
	}

	violations := make([]domainerrors.FieldViolation, 0, len(validationErrors))
	for _, fe := range validationErrors {
		violations = append(violations, domainerrors.FieldViolation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}

	return domainerrors.NewInvalidInput(violations...)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	default:
		return fe.Field() + " failed on " + fe.Tag()
	}
}
