// Package validation enforces the shape rules on user-supplied account fields
// and normalizes them into their stored form.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/errors"
)

const (
	NameMinLength     = 2
	NameMaxLength     = 120
	PhoneDigits       = 11
	PasswordMinLength = 8
	PasswordMaxLength = 128
)

// Rule names reported in field violations.
const (
	RuleRequired       = "required"
	RuleLength         = "length"
	RuleFormat         = "format"
	RuleDigits         = "digits"
	RuleLetterAndDigit = "letter_and_digit"
)

// Field names reported in field violations.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldPassword = "password"
)

var validate = validator.New()

// NormalizeName trims surrounding whitespace and checks the length bounds.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", violation(FieldName, RuleRequired, "name is required")
	}

	if n := utf8.RuneCountInString(name); n < NameMinLength || n > NameMaxLength {
		return "", violation(FieldName, RuleLength, "name must be between 2 and 120 characters")
	}

	return name, nil
}

// NormalizeEmail trims and lower-cases the address, then checks its syntax.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", violation(FieldEmail, RuleRequired, "email is required")
	}

	if err := validate.Var(email, "email"); err != nil {
		return "", violation(FieldEmail, RuleFormat, "email is not a valid address")
	}

	return email, nil
}

// NormalizePhone strips every non-digit character. A nil phone was not
// supplied and stays nil.
func NormalizePhone(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}

	phone := DigitsOnly(*raw)
	if len(phone) != PhoneDigits {
		return nil, violation(FieldPhone, RuleDigits, "phone must contain exactly 11 digits")
	}

	return &phone, nil
}

// DigitsOnly drops every character that is not an ASCII digit.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// ValidatePassword checks the password policy. The password is never altered.
func ValidatePassword(password string) error {
	if password == "" {
		return violation(FieldPassword, RuleRequired, "password is required")
	}

	if n := utf8.RuneCountInString(password); n < PasswordMinLength || n > PasswordMaxLength {
		return violation(FieldPassword, RuleLength, "password must be between 8 and 128 characters")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}

	if !hasLetter || !hasDigit {
		return violation(FieldPassword, RuleLetterAndDigit, "password must contain a letter and a digit")
	}

	return nil
}

func violation(field, rule, message string) error {
	return domainerrors.NewInvalidInput(domainerrors.FieldViolation{
		Field:   field,
		Rule:    rule,
		Message: message,
	})
}

// Collector gathers the violations of several field checks so a whole payload
// is reported at once.
type Collector struct {
	violations []domainerrors.FieldViolation
	other      error
}

// Add records err. Validation errors contribute their violations; any other
// error is kept and returned by Err in preference to violations.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) && appErr.Kind() == domainerrors.KindInvalidInput && len(appErr.Violations()) > 0 {
		c.violations = append(c.violations, appErr.Violations()...)

		return
	}

	if c.other == nil {
		c.other = err
	}
}

// Violation records a single rule failure directly.
func (c *Collector) Violation(field, rule, message string) {
	c.violations = append(c.violations, domainerrors.FieldViolation{Field: field, Rule: rule, Message: message})
}

// Err returns nil when nothing failed.
func (c *Collector) Err() error {
	if c.other != nil {
		return c.other
	}
	if len(c.violations) == 0 {
		return nil
	}

	return domainerrors.NewInvalidInput(c.violations...)
}
