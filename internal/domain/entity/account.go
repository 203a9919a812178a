// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import "time"

// Account is a registered person. Email and, when present, Phone are unique
// across all accounts.
type Account struct {
	ID           int64     // Store-assigned identifier, immutable once created.
	Name         string    // Display name, trimmed, 2..120 characters.
	Email        string    // Lower-cased login email.
	Phone        *string   // Eleven digits, nil when the account has no phone.
	PasswordHash string    // PHC-formatted hash, never exposed outside the service.
	CreatedAt    time.Time // Set once by the store.
	UpdatedAt    time.Time // Advanced on every successful update.
}

// HasPhone reports whether a phone number is on file.
func (a *Account) HasPhone() bool {
	return a.Phone != nil && *a.Phone != ""
}

// AccountChanges carries the fields an update supplies. Nil means "leave as is".
type AccountChanges struct {
	Name         *string
	Email        *string
	Phone        *string
	PasswordHash *string
}

// IsEmpty reports whether no field was supplied.
func (c AccountChanges) IsEmpty() bool {
	return c.Name == nil && c.Email == nil && c.Phone == nil && c.PasswordHash == nil
}

// ApplyTo copies the supplied fields onto the account.
func (c AccountChanges) ApplyTo(account *Account) {
	if c.Name != nil {
		account.Name = *c.Name
	}
	if c.Email != nil {
		account.Email = *c.Email
	}
	if c.Phone != nil {
		phone := *c.Phone
		account.Phone = &phone
	}
	if c.PasswordHash != nil {
		account.PasswordHash = *c.PasswordHash
	}
}
