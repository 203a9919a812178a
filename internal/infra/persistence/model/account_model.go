package model

import "time"

// AccountModel mirrors the 'accounts' table created by the embedded migrations.
type AccountModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"type:varchar(120);not null"`
	Email        string    `gorm:"type:varchar(320);not null;uniqueIndex:uq_accounts_email"`
	Phone        *string   `gorm:"type:varchar(11);uniqueIndex:uq_accounts_phone"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}
