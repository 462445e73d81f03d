// Package models - journaling service data models
package models

import "time"

// User a registered journal owner
type User struct {
	// ID user ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,uuid_rfc4122"`

	// Email unique login email
	Email string `json:"email" gorm:"column:email;not null;unique" validate:"required,email"`

	// DisplayName user facing name
	DisplayName string `json:"display_name" gorm:"column:display_name;not null" validate:"required"`

	// PasswordHash PHC encoded password hash. Never serialized out.
	PasswordHash string `json:"-" gorm:"column:password_hash;not null" validate:"required"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}
