package models

import (
	"time"
)

// User is an account in a tenant data store
type User struct {
	ID                int64             `json:"id" db:"id"`
	Username          string            `json:"username" db:"username"`
	PasswordHash      string            `json:"-" db:"password_hash"` // bcrypt
	Email             string            `json:"email,omitempty" db:"email"`
	Active            bool              `json:"active" db:"active"`
	Names             map[string]string `json:"names,omitempty" db:"names"` // Localized display names keyed by language
	AvatarPath        string            `json:"avatar_path,omitempty" db:"avatar_path"`
	ResetToken        string            `json:"-" db:"reset_token"` // Last issued password-reset token
	PasswordChangedAt *time.Time        `json:"-" db:"password_changed_at"`
	Roles             []string          `json:"roles,omitempty"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// HasEmail reports whether the user has an address to send mail to
func (u *User) HasEmail() bool {
	return u.Email != ""
}

// IssuedBeforePasswordChange reports whether a token issued at iat predates the
// last password change. Token timestamps have second precision.
func (u *User) IssuedBeforePasswordChange(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat.Before(u.PasswordChangedAt.Truncate(time.Second))
}
