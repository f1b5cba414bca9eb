package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginAttempt records one authentication attempt. Rows are insert-only.
type LoginAttempt struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    *int64    `json:"user_id,omitempty" db:"user_id"` // Nil when the username matched no user
	Username  string    `json:"username" db:"username"`         // As supplied by the client
	Success   bool      `json:"success" db:"success"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the LoginAttempt model
func (LoginAttempt) TableName() string {
	return "login_attempts"
}

// NewLoginAttempt creates a failed LoginAttempt for username
func NewLoginAttempt(username, ipAddress string) *LoginAttempt {
	return &LoginAttempt{
		ID:        uuid.New(),
		Username:  username,
		IPAddress: ipAddress,
		Timestamp: time.Now(),
	}
}

// WithUser sets the user ID
func (a *LoginAttempt) WithUser(userID int64) *LoginAttempt {
	a.UserID = &userID
	return a
}

// Succeeded marks the attempt as successful
func (a *LoginAttempt) Succeeded() *LoginAttempt {
	a.Success = true
	return a
}
