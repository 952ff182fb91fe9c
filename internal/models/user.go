package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. Each user owns exactly one snapshot,
// keyed by their ID in storage.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for login.
	Email string

	// Name is the display name of the user.
	Name string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser creates a user with a fresh ID and creation timestamp.
func NewUser(email, name, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}
