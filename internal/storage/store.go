// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/jmolina/divvy/internal/models"
)

// Store defines the persistence operations the ledger service needs.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// Snapshots are stored as opaque strings under a key; the store never
// interprets them. That keeps the engine's codec the single authority on the
// snapshot format.
type Store interface {
	// GetSnapshot returns the encoded snapshot under key. The second return
	// distinguishes "absent" from an empty value.
	GetSnapshot(ctx context.Context, key string) (string, bool, error)

	// SetSnapshot writes the encoded snapshot under key, replacing any
	// previous value.
	SetSnapshot(ctx context.Context, key, value string) error

	// DeleteSnapshot removes the snapshot under key. Deleting an absent key
	// is not an error.
	DeleteSnapshot(ctx context.Context, key string) error

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email.
	// Returns nil and an error if the user is not found.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	// Returns nil and an error if the user is not found.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
