package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmolina/divvy/internal/models"
)

// CreateUser persists a new user account, generating the ID and creation
// timestamp when unset.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?", email)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?", id)
}

func (s *SQLiteStore) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
