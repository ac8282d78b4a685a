package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// UserRepository provides data access methods for the app_user table.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository with the provided database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) getUser(ctx context.Context, where string, arg any) (model.User, error) {
	query := `SELECT id, username, password_hash, created_at FROM app_user WHERE ` + where

	var u model.User
	var createdAtStr string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to scan app_user table results: %w", err)
	}

	u.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return u, nil
}

// GetUser retrieves a user by ID.
// Returns apperrors.ErrUserNotFound if no row matches.
func (r *UserRepository) GetUser(ctx context.Context, userID string) (model.User, error) {
	return r.getUser(ctx, "id = ?", userID)
}

// GetUserByUsername retrieves a user by username.
// Returns apperrors.ErrUserNotFound if no row matches.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getUser(ctx, "username = ?", username)
}

// InsertUser stores a new user. The caller assigns ID and CreatedAt.
// Returns apperrors.ErrDuplicateEntry if the username is taken.
func (r *UserRepository) InsertUser(ctx context.Context, u model.User) error {
	if _, err := r.GetUserByUsername(ctx, u.Username); err == nil {
		return apperrors.ErrDuplicateEntry
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		return err
	}

	query := `INSERT INTO app_user (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Username, u.PasswordHash, formatTimestamp(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash of a user.
// Returns apperrors.ErrUserNotFound if no row matches.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE app_user SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return checkRowsAffected(result, apperrors.ErrUserNotFound)
}
