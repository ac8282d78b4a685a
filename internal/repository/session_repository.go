package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
)

// SessionRepository provides data access methods for the session table.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the provided database connection.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// InsertSession stores a new session.
func (r *SessionRepository) InsertSession(ctx context.Context, s model.Session) error {
	query := `INSERT INTO session (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, formatTimestamp(s.CreatedAt), formatTimestamp(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID, expired or not.
// Returns apperrors.ErrSessionNotFound if no row matches.
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (model.Session, error) {
	query := `SELECT id, user_id, created_at, expires_at FROM session WHERE id = ?`

	var s model.Session
	var createdAtStr, expiresAtStr string
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&s.ID, &s.UserID, &createdAtStr, &expiresAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to scan session table results: %w", err)
	}

	if s.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Session{}, fmt.Errorf("session %s: %w", s.ID, err)
	}
	if s.ExpiresAt, err = ParseTime(expiresAtStr); err != nil {
		return model.Session{}, fmt.Errorf("session %s: %w", s.ID, err)
	}
	return s, nil
}

// DeleteSession removes a session.
// Returns apperrors.ErrSessionNotFound if no row matches.
func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return checkRowsAffected(result, apperrors.ErrSessionNotFound)
}

// DeleteExpiredSessions removes every session that expired at or before now
// and returns how many were removed.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE expires_at <= ?`, formatTimestamp(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
