package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/allayhq/api/pkg/domain/session"
	"github.com/allayhq/api/pkg/domain/shared"
)

// sessionColumns is the list of columns to select for a session.
const sessionColumns = `id, user_id, token_hash, ip_address, user_agent, expires_at, is_active, created_at, last_activity_at`

// SessionRepository implements session.Repository using PostgreSQL.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token_hash, ip_address, user_agent, expires_at, is_active, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID().String(),
		s.UserID().String(),
		s.TokenHash(),
		nullString(s.IPAddress()),
		nullString(s.UserAgent()),
		s.ExpiresAt(),
		s.IsActive(),
		s.CreatedAt(),
		s.LastActivityAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: session token", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE token_hash = $1`, sessionColumns)

	row := r.db.QueryRowContext(ctx, query, tokenHash)
	s, err := r.scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: session", shared.ErrNotFound)
		}
		return nil, err
	}

	return s, nil
}

// Update persists changes to an existing session.
func (r *SessionRepository) Update(ctx context.Context, s *session.Session) error {
	query := `
		UPDATE sessions
		SET is_active = $2, last_activity_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, s.ID().String(), s.IsActive(), s.LastActivityAt())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session %s", shared.ErrNotFound, s.ID())
	}

	return nil
}

// InvalidateByTokenHash deactivates a session by its token hash.
func (r *SessionRepository) InvalidateByTokenHash(ctx context.Context, tokenHash string) error {
	query := `UPDATE sessions SET is_active = false WHERE token_hash = $1`

	if _, err := r.db.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	return nil
}

// InvalidateAllByUserID deactivates every session belonging to a user.
func (r *SessionRepository) InvalidateAllByUserID(ctx context.Context, userID shared.ID) error {
	query := `UPDATE sessions SET is_active = false WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID.String()); err != nil {
		return fmt.Errorf("failed to invalidate user sessions: %w", err)
	}

	return nil
}

// DeleteExpired removes sessions past their expiry. Returns the number of
// rows deleted.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < NOW()`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// scanSession scans a session row.
func (r *SessionRepository) scanSession(row *sql.Row) (*session.Session, error) {
	var (
		idStr          string
		userIDStr      string
		tokenHash      string
		ipAddress      sql.NullString
		userAgent      sql.NullString
		expiresAt      sql.NullTime
		isActive       bool
		createdAt      sql.NullTime
		lastActivityAt sql.NullTime
	)

	if err := row.Scan(&idStr, &userIDStr, &tokenHash, &ipAddress, &userAgent, &expiresAt, &isActive, &createdAt, &lastActivityAt); err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid session id in database: %w", err)
	}
	userID, err := shared.IDFromString(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in database: %w", err)
	}

	return session.Reconstitute(
		id,
		userID,
		tokenHash,
		nullStringValue(ipAddress),
		nullStringValue(userAgent),
		expiresAt.Time,
		isActive,
		createdAt.Time,
		lastActivityAt.Time,
	), nil
}
