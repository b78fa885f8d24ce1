package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/user"
)

// userColumns is the list of columns to select for a user.
const userColumns = `id, email, password_hash, first_name, last_name, is_active, created_at, updated_at`

// UserRepository implements user.Repository using PostgreSQL.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		u.ID().String(),
		u.Email(),
		u.PasswordHash(),
		nullString(u.FirstName()),
		nullString(u.LastName()),
		u.IsActive(),
		u.CreatedAt(),
		u.UpdatedAt(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user with email %s", shared.ErrAlreadyExists, u.Email())
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id shared.ID) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	row := r.db.QueryRowContext(ctx, query, id.String())
	u, err := r.scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
		}
		return nil, err
	}

	return u, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = lower($1)`, userColumns)

	row := r.db.QueryRowContext(ctx, query, email)
	u, err := r.scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user with email %s", shared.ErrNotFound, email)
		}
		return nil, err
	}

	return u, nil
}

// Update persists changes to an existing user.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		u.ID().String(),
		u.Email(),
		u.PasswordHash(),
		nullString(u.FirstName()),
		nullString(u.LastName()),
		u.IsActive(),
		u.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, u.ID())
	}

	return nil
}

// ExistsByEmail checks whether a user with the given email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = lower($1))`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// scanUser scans a user row.
func (r *UserRepository) scanUser(row *sql.Row) (*user.User, error) {
	var (
		idStr        string
		email        string
		passwordHash string
		firstName    sql.NullString
		lastName     sql.NullString
		isActive     bool
		createdAt    sql.NullTime
		updatedAt    sql.NullTime
	)

	if err := row.Scan(&idStr, &email, &passwordHash, &firstName, &lastName, &isActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in database: %w", err)
	}

	return user.Reconstitute(
		id,
		email,
		passwordHash,
		nullStringValue(firstName),
		nullStringValue(lastName),
		isActive,
		createdAt.Time,
		updatedAt.Time,
	), nil
}
