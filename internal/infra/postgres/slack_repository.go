package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/slack"
)

// slackUserColumns is the list of columns to select for a Slack user profile.
const slackUserColumns = `id, tenant_id, slack_user_id, real_name, display_name, email, title, image_url, timezone, is_bot, is_admin, is_active, last_seen_at, created_at, updated_at`

// SlackUserRepository implements slack.UserRepository using PostgreSQL.
type SlackUserRepository struct {
	db *DB
}

// NewSlackUserRepository creates a new SlackUserRepository.
func NewSlackUserRepository(db *DB) *SlackUserRepository {
	return &SlackUserRepository{db: db}
}

// Save upserts a profile keyed by (tenant_id, slack_user_id).
func (r *SlackUserRepository) Save(ctx context.Context, u *slack.User) error {
	query := `
		INSERT INTO slack_users (id, tenant_id, slack_user_id, real_name, display_name, email, title, image_url, timezone, is_bot, is_admin, is_active, last_seen_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (tenant_id, slack_user_id) DO UPDATE
		SET real_name = EXCLUDED.real_name,
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			title = EXCLUDED.title,
			image_url = EXCLUDED.image_url,
			timezone = EXCLUDED.timezone,
			is_bot = EXCLUDED.is_bot,
			is_admin = EXCLUDED.is_admin,
			is_active = EXCLUDED.is_active,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		u.ID().String(),
		u.TenantID().String(),
		u.SlackUserID(),
		nullString(u.RealName()),
		nullString(u.DisplayName()),
		nullString(u.Email()),
		nullString(u.Title()),
		nullString(u.ImageURL()),
		nullString(u.Timezone()),
		u.IsBot(),
		u.IsAdmin(),
		u.IsActive(),
		nullTime(u.LastSeenAt()),
		u.CreatedAt(),
		u.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save slack user: %w", err)
	}

	return nil
}

// GetBySlackUserID retrieves a profile by (tenant, slack user id).
func (r *SlackUserRepository) GetBySlackUserID(ctx context.Context, tenantID shared.ID, slackUserID string) (*slack.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM slack_users WHERE tenant_id = $1 AND slack_user_id = $2`, slackUserColumns)

	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, tenantID.String(), slackUserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: slack user %s", shared.ErrNotFound, slackUserID)
		}
		return nil, err
	}

	return u, nil
}

// ListByTenant lists a tenant's synced profiles.
func (r *SlackUserRepository) ListByTenant(ctx context.Context, tenantID shared.ID) ([]*slack.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM slack_users WHERE tenant_id = $1 ORDER BY real_name ASC`, slackUserColumns)

	rows, err := r.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list slack users: %w", err)
	}
	defer rows.Close()

	var users []*slack.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// scanUser scans a Slack user profile row.
func (r *SlackUserRepository) scanUser(row scanner) (*slack.User, error) {
	var (
		idStr       string
		tenantIDStr string
		slackUserID string
		realName    sql.NullString
		displayName sql.NullString
		email       sql.NullString
		title       sql.NullString
		imageURL    sql.NullString
		timezone    sql.NullString
		isBot       bool
		isAdmin     bool
		isActive    bool
		lastSeenAt  sql.NullTime
		createdAt   sql.NullTime
		updatedAt   sql.NullTime
	)

	if err := row.Scan(&idStr, &tenantIDStr, &slackUserID, &realName, &displayName, &email, &title, &imageURL, &timezone, &isBot, &isAdmin, &isActive, &lastSeenAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid slack user id in database: %w", err)
	}
	tenantID, err := shared.IDFromString(tenantIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id in database: %w", err)
	}

	return slack.ReconstituteUser(
		id,
		tenantID,
		slackUserID,
		nullStringValue(realName),
		nullStringValue(displayName),
		nullStringValue(email),
		nullStringValue(title),
		nullStringValue(imageURL),
		nullStringValue(timezone),
		isBot,
		isAdmin,
		isActive,
		nullTimeValue(lastSeenAt),
		createdAt.Time,
		updatedAt.Time,
	), nil
}

// SlackWorkspaceRepository implements slack.WorkspaceRepository using
// PostgreSQL. The config is one JSONB row per tenant.
type SlackWorkspaceRepository struct {
	db *DB
}

// NewSlackWorkspaceRepository creates a new SlackWorkspaceRepository.
func NewSlackWorkspaceRepository(db *DB) *SlackWorkspaceRepository {
	return &SlackWorkspaceRepository{db: db}
}

// GetConfig retrieves the workspace config for a tenant. Returns an empty,
// unconfigured config when no row exists.
func (r *SlackWorkspaceRepository) GetConfig(ctx context.Context, tenantID shared.ID) (*slack.WorkspaceConfig, error) {
	query := `SELECT config FROM slack_workspaces WHERE tenant_id = $1`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, tenantID.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &slack.WorkspaceConfig{}, nil
		}
		return nil, fmt.Errorf("failed to get workspace config: %w", err)
	}

	var cfg slack.WorkspaceConfig
	if err := fromJSONB(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workspace config: %w", err)
	}

	return &cfg, nil
}

// FindTenantByTeamID maps a Slack team to its connected tenant.
func (r *SlackWorkspaceRepository) FindTenantByTeamID(ctx context.Context, teamID string) (shared.ID, error) {
	query := `
		SELECT tenant_id FROM slack_workspaces
		WHERE config->>'team_id' = $1
		  AND (config->>'is_configured')::boolean = true
	`

	var raw string
	err := r.db.QueryRowContext(ctx, query, teamID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shared.ID{}, fmt.Errorf("%w: no workspace for team %s", shared.ErrNotFound, teamID)
		}
		return shared.ID{}, fmt.Errorf("failed to find tenant by team: %w", err)
	}

	return shared.IDFromString(raw)
}

// SaveConfig upserts the workspace config for a tenant.
func (r *SlackWorkspaceRepository) SaveConfig(ctx context.Context, tenantID shared.ID, cfg *slack.WorkspaceConfig) error {
	raw, err := toJSONB(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace config: %w", err)
	}

	query := `
		INSERT INTO slack_workspaces (tenant_id, config, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant_id) DO UPDATE
		SET config = EXCLUDED.config, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, tenantID.String(), raw); err != nil {
		return fmt.Errorf("failed to save workspace config: %w", err)
	}

	return nil
}
