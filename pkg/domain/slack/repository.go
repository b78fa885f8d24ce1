package slack

import (
	"context"

	"github.com/allayhq/api/pkg/domain/shared"
)

// UserRepository defines the interface for Slack user profile persistence.
type UserRepository interface {
	// Save upserts a profile keyed by (tenantID, slackUserID).
	Save(ctx context.Context, u *User) error
	GetBySlackUserID(ctx context.Context, tenantID shared.ID, slackUserID string) (*User, error)
	ListByTenant(ctx context.Context, tenantID shared.ID) ([]*User, error)
}

// WorkspaceRepository defines the interface for per-tenant workspace
// configuration persistence.
type WorkspaceRepository interface {
	GetConfig(ctx context.Context, tenantID shared.ID) (*WorkspaceConfig, error)
	SaveConfig(ctx context.Context, tenantID shared.ID, cfg *WorkspaceConfig) error
	// FindTenantByTeamID maps a Slack team to the tenant whose install is
	// currently connected to it. Inbound event deliveries only carry the
	// team ID.
	FindTenantByTeamID(ctx context.Context, teamID string) (shared.ID, error)
}
