package conversation

import (
	"context"

	"github.com/allayhq/api/pkg/domain/shared"
)

// Repository defines the interface for conversation persistence.
type Repository interface {
	// Save upserts a conversation row keyed by (id, tenantID). The Slack
	// message timestamp is the natural idempotency key: replaying an
	// event overwrites the row instead of duplicating it.
	Save(ctx context.Context, c *Conversation) error

	GetByID(ctx context.Context, id string, tenantID shared.ID) (*Conversation, error)

	// ListRecentByTenant returns top-level and reply rows for a tenant,
	// newest-first by Slack timestamp, limited.
	ListRecentByTenant(ctx context.Context, tenantID shared.ID, limit int) ([]*Conversation, error)
}
