package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/allayhq/api/pkg/domain/conversation"
	"github.com/allayhq/api/pkg/domain/shared"
)

// conversationColumns is the list of columns to select for a conversation.
const conversationColumns = `id, tenant_id, channel_id, channel_name, content, user_id, user_name, reactions, thread_replies, thread_ts, slack_timestamp, created_at, updated_at`

// ConversationRepository implements conversation.Repository using PostgreSQL.
// Reactions and thread replies live in JSONB columns; the whole aggregate is
// written on every save.
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Save upserts a conversation keyed by (id, tenant_id). The Slack message
// timestamp is the id, so replaying an event overwrites instead of
// duplicating.
func (r *ConversationRepository) Save(ctx context.Context, c *conversation.Conversation) error {
	reactions, err := toJSONB(c.Reactions())
	if err != nil {
		return fmt.Errorf("failed to marshal reactions: %w", err)
	}
	threadReplies, err := toJSONB(c.ThreadReplies())
	if err != nil {
		return fmt.Errorf("failed to marshal thread replies: %w", err)
	}

	query := `
		INSERT INTO conversations (id, tenant_id, channel_id, channel_name, content, user_id, user_name, reactions, thread_replies, thread_ts, slack_timestamp, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id, tenant_id) DO UPDATE
		SET content = EXCLUDED.content,
			user_name = EXCLUDED.user_name,
			reactions = EXCLUDED.reactions,
			thread_replies = EXCLUDED.thread_replies,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		c.ID(),
		c.TenantID().String(),
		c.ChannelID(),
		nullString(c.ChannelName()),
		c.Content(),
		nullString(c.UserID()),
		nullString(c.UserName()),
		reactions,
		threadReplies,
		nullString(c.ThreadTs()),
		c.SlackTimestamp(),
		c.CreatedAt(),
		c.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	return nil
}

// GetByID retrieves a conversation by its Slack timestamp id within a tenant.
func (r *ConversationRepository) GetByID(ctx context.Context, id string, tenantID shared.ID) (*conversation.Conversation, error) {
	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE id = $1 AND tenant_id = $2`, conversationColumns)

	c, err := r.scanConversation(r.db.QueryRowContext(ctx, query, id, tenantID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: conversation %s", shared.ErrNotFound, id)
		}
		return nil, err
	}

	return c, nil
}

// ListRecentByTenant lists a tenant's conversations newest-first by Slack
// timestamp, limited.
func (r *ConversationRepository) ListRecentByTenant(ctx context.Context, tenantID shared.ID, limit int) ([]*conversation.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM conversations
		WHERE tenant_id = $1
		ORDER BY slack_timestamp DESC
		LIMIT $2
	`, conversationColumns)

	rows, err := r.db.QueryContext(ctx, query, tenantID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*conversation.Conversation
	for rows.Next() {
		c, err := r.scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}

	return conversations, rows.Err()
}

// scanConversation scans a conversation row.
func (r *ConversationRepository) scanConversation(row scanner) (*conversation.Conversation, error) {
	var (
		id             string
		tenantIDStr    string
		channelID      string
		channelName    sql.NullString
		content        string
		userID         sql.NullString
		userName       sql.NullString
		reactionsRaw   []byte
		repliesRaw     []byte
		threadTs       sql.NullString
		slackTimestamp sql.NullTime
		createdAt      sql.NullTime
		updatedAt      sql.NullTime
	)

	if err := row.Scan(&id, &tenantIDStr, &channelID, &channelName, &content, &userID, &userName, &reactionsRaw, &repliesRaw, &threadTs, &slackTimestamp, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	tenantID, err := shared.IDFromString(tenantIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id in database: %w", err)
	}

	var reactions []conversation.Reaction
	if err := fromJSONB(reactionsRaw, &reactions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reactions: %w", err)
	}
	var replies []conversation.ThreadReply
	if err := fromJSONB(repliesRaw, &replies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thread replies: %w", err)
	}

	return conversation.Reconstitute(
		id,
		tenantID,
		channelID,
		nullStringValue(channelName),
		content,
		nullStringValue(userID),
		nullStringValue(userName),
		reactions,
		replies,
		nullStringValue(threadTs),
		slackTimestamp.Time,
		createdAt.Time,
		updatedAt.Time,
	), nil
}
