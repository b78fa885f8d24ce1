package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/allayhq/api/internal/infra/slackapi"
	"github.com/allayhq/api/internal/infra/sse"
	"github.com/allayhq/api/internal/metrics"
	"github.com/allayhq/api/pkg/domain/conversation"
	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/slack"
	"github.com/allayhq/api/pkg/domain/user"
	"github.com/allayhq/api/pkg/logger"
)

// DefaultConversationLimit caps the dashboard conversation feed.
const DefaultConversationLimit = 50

// ConversationService handles the dashboard's conversation feed and
// outbound thread replies.
type ConversationService struct {
	conversations conversation.Repository
	workspaces    slack.WorkspaceRepository
	resolver      *ProfileResolver
	gateway       SlackGateway
	broadcaster   EventBroadcaster
	logger        *logger.Logger
}

// NewConversationService creates a new ConversationService.
func NewConversationService(
	conversations conversation.Repository,
	workspaces slack.WorkspaceRepository,
	resolver *ProfileResolver,
	gateway SlackGateway,
	broadcaster EventBroadcaster,
	log *logger.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		workspaces:    workspaces,
		resolver:      resolver,
		gateway:       gateway,
		broadcaster:   broadcaster,
		logger:        log.With("service", "conversation"),
	}
}

// ConversationView is a conversation enriched with the author's resolved
// profile, shaped for the dashboard.
type ConversationView struct {
	ID            string                     `json:"id"`
	ChannelID     string                     `json:"channelId"`
	ChannelName   string                     `json:"channelName,omitempty"`
	Content       string                     `json:"content"`
	UserID        string                     `json:"userId,omitempty"`
	UserName      string                     `json:"userName"`
	UserImage     string                     `json:"userImage,omitempty"`
	IsBot         bool                       `json:"isBot,omitempty"`
	Reactions     []conversation.Reaction    `json:"reactions"`
	ThreadReplies []conversation.ThreadReply `json:"threadReplies"`
	ThreadTs      string                     `json:"threadTs,omitempty"`
	Timestamp     time.Time                  `json:"timestamp"`
}

// ListRecent returns the newest conversations for a tenant with author
// profiles resolved. Profile resolution is best effort per row.
func (s *ConversationService) ListRecent(ctx context.Context, tenantID shared.ID, limit int) ([]*ConversationView, error) {
	if limit <= 0 || limit > DefaultConversationLimit {
		limit = DefaultConversationLimit
	}

	conversations, err := s.conversations.ListRecentByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	views := make([]*ConversationView, 0, len(conversations))
	for _, c := range conversations {
		views = append(views, s.toView(ctx, c))
	}
	return views, nil
}

// GetConversation returns one conversation with its author resolved.
func (s *ConversationService) GetConversation(ctx context.Context, tenantID shared.ID, id string) (*ConversationView, error) {
	c, err := s.conversations.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	return s.toView(ctx, c), nil
}

// toView enriches a conversation row with the author's profile.
func (s *ConversationService) toView(ctx context.Context, c *conversation.Conversation) *ConversationView {
	view := &ConversationView{
		ID:            c.ID(),
		ChannelID:     c.ChannelID(),
		ChannelName:   c.ChannelName(),
		Content:       c.Content(),
		UserID:        c.UserID(),
		UserName:      c.UserName(),
		Reactions:     c.Reactions(),
		ThreadReplies: c.ThreadReplies(),
		ThreadTs:      c.ThreadTs(),
		Timestamp:     c.SlackTimestamp(),
	}

	if strings.HasPrefix(c.UserID(), dashboardUserPrefix) {
		if view.UserName == "" {
			view.UserName = UnknownUserName
		}
		return view
	}

	profile := s.resolver.Resolve(ctx, c.TenantID(), c.UserID())
	if view.UserName == "" {
		view.UserName = profile.Name
	}
	view.UserImage = profile.ImageURL
	view.IsBot = profile.IsBot
	return view
}

// dashboardUserPrefix marks author IDs minted for dashboard users, who
// have no Slack identity of their own.
const dashboardUserPrefix = "dashboard-"

// placeholderAuthorID is the sentinel dashboard clients send instead of
// a Slack user ID when the reply author is the signed-in user.
const placeholderAuthorID = "current_user"

// CreateThreadReplyInput represents the input for a thread reply. A
// caller-supplied MessageTs keys the reply row and makes retries of the
// same reply idempotent; UserID attributes the reply to a Slack author
// instead of the signed-in dashboard user.
type CreateThreadReplyInput struct {
	Content   string `json:"content" validate:"required,min=1,max=4000"`
	MessageTs string `json:"messageTs" validate:"omitempty,max=64"`
	UserID    string `json:"userId" validate:"omitempty,max=64"`
	ChannelID string `json:"channelId" validate:"omitempty,max=64"`
}

// ThreadReplyView is the public projection of a created reply.
type ThreadReplyView struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
	ThreadTs  string    `json:"threadTs"`
}

// ThreadReplyResult is the created reply and its updated parent.
type ThreadReplyResult struct {
	Reply  *ThreadReplyView
	Parent *ConversationView
}

// CreateThreadReply posts a reply into a conversation's thread. The
// parent must exist; nothing is written when it does not. The reply row
// is keyed by the caller's messageTs when supplied, making a retried
// call upsert the same row and skip the duplicate parent append.
// Without one, the reply is relayed to Slack when the workspace is
// connected and keyed by the assigned timestamp, or by a synthetic one
// when the relay is skipped or fails. Relay and broadcast failures do
// not fail the reply.
func (s *ConversationService) CreateThreadReply(ctx context.Context, tenantID shared.ID, parentID string, u *user.User, input CreateThreadReplyInput) (*ThreadReplyResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", shared.ErrValidation)
	}

	parent, err := s.conversations.GetByID(ctx, parentID, tenantID)
	if err != nil {
		metrics.ThreadRepliesCreated.WithLabelValues(tenantID.String(), "parent_not_found").Inc()
		return nil, err
	}

	authorID, userName := s.resolveReplyAuthor(ctx, tenantID, u, input.UserID)

	channelID := strings.TrimSpace(input.ChannelID)
	if channelID == "" {
		channelID = parent.ChannelID()
	}

	replyTs := strings.TrimSpace(input.MessageTs)
	if replyTs == "" {
		replyTs = s.relayToSlack(ctx, tenantID, parent, content)
		if replyTs == "" {
			replyTs = syntheticTimestamp()
		}
	}

	row, err := conversation.NewThreadReplyRow(
		replyTs, tenantID,
		channelID, parent.ChannelName(),
		content, authorID, userName,
		parent.ID(),
	)
	if err != nil {
		return nil, err
	}
	if err := s.conversations.Save(ctx, row); err != nil {
		metrics.ThreadRepliesCreated.WithLabelValues(tenantID.String(), "error").Inc()
		return nil, fmt.Errorf("failed to save thread reply: %w", err)
	}

	appended := parent.AppendThreadReply(conversation.ThreadReply{
		ID:          replyTs,
		MessageText: content,
		MessageTs:   replyTs,
		UserID:      authorID,
		ChannelID:   channelID,
		PostedAt:    time.Now().UTC(),
	})
	if appended {
		if err := s.conversations.Save(ctx, parent); err != nil {
			metrics.ThreadRepliesCreated.WithLabelValues(tenantID.String(), "error").Inc()
			return nil, fmt.Errorf("failed to update parent conversation: %w", err)
		}
	}

	metrics.ThreadRepliesCreated.WithLabelValues(tenantID.String(), "created").Inc()
	s.logger.Info("thread reply created",
		"tenant_id", tenantID.String(),
		"parent_id", parent.ID(),
		"reply_id", replyTs,
	)

	s.broadcast(tenantID, sse.ConversationUpdate{
		Type:                 "new_thread_reply",
		ConversationID:       replyTs,
		ParentConversationID: parent.ID(),
		ChannelID:            parent.ChannelID(),
		Content:              content,
		UserName:             userName,
		Timestamp:            replyTs,
	})

	return &ThreadReplyResult{
		Reply: &ThreadReplyView{
			ID:        row.ID(),
			Content:   row.Content(),
			UserName:  row.UserName(),
			Timestamp: row.SlackTimestamp(),
			ThreadTs:  row.ThreadTs(),
		},
		Parent: s.toView(ctx, parent),
	}, nil
}

// resolveReplyAuthor maps the reply's optional Slack author to a display
// identity. An absent or placeholder ID means the reply originates from
// the signed-in dashboard user.
func (s *ConversationService) resolveReplyAuthor(ctx context.Context, tenantID shared.ID, u *user.User, slackUserID string) (string, string) {
	slackUserID = strings.TrimSpace(slackUserID)
	if slackUserID != "" && slackUserID != placeholderAuthorID {
		return slackUserID, s.resolver.ResolveName(ctx, tenantID, slackUserID)
	}

	userName := u.FullName()
	if userName == "" {
		userName = UnknownUserName
	}
	return dashboardUserPrefix + u.ID().String(), userName
}

// relayToSlack posts the reply into the source thread and returns the
// Slack-assigned timestamp, or empty when the relay was skipped or
// failed.
func (s *ConversationService) relayToSlack(ctx context.Context, tenantID shared.ID, parent *conversation.Conversation, content string) string {
	if s.gateway == nil {
		return ""
	}

	cfg, err := s.workspaces.GetConfig(ctx, tenantID)
	if err != nil || !cfg.Connected() {
		return ""
	}

	resp, err := s.gateway.PostMessage(ctx, cfg.BotAccessToken, slackapi.ChatPostMessageRequest{
		Channel:  parent.ChannelID(),
		Text:     content,
		ThreadTs: parent.ID(),
	})
	if err != nil {
		s.logger.Warn("slack relay failed, keeping reply local",
			"tenant_id", tenantID.String(),
			"parent_id", parent.ID(),
			"error", err,
		)
		return ""
	}
	return resp.Ts
}

// broadcast fans a conversation update out to stream subscribers.
func (s *ConversationService) broadcast(tenantID shared.ID, update sse.ConversationUpdate) {
	if s.broadcaster == nil {
		return
	}
	delivered := s.broadcaster.Broadcast(tenantID.String(), sse.NewConversationUpdateEvent(update))
	metrics.StreamEventsBroadcast.WithLabelValues(tenantID.String(), string(sse.EventConversationUpdate)).Add(float64(delivered))
}

// syntheticTimestamp mints a Slack-shaped timestamp for replies that were
// never relayed, keeping the row keyed like every other conversation.
func syntheticTimestamp() string {
	now := time.Now()
	return fmt.Sprintf("%d.%06d", now.Unix(), now.Nanosecond()/1000)
}
