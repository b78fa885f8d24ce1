package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/allayhq/api/internal/infra/sse"
	"github.com/allayhq/api/internal/metrics"
	"github.com/allayhq/api/pkg/domain/conversation"
	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/slack"
	"github.com/allayhq/api/pkg/logger"
)

// SlackService errors.
var (
	ErrSlackNotConnected = errors.New("slack workspace is not connected")
)

// SlackService ingests Slack events into conversations and manages the
// per-tenant workspace connection.
type SlackService struct {
	conversations conversation.Repository
	workspaces    slack.WorkspaceRepository
	resolver      *ProfileResolver
	gateway       SlackGateway
	broadcaster   EventBroadcaster
	logger        *logger.Logger
}

// NewSlackService creates a new SlackService.
func NewSlackService(
	conversations conversation.Repository,
	workspaces slack.WorkspaceRepository,
	resolver *ProfileResolver,
	gateway SlackGateway,
	broadcaster EventBroadcaster,
	log *logger.Logger,
) *SlackService {
	return &SlackService{
		conversations: conversations,
		workspaces:    workspaces,
		resolver:      resolver,
		gateway:       gateway,
		broadcaster:   broadcaster,
		logger:        log.With("service", "slack"),
	}
}

// MessageEvent is a normalized inbound Slack message event.
type MessageEvent struct {
	Channel     string
	ChannelName string
	User        string
	Text        string
	Ts          string
	ThreadTs    string
}

// ReactionEvent is a normalized inbound Slack reaction event.
type ReactionEvent struct {
	User     string
	Reaction string
	ItemTs   string
	Channel  string
}

// ResolveTenantByTeam maps an inbound event's team ID to the tenant
// whose install is connected to it.
func (s *SlackService) ResolveTenantByTeam(ctx context.Context, teamID string) (shared.ID, error) {
	return s.workspaces.FindTenantByTeamID(ctx, teamID)
}

// HandleMessage ingests a message event. Replays are harmless: the row is
// keyed by the Slack message timestamp, so a duplicate event overwrites
// instead of duplicating.
func (s *SlackService) HandleMessage(ctx context.Context, tenantID shared.ID, ev MessageEvent) error {
	if ev.Ts == "" || ev.Channel == "" {
		return fmt.Errorf("%w: message event missing ts or channel", shared.ErrValidation)
	}

	if ev.ThreadTs != "" && ev.ThreadTs != ev.Ts {
		return s.ingestThreadReply(ctx, tenantID, ev)
	}
	return s.ingestMessage(ctx, tenantID, ev)
}

// ingestMessage writes a top-level conversation row.
func (s *SlackService) ingestMessage(ctx context.Context, tenantID shared.ID, ev MessageEvent) error {
	userName := s.resolver.ResolveName(ctx, tenantID, ev.User)

	c, err := conversation.New(ev.Ts, tenantID, ev.Channel, ev.ChannelName, ev.Text, ev.User, userName)
	if err != nil {
		return err
	}
	if err := s.conversations.Save(ctx, c); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	metrics.ConversationsIngested.WithLabelValues(tenantID.String(), "message").Inc()
	s.broadcast(tenantID, sse.ConversationUpdate{
		Type:           "new_message",
		ConversationID: ev.Ts,
		ChannelID:      ev.Channel,
		Content:        ev.Text,
		UserName:       userName,
		Timestamp:      ev.Ts,
	})
	return nil
}

// ingestThreadReply dual-writes a reply: its own row plus a denormalized
// entry on the parent. A missing parent does not block the standalone
// row; the parent may arrive later or predate the integration.
func (s *SlackService) ingestThreadReply(ctx context.Context, tenantID shared.ID, ev MessageEvent) error {
	userName := s.resolver.ResolveName(ctx, tenantID, ev.User)

	row, err := conversation.NewThreadReplyRow(ev.Ts, tenantID, ev.Channel, ev.ChannelName, ev.Text, ev.User, userName, ev.ThreadTs)
	if err != nil {
		return err
	}
	if err := s.conversations.Save(ctx, row); err != nil {
		return fmt.Errorf("failed to save thread reply: %w", err)
	}

	parent, err := s.conversations.GetByID(ctx, ev.ThreadTs, tenantID)
	if err != nil {
		if shared.IsNotFound(err) {
			s.logger.Debug("thread reply without known parent",
				"tenant_id", tenantID.String(),
				"reply_ts", ev.Ts,
				"parent_ts", ev.ThreadTs,
			)
		} else {
			s.logger.Warn("parent lookup failed for thread reply",
				"tenant_id", tenantID.String(),
				"parent_ts", ev.ThreadTs,
				"error", err,
			)
		}
	} else {
		appended := parent.AppendThreadReply(conversation.ThreadReply{
			ID:          shared.NewID().String(),
			MessageText: ev.Text,
			MessageTs:   ev.Ts,
			UserID:      ev.User,
			ChannelID:   ev.Channel,
			PostedAt:    row.SlackTimestamp(),
		})
		if appended {
			if err := s.conversations.Save(ctx, parent); err != nil {
				s.logger.Warn("failed to update parent with thread reply",
					"tenant_id", tenantID.String(),
					"parent_ts", ev.ThreadTs,
					"error", err,
				)
			}
		}
	}

	metrics.ConversationsIngested.WithLabelValues(tenantID.String(), "thread_reply").Inc()
	s.broadcast(tenantID, sse.ConversationUpdate{
		Type:                 "new_thread_reply",
		ConversationID:       ev.Ts,
		ParentConversationID: ev.ThreadTs,
		ChannelID:            ev.Channel,
		Content:              ev.Text,
		UserName:             userName,
		Timestamp:            ev.Ts,
	})
	return nil
}

// HandleMessageChanged updates the content of an edited message.
func (s *SlackService) HandleMessageChanged(ctx context.Context, tenantID shared.ID, ts, newText string) error {
	c, err := s.conversations.GetByID(ctx, ts, tenantID)
	if err != nil {
		if shared.IsNotFound(err) {
			// Edit of a message we never saw; nothing to update.
			return nil
		}
		return err
	}

	c.UpdateContent(newText)
	if err := s.conversations.Save(ctx, c); err != nil {
		return fmt.Errorf("failed to save edited conversation: %w", err)
	}

	metrics.ConversationsIngested.WithLabelValues(tenantID.String(), "message_changed").Inc()
	s.broadcast(tenantID, sse.ConversationUpdate{
		Type:           "message_updated",
		ConversationID: ts,
		ChannelID:      c.ChannelID(),
		Content:        newText,
		UserName:       c.UserName(),
		Timestamp:      ts,
	})
	return nil
}

// HandleReactionAdded records a reaction on a conversation.
func (s *SlackService) HandleReactionAdded(ctx context.Context, tenantID shared.ID, ev ReactionEvent) error {
	return s.applyReaction(ctx, tenantID, ev, true)
}

// HandleReactionRemoved removes a reaction from a conversation.
func (s *SlackService) HandleReactionRemoved(ctx context.Context, tenantID shared.ID, ev ReactionEvent) error {
	return s.applyReaction(ctx, tenantID, ev, false)
}

func (s *SlackService) applyReaction(ctx context.Context, tenantID shared.ID, ev ReactionEvent, added bool) error {
	c, err := s.conversations.GetByID(ctx, ev.ItemTs, tenantID)
	if err != nil {
		if shared.IsNotFound(err) {
			// Reaction on a message we never saw.
			return nil
		}
		return err
	}

	eventType := "reaction_removed"
	if added {
		c.AddReaction(ev.Reaction, ev.User)
		eventType = "reaction_added"
	} else {
		c.RemoveReaction(ev.Reaction, ev.User)
	}

	if err := s.conversations.Save(ctx, c); err != nil {
		return fmt.Errorf("failed to save reaction: %w", err)
	}

	metrics.ConversationsIngested.WithLabelValues(tenantID.String(), eventType).Inc()
	s.broadcast(tenantID, sse.ConversationUpdate{
		Type:           eventType,
		ConversationID: c.ID(),
		ChannelID:      c.ChannelID(),
		Timestamp:      c.ID(),
	})
	return nil
}

// CompleteOAuth finishes a Slack OAuth install for a tenant.
func (s *SlackService) CompleteOAuth(ctx context.Context, tenantID shared.ID, code string) (*slack.WorkspaceConfig, error) {
	if s.gateway == nil {
		return nil, ErrSlackNotConnected
	}

	resp, err := s.gateway.ExchangeOAuthCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange failed: %w", err)
	}

	cfg, err := s.workspaces.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace config: %w", err)
	}

	cfg.Connect(resp.AccessToken, resp.BotUserID, resp.Team.ID, resp.Team.Name, resp.Scopes())
	if err := s.workspaces.SaveConfig(ctx, tenantID, cfg); err != nil {
		return nil, fmt.Errorf("failed to save workspace config: %w", err)
	}

	s.logger.Info("slack workspace connected",
		"tenant_id", tenantID.String(),
		"team_id", resp.Team.ID,
		"team_name", resp.Team.Name,
	)
	return cfg, nil
}

// Disconnect drops the tenant's Slack installation.
func (s *SlackService) Disconnect(ctx context.Context, tenantID shared.ID) error {
	cfg, err := s.workspaces.GetConfig(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to get workspace config: %w", err)
	}
	if !cfg.Connected() {
		return ErrSlackNotConnected
	}

	cfg.Disconnect()
	if err := s.workspaces.SaveConfig(ctx, tenantID, cfg); err != nil {
		return fmt.Errorf("failed to save workspace config: %w", err)
	}

	s.logger.Info("slack workspace disconnected", "tenant_id", tenantID.String())
	return nil
}

// Status returns the tenant's Slack connection state.
func (s *SlackService) Status(ctx context.Context, tenantID shared.ID) (*slack.WorkspaceConfig, error) {
	return s.workspaces.GetConfig(ctx, tenantID)
}

// broadcast fans a conversation update out to stream subscribers.
func (s *SlackService) broadcast(tenantID shared.ID, update sse.ConversationUpdate) {
	if s.broadcaster == nil {
		return
	}
	delivered := s.broadcaster.Broadcast(tenantID.String(), sse.NewConversationUpdateEvent(update))
	metrics.StreamEventsBroadcast.WithLabelValues(tenantID.String(), string(sse.EventConversationUpdate)).Add(float64(delivered))
}
