package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/allayhq/api/internal/app"
	"github.com/allayhq/api/internal/infra/http/middleware"
	"github.com/allayhq/api/internal/infra/slackapi"
	"github.com/allayhq/api/internal/metrics"
	"github.com/allayhq/api/pkg/apierror"
	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/logger"
	"github.com/allayhq/api/pkg/validator"
)

// maxEventBytes caps inbound Slack event payloads.
const maxEventBytes = 1 << 20

// SlackHandler serves the inbound event webhook and per-tenant
// integration management endpoints.
type SlackHandler struct {
	slack     *app.SlackService
	verifier  *slackapi.SignatureVerifier
	validator *validator.Validator
	logger    *logger.Logger
}

// NewSlackHandler creates a new Slack handler.
func NewSlackHandler(slack *app.SlackService, verifier *slackapi.SignatureVerifier, v *validator.Validator, log *logger.Logger) *SlackHandler {
	return &SlackHandler{
		slack:     slack,
		verifier:  verifier,
		validator: v,
		logger:    log.With("handler", "slack"),
	}
}

// eventEnvelope is the outer shape of an Events API delivery.
type eventEnvelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge"`
	TeamID    string          `json:"team_id"`
	Event     json.RawMessage `json:"event"`
}

// innerEvent covers the event types we consume. Unknown fields are
// ignored so new Slack payload additions never break ingestion.
type innerEvent struct {
	Type        string `json:"type"`
	Subtype     string `json:"subtype"`
	Channel     string `json:"channel"`
	ChannelName string `json:"channel_name"`
	User        string `json:"user"`
	BotID       string `json:"bot_id"`
	Text        string `json:"text"`
	Ts          string `json:"ts"`
	ThreadTs    string `json:"thread_ts"`
	Reaction    string `json:"reaction"`
	Message     *struct {
		Text string `json:"text"`
		Ts   string `json:"ts"`
	} `json:"message"`
	Item *struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
		Ts      string `json:"ts"`
	} `json:"item"`
}

// Events handles POST /slack/events. The request is authenticated by
// its signature, not a session. Processing errors still return 200:
// Slack retries non-2xx deliveries and a poison event would otherwise
// be redelivered forever.
func (h *SlackHandler) Events(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		apierror.BadRequest("Failed to read request body").WriteJSON(w)
		return
	}

	if err := h.verifier.Verify(
		r.Header.Get("X-Slack-Signature"),
		r.Header.Get("X-Slack-Request-Timestamp"),
		body,
	); err != nil {
		h.logger.Warn("rejected slack event delivery", "error", err)
		apierror.Unauthorized("Invalid request signature").WriteJSON(w)
		return
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		apierror.BadRequest("Invalid JSON body").WriteJSON(w)
		return
	}

	switch envelope.Type {
	case "url_verification":
		respondJSON(w, http.StatusOK, map[string]string{"challenge": envelope.Challenge})
		return
	case "event_callback":
		h.processEventCallback(r, envelope)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *SlackHandler) processEventCallback(r *http.Request, envelope eventEnvelope) {
	var ev innerEvent
	if err := json.Unmarshal(envelope.Event, &ev); err != nil {
		h.logger.Warn("malformed slack event payload", "team_id", envelope.TeamID, "error", err)
		return
	}

	metrics.SlackEventsReceived.WithLabelValues(ev.Type).Inc()

	tenantID, err := h.slack.ResolveTenantByTeam(r.Context(), envelope.TeamID)
	if err != nil {
		// Deliveries can trail a disconnect; drop them quietly.
		h.logger.Debug("slack event for unknown team", "team_id", envelope.TeamID)
		return
	}

	if err := h.dispatch(r, tenantID, ev); err != nil {
		h.logger.Warn("slack event processing failed",
			"tenant_id", tenantID.String(),
			"event_type", ev.Type,
			"error", err,
		)
	}
}

func (h *SlackHandler) dispatch(r *http.Request, tenantID shared.ID, ev innerEvent) error {
	ctx := r.Context()

	switch ev.Type {
	case "message":
		// Bot messages include our own relayed replies; ingesting them
		// would duplicate every dashboard reply.
		if ev.BotID != "" || ev.Subtype == "bot_message" {
			return nil
		}
		switch ev.Subtype {
		case "":
			return h.slack.HandleMessage(ctx, tenantID, app.MessageEvent{
				Channel:     ev.Channel,
				ChannelName: ev.ChannelName,
				User:        ev.User,
				Text:        ev.Text,
				Ts:          ev.Ts,
				ThreadTs:    ev.ThreadTs,
			})
		case "message_changed":
			if ev.Message == nil {
				return nil
			}
			return h.slack.HandleMessageChanged(ctx, tenantID, ev.Message.Ts, ev.Message.Text)
		default:
			return nil
		}
	case "reaction_added", "reaction_removed":
		if ev.Item == nil || ev.Item.Type != "message" {
			return nil
		}
		reaction := app.ReactionEvent{
			User:     ev.User,
			Reaction: ev.Reaction,
			ItemTs:   ev.Item.Ts,
			Channel:  ev.Item.Channel,
		}
		if ev.Type == "reaction_added" {
			return h.slack.HandleReactionAdded(ctx, tenantID, reaction)
		}
		return h.slack.HandleReactionRemoved(ctx, tenantID, reaction)
	default:
		return nil
	}
}

// SlackStatusResponse is the integration state shown on the dashboard.
type SlackStatusResponse struct {
	Connected bool   `json:"connected"`
	TeamID    string `json:"teamId,omitempty"`
	TeamName  string `json:"teamName,omitempty"`
	BotUserID string `json:"botUserId,omitempty"`
}

// Status handles GET /tenants/{tenantID}/slack.
func (h *SlackHandler) Status(w http.ResponseWriter, r *http.Request) {
	m := middleware.GetMembership(r.Context())
	cfg, err := h.slack.Status(r.Context(), m.TenantID())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, SlackStatusResponse{
		Connected: cfg.Connected(),
		TeamID:    cfg.TeamID,
		TeamName:  cfg.TeamName,
		BotUserID: cfg.BotUserID,
	})
}

// CompleteOAuthInput carries the authorization code from the OAuth
// redirect.
type CompleteOAuthInput struct {
	Code string `json:"code" validate:"required"`
}

// CompleteOAuth handles POST /tenants/{tenantID}/slack/oauth.
func (h *SlackHandler) CompleteOAuth(w http.ResponseWriter, r *http.Request) {
	var input CompleteOAuthInput
	if err := decodeAndValidate(r, h.validator, &input); err != nil {
		respondError(w, r, err)
		return
	}

	m := middleware.GetMembership(r.Context())
	cfg, err := h.slack.CompleteOAuth(r.Context(), m.TenantID(), input.Code)
	if err != nil {
		respondError(w, r, mapSlackError(err))
		return
	}

	respondJSON(w, http.StatusOK, SlackStatusResponse{
		Connected: cfg.Connected(),
		TeamID:    cfg.TeamID,
		TeamName:  cfg.TeamName,
		BotUserID: cfg.BotUserID,
	})
}

// Disconnect handles DELETE /tenants/{tenantID}/slack.
func (h *SlackHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	m := middleware.GetMembership(r.Context())
	if err := h.slack.Disconnect(r.Context(), m.TenantID()); err != nil {
		respondError(w, r, mapSlackError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapSlackError(err error) error {
	if errors.Is(err, app.ErrSlackNotConnected) {
		return apierror.Conflict("Slack workspace is not connected")
	}
	return err
}
