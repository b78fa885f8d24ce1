package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/allayhq/api/internal/app"
	"github.com/allayhq/api/internal/config"
	"github.com/allayhq/api/internal/infra/http/middleware"
	"github.com/allayhq/api/internal/infra/sse"
	"github.com/allayhq/api/internal/metrics"
	"github.com/allayhq/api/pkg/apierror"
	"github.com/allayhq/api/pkg/logger"
	"github.com/allayhq/api/pkg/validator"
)

// ConversationHandler serves the conversation feed, thread replies and
// the live event stream.
type ConversationHandler struct {
	conversations *app.ConversationService
	hub           *sse.Hub
	validator     *validator.Validator
	sseConfig     config.SSEConfig
	logger        *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(
	conversations *app.ConversationService,
	hub *sse.Hub,
	v *validator.Validator,
	sseCfg config.SSEConfig,
	log *logger.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		hub:           hub,
		validator:     v,
		sseConfig:     sseCfg,
		logger:        log.With("handler", "conversation"),
	}
}

// List handles GET /tenants/{tenantID}/conversations.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	m := middleware.GetMembership(r.Context())
	limit := parseQueryInt(r.URL.Query().Get("limit"), app.DefaultConversationLimit)

	views, err := h.conversations.ListRecent(r.Context(), m.TenantID(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

// Get handles GET /tenants/{tenantID}/conversations/{conversationID}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	m := middleware.GetMembership(r.Context())
	id := chi.URLParam(r, "conversationID")

	view, err := h.conversations.GetConversation(r.Context(), m.TenantID(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// CreateThreadReply handles POST /tenants/{tenantID}/conversations/{conversationID}/replies.
func (h *ConversationHandler) CreateThreadReply(w http.ResponseWriter, r *http.Request) {
	var input app.CreateThreadReplyInput
	if err := decodeAndValidate(r, h.validator, &input); err != nil {
		respondError(w, r, err)
		return
	}

	m := middleware.GetMembership(r.Context())
	u := middleware.GetUser(r.Context())
	parentID := chi.URLParam(r, "conversationID")

	result, err := h.conversations.CreateThreadReply(r.Context(), m.TenantID(), parentID, u, input)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"threadReply": result.Reply,
	})
}

// Stream handles GET /tenants/{tenantID}/conversations/stream. It holds
// the connection open and forwards the tenant's events as they happen;
// there is no replay of events missed while disconnected. The handler
// goroutine is the only writer on the connection, so heartbeats and
// broadcast frames never interleave.
func (h *ConversationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apierror.InternalError(nil).WriteJSON(w)
		return
	}

	m := middleware.GetMembership(r.Context())
	tenantID := m.TenantID().String()

	sub, err := h.hub.Subscribe(tenantID)
	if err != nil {
		respondError(w, r, apierror.New(http.StatusServiceUnavailable, "STREAM_UNAVAILABLE", "Event stream is shutting down"))
		return
	}
	defer h.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable proxy buffering so frames reach the client immediately.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.StreamSubscribers.WithLabelValues(tenantID).Inc()
	defer metrics.StreamSubscribers.WithLabelValues(tenantID).Dec()

	h.logger.Debug("stream subscriber connected",
		"tenant_id", tenantID,
		"user_id", middleware.GetUserID(r.Context()),
	)

	heartbeat := time.NewTicker(h.sseConfig.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case frame := <-sub.Frames():
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			frame, err := sse.NewHeartbeatEvent().Frame()
			if err != nil {
				continue
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
			metrics.StreamEventsBroadcast.WithLabelValues(tenantID, string(sse.EventHeartbeat)).Inc()
		}
	}
}
