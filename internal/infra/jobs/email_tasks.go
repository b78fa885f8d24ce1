// Package jobs provides background job definitions and handlers using Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/allayhq/api/internal/infra/notification"
	"github.com/allayhq/api/pkg/logger"
)

// Task types for email jobs
const (
	TypeEmailInvitation = "email:invitation"
	TypeEmailWelcome    = "email:welcome"
)

// InvitationEmailPayload contains data for sending invitation emails.
type InvitationEmailPayload struct {
	RecipientEmail string    `json:"recipient_email"`
	InviterName    string    `json:"inviter_name"`
	WorkspaceName  string    `json:"workspace_name"`
	Role           string    `json:"role"`
	Message        string    `json:"message,omitempty"`
	InvitationID   string    `json:"invitation_id"`
	TenantID       string    `json:"tenant_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// WelcomeEmailPayload contains data for sending welcome emails.
type WelcomeEmailPayload struct {
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
	UserID    string `json:"user_id"`
}

// NewInvitationEmailTask creates a new invitation email task.
func NewInvitationEmailTask(payload InvitationEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invitation payload: %w", err)
	}
	return asynq.NewTask(
		TypeEmailInvitation,
		data,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Queue("email"),
	), nil
}

// NewWelcomeEmailTask creates a new welcome email task.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal welcome email payload: %w", err)
	}
	return asynq.NewTask(
		TypeEmailWelcome,
		data,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Queue("email"),
	), nil
}

// EmailTaskHandler handles email task processing.
type EmailTaskHandler struct {
	mailer notification.Mailer
	logger *logger.Logger
}

// NewEmailTaskHandler creates a new email task handler.
func NewEmailTaskHandler(mailer notification.Mailer, log *logger.Logger) *EmailTaskHandler {
	return &EmailTaskHandler{
		mailer: mailer,
		logger: log.With("handler", "email_tasks"),
	}
}

// HandleInvitationEmail processes invitation email tasks.
func (h *EmailTaskHandler) HandleInvitationEmail(ctx context.Context, t *asynq.Task) error {
	var payload InvitationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing invitation email",
		"email", payload.RecipientEmail,
		"workspace", payload.WorkspaceName,
		"invitation_id", payload.InvitationID,
	)

	err := h.mailer.SendInvitationEmail(ctx, notification.InvitationEmail{
		RecipientEmail: payload.RecipientEmail,
		InviterName:    payload.InviterName,
		WorkspaceName:  payload.WorkspaceName,
		Role:           payload.Role,
		Message:        payload.Message,
		InvitationID:   payload.InvitationID,
		ExpiresAt:      payload.ExpiresAt,
	})
	if err != nil {
		h.logger.Error("failed to send invitation email",
			"email", payload.RecipientEmail,
			"error", err,
		)
		return err
	}

	h.logger.Info("invitation email sent",
		"email", payload.RecipientEmail,
		"workspace", payload.WorkspaceName,
	)
	return nil
}

// HandleWelcomeEmail processes welcome email tasks.
func (h *EmailTaskHandler) HandleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	var payload WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing welcome email",
		"email", payload.UserEmail,
		"user_id", payload.UserID,
	)

	err := h.mailer.SendWelcomeEmail(ctx, notification.WelcomeEmail{
		RecipientEmail: payload.UserEmail,
		RecipientName:  payload.UserName,
	})
	if err != nil {
		h.logger.Error("failed to send welcome email",
			"email", payload.UserEmail,
			"error", err,
		)
		return err
	}

	h.logger.Info("welcome email sent", "email", payload.UserEmail)
	return nil
}
