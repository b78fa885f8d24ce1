// Package notification delivers transactional email over SMTP.
package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/allayhq/api/internal/config"
	"github.com/allayhq/api/pkg/logger"
)

// Mailer sends transactional email. Implementations must be safe for
// concurrent use.
type Mailer interface {
	SendInvitationEmail(ctx context.Context, msg InvitationEmail) error
	SendWelcomeEmail(ctx context.Context, msg WelcomeEmail) error
}

// InvitationEmail carries everything the invitation template needs.
type InvitationEmail struct {
	RecipientEmail string
	InviterName    string
	WorkspaceName  string
	Role           string
	Message        string
	InvitationID   string
	ExpiresAt      time.Time
}

// WelcomeEmail carries everything the welcome template needs.
type WelcomeEmail struct {
	RecipientEmail string
	RecipientName  string
}

// SMTPMailer is the SMTP-backed Mailer.
type SMTPMailer struct {
	cfg    *config.SMTPConfig
	logger *logger.Logger
}

// NewSMTPMailer creates an SMTP mailer from the app config.
func NewSMTPMailer(cfg *config.SMTPConfig, log *logger.Logger) (*SMTPMailer, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("smtp is not configured")
	}
	return &SMTPMailer{cfg: cfg, logger: log.With("component", "mailer")}, nil
}

// SendInvitationEmail sends a workspace invitation.
func (m *SMTPMailer) SendInvitationEmail(ctx context.Context, msg InvitationEmail) error {
	acceptURL := fmt.Sprintf("%s/invitations/%s/accept",
		strings.TrimRight(m.cfg.BaseURL, "/"), url.PathEscape(msg.InvitationID))

	body, err := renderTemplate(invitationTemplate, struct {
		InviterName   string
		WorkspaceName string
		Role          string
		Message       string
		AcceptURL     string
		ExpiresAt     string
	}{
		InviterName:   msg.InviterName,
		WorkspaceName: msg.WorkspaceName,
		Role:          msg.Role,
		Message:       msg.Message,
		AcceptURL:     acceptURL,
		ExpiresAt:     msg.ExpiresAt.Format("January 2, 2006"),
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s invited you to join %s", msg.InviterName, msg.WorkspaceName)
	return m.send(ctx, msg.RecipientEmail, subject, body)
}

// SendWelcomeEmail sends the post-registration welcome.
func (m *SMTPMailer) SendWelcomeEmail(ctx context.Context, msg WelcomeEmail) error {
	body, err := renderTemplate(welcomeTemplate, struct {
		Name    string
		BaseURL string
	}{
		Name:    msg.RecipientName,
		BaseURL: m.cfg.BaseURL,
	})
	if err != nil {
		return err
	}

	return m.send(ctx, msg.RecipientEmail, "Welcome to Allay", body)
}

// send builds the MIME message and delivers it over SMTP.
func (m *SMTPMailer) send(_ context.Context, to, subject, htmlBody string) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)

	if err := m.sendSMTP(to, buf.Bytes()); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	m.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}

// sendSMTP connects, optionally upgrades to TLS, authenticates, and
// submits the message.
func (m *SMTPMailer) sendSMTP(to string, message []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	tlsConfig := &tls.Config{
		ServerName:         m.cfg.Host,
		InsecureSkipVerify: m.cfg.SkipVerify, //nolint:gosec // Configurable for dev environments
	}

	conn, err := net.DialTimeout("tcp", addr, m.cfg.Timeout)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("new SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if m.cfg.TLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err = client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("STARTTLS: %w", err)
			}
		}
	}

	if m.cfg.User != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err = client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}

	_ = client.Quit()
	return nil
}

// NopMailer logs instead of sending, for environments without SMTP.
type NopMailer struct {
	logger *logger.Logger
}

// NewNopMailer creates a mailer that only logs.
func NewNopMailer(log *logger.Logger) *NopMailer {
	return &NopMailer{logger: log.With("component", "mailer")}
}

// SendInvitationEmail logs the invitation instead of delivering it.
func (m *NopMailer) SendInvitationEmail(_ context.Context, msg InvitationEmail) error {
	m.logger.Info("smtp disabled, skipping invitation email",
		"to", msg.RecipientEmail,
		"workspace", msg.WorkspaceName,
	)
	return nil
}

// SendWelcomeEmail logs the welcome instead of delivering it.
func (m *NopMailer) SendWelcomeEmail(_ context.Context, msg WelcomeEmail) error {
	m.logger.Info("smtp disabled, skipping welcome email", "to", msg.RecipientEmail)
	return nil
}

// renderTemplate executes an HTML template into a string.
func renderTemplate(text string, data any) (string, error) {
	tmpl, err := template.New("email").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

const invitationTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>You're invited</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f5f5f5; }
        .container { max-width: 600px; margin: 20px auto; background: #fff; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .header { background: #4f46e5; color: #fff; padding: 20px; }
        .header h1 { margin: 0; font-size: 20px; font-weight: 600; }
        .content { padding: 20px; }
        .message { background: #f8f9fa; border-left: 3px solid #4f46e5; border-radius: 4px; padding: 12px 15px; margin: 15px 0; font-style: italic; }
        .button { display: inline-block; background: #4f46e5; color: #fff; padding: 12px 24px; border-radius: 6px; text-decoration: none; font-weight: 500; margin: 15px 0; }
        .footer { background: #f8f9fa; padding: 15px 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.InviterName}} invited you to {{.WorkspaceName}}</h1>
        </div>
        <div class="content">
            <p>You've been invited to join <strong>{{.WorkspaceName}}</strong> on Allay as a <strong>{{.Role}}</strong>.</p>
            {{if .Message}}<div class="message">{{.Message}}</div>{{end}}
            <a href="{{.AcceptURL}}" class="button">Accept Invitation</a>
            <p>This invitation expires on {{.ExpiresAt}}.</p>
        </div>
        <div class="footer">
            If you weren't expecting this invitation, you can safely ignore this email.
        </div>
    </div>
</body>
</html>`

const welcomeTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Welcome to Allay</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f5f5f5; }
        .container { max-width: 600px; margin: 20px auto; background: #fff; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .header { background: #4f46e5; color: #fff; padding: 20px; }
        .header h1 { margin: 0; font-size: 20px; font-weight: 600; }
        .content { padding: 20px; }
        .button { display: inline-block; background: #4f46e5; color: #fff; padding: 12px 24px; border-radius: 6px; text-decoration: none; font-weight: 500; margin: 15px 0; }
        .footer { background: #f8f9fa; padding: 15px 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Welcome{{if .Name}}, {{.Name}}{{end}}!</h1>
        </div>
        <div class="content">
            <p>Your Allay account is ready. Create a workspace, connect your Slack, and start managing conversations from one place.</p>
            <a href="{{.BaseURL}}" class="button">Open Dashboard</a>
        </div>
        <div class="footer">
            Questions? Just reply to this email.
        </div>
    </div>
</body>
</html>`
