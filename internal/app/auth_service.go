// Package app contains the application services that orchestrate domain
// operations across repositories and infrastructure.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allayhq/api/internal/config"
	"github.com/allayhq/api/internal/infra/jobs"
	"github.com/allayhq/api/pkg/domain/session"
	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/user"
	"github.com/allayhq/api/pkg/jwt"
	"github.com/allayhq/api/pkg/logger"
	"github.com/allayhq/api/pkg/password"
)

// AuthService errors.
var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountDisabled      = errors.New("account is disabled")
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrSessionInvalid       = errors.New("session is invalid or expired")
	ErrRegistrationDisabled = errors.New("registration is disabled")
)

// EmailEnqueuer enqueues transactional email jobs.
type EmailEnqueuer interface {
	EnqueueInvitationEmail(ctx context.Context, payload jobs.InvitationEmailPayload) error
	EnqueueWelcomeEmail(ctx context.Context, payload jobs.WelcomeEmailPayload) error
}

// AuthService handles registration, login and session validation.
type AuthService struct {
	userRepo       user.Repository
	sessionRepo    session.Repository
	passwordHasher *password.Hasher
	tokenGenerator *jwt.Generator
	emailEnqueuer  EmailEnqueuer
	config         config.AuthConfig
	logger         *logger.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo user.Repository,
	sessionRepo session.Repository,
	emailEnqueuer EmailEnqueuer,
	cfg config.AuthConfig,
	log *logger.Logger,
) *AuthService {
	hasher := password.New(password.WithPolicy(password.Policy{
		MinLength:      cfg.PasswordMinLength,
		RequireUpper:   cfg.PasswordRequireUpper,
		RequireLower:   cfg.PasswordRequireLower,
		RequireNumber:  cfg.PasswordRequireNumber,
		RequireSpecial: cfg.PasswordRequireSpecial,
	}))

	tokenGen := jwt.NewGenerator(jwt.TokenConfig{
		Secret:              cfg.JWTSecret,
		Issuer:              cfg.JWTIssuer,
		AccessTokenDuration: cfg.AccessTokenDuration,
	})

	return &AuthService{
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		passwordHasher: hasher,
		tokenGenerator: tokenGen,
		emailEnqueuer:  emailEnqueuer,
		config:         cfg,
		logger:         log.With("service", "auth"),
	}
}

// RegisterInput represents the input for user registration.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// AuthResult is a logged-in user with an issued token.
type AuthResult struct {
	User      *user.User
	Token     string
	ExpiresAt time.Time
	SessionID string
}

// Register creates a new account and logs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if !s.config.AllowRegistration {
		return nil, ErrRegistrationDisabled
	}

	email := strings.TrimSpace(strings.ToLower(input.Email))

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	if err := s.passwordHasher.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}

	passwordHash, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := user.New(email, passwordHash, strings.TrimSpace(input.FirstName), strings.TrimSpace(input.LastName))
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if shared.IsConflict(err) || errors.Is(err, shared.ErrAlreadyExists) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", newUser.ID().String(), "email", email)

	if s.emailEnqueuer != nil {
		err := s.emailEnqueuer.EnqueueWelcomeEmail(ctx, jobs.WelcomeEmailPayload{
			UserEmail: newUser.Email(),
			UserName:  newUser.FullName(),
			UserID:    newUser.ID().String(),
		})
		if err != nil {
			s.logger.Error("failed to enqueue welcome email", "user_id", newUser.ID().String(), "error", err)
		}
	}

	return s.issueSession(ctx, newUser, input.IPAddress, input.UserAgent)
}

// LoginInput represents the input for login.
type LoginInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// Login authenticates a user and creates a session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))

	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.passwordHasher.Verify(input.Password, u.PasswordHash()); err != nil {
		s.logger.Warn("failed login attempt", "email", email, "ip", input.IPAddress)
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive() {
		return nil, ErrAccountDisabled
	}

	result, err := s.issueSession(ctx, u, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", u.ID().String(), "session_id", result.SessionID)
	return result, nil
}

// issueSession mints a token and persists the backing session row.
func (s *AuthService) issueSession(ctx context.Context, u *user.User, ipAddress, userAgent string) (*AuthResult, error) {
	sessionID := shared.NewID()

	token, expiresAt, err := s.tokenGenerator.GenerateAccessToken(
		u.ID().String(), u.Email(), u.FullName(), sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	sess, err := session.NewWithID(sessionID, u.ID(), token, ipAddress, userAgent, s.config.SessionDuration)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &AuthResult{
		User:      u,
		Token:     token,
		ExpiresAt: expiresAt,
		SessionID: sessionID.String(),
	}, nil
}

// Authenticate validates a token against its signature and backing
// session, returning the authenticated user. Used by the auth middleware
// on every request.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*user.User, *session.Session, error) {
	claims, err := s.tokenGenerator.ValidateToken(token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", shared.ErrUnauthorized, err.Error())
	}

	sess, err := s.sessionRepo.GetByTokenHash(ctx, session.HashToken(token))
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	if !sess.IsValid() {
		return nil, nil, ErrSessionInvalid
	}

	userID, err := shared.IDFromString(claims.UserID)
	if err != nil {
		return nil, nil, ErrSessionInvalid
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !u.IsActive() {
		return nil, nil, ErrAccountDisabled
	}

	sess.Touch()
	if err := s.sessionRepo.Update(ctx, sess); err != nil {
		s.logger.Warn("failed to record session activity", "session_id", sess.ID().String(), "error", err)
	}

	return u, sess, nil
}

// Logout invalidates the session behind a token. Unknown tokens are a
// no-op so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.sessionRepo.InvalidateByTokenHash(ctx, session.HashToken(token)); err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}

// LogoutAll invalidates every session of a user.
func (s *AuthService) LogoutAll(ctx context.Context, userID shared.ID) error {
	if err := s.sessionRepo.InvalidateAllByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}
	s.logger.Info("all sessions invalidated", "user_id", userID.String())
	return nil
}

// CleanupExpiredSessions deletes expired session rows. Run on a schedule.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	count, err := s.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	if count > 0 {
		s.logger.Info("expired sessions purged", "count", count)
	}
	return count, nil
}
