package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allayhq/api/internal/config"
	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/logger"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:           strings.Repeat("0123456789abcdef", 4),
		JWTIssuer:           "api-test",
		AccessTokenDuration: time.Hour,
		SessionDuration:     time.Hour,
		PasswordMinLength:   8,
		AllowRegistration:   true,
		InvitationTTL:       time.Hour,
	}
}

type authFixture struct {
	service  *AuthService
	users    *memUserRepo
	sessions *memSessionRepo
	emails   *captureEnqueuer
}

func newAuthFixture(cfg config.AuthConfig) *authFixture {
	users := newMemUserRepo()
	sessions := newMemSessionRepo()
	emails := &captureEnqueuer{}
	return &authFixture{
		service:  NewAuthService(users, sessions, emails, cfg, logger.NewNop()),
		users:    users,
		sessions: sessions,
		emails:   emails,
	}
}

func registerTestUser(t *testing.T, f *authFixture, email string) *AuthResult {
	t.Helper()

	result, err := f.service.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "correct-horse-7",
		FirstName: "Jamie",
		LastName:  "Rivera",
	})
	require.NoError(t, err)
	return result
}

func TestRegisterIssuesSessionAndWelcomeEmail(t *testing.T) {
	f := newAuthFixture(testAuthConfig())

	result := registerTestUser(t, f, "jamie@example.com")

	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "jamie@example.com", result.User.Email())
	assert.True(t, result.ExpiresAt.After(time.Now()))

	require.Len(t, f.emails.welcomes, 1)
	assert.Equal(t, "jamie@example.com", f.emails.welcomes[0].UserEmail)
	assert.Equal(t, "Jamie Rivera", f.emails.welcomes[0].UserName)
	assert.Len(t, f.sessions.byHash, 1)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	f := newAuthFixture(testAuthConfig())

	result, err := f.service.Register(context.Background(), RegisterInput{
		Email:     "  Jamie@Example.COM ",
		Password:  "correct-horse-7",
		FirstName: "Jamie",
	})
	require.NoError(t, err)
	assert.Equal(t, "jamie@example.com", result.User.Email())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(testAuthConfig())
	registerTestUser(t, f, "jamie@example.com")

	_, err := f.service.Register(context.Background(), RegisterInput{
		Email:     "jamie@example.com",
		Password:  "correct-horse-7",
		FirstName: "Other",
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestRegisterDisabled(t *testing.T) {
	cfg := testAuthConfig()
	cfg.AllowRegistration = false
	f := newAuthFixture(cfg)

	_, err := f.service.Register(context.Background(), RegisterInput{
		Email:     "jamie@example.com",
		Password:  "correct-horse-7",
		FirstName: "Jamie",
	})
	assert.ErrorIs(t, err, ErrRegistrationDisabled)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newAuthFixture(testAuthConfig())

	_, err := f.service.Register(context.Background(), RegisterInput{
		Email:     "jamie@example.com",
		Password:  "short",
		FirstName: "Jamie",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(testAuthConfig())
	registerTestUser(t, f, "jamie@example.com")

	result, err := f.service.Login(context.Background(), LoginInput{
		Email:    "jamie@example.com",
		Password: "correct-horse-7",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Len(t, f.sessions.byHash, 2)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(testAuthConfig())
	registerTestUser(t, f, "jamie@example.com")

	_, err := f.service.Login(context.Background(), LoginInput{
		Email:    "jamie@example.com",
		Password: "wrong-password-1",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture(testAuthConfig())

	// Unknown accounts and wrong passwords are indistinguishable.
	_, err := f.service.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "correct-horse-7",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledAccount(t *testing.T) {
	f := newAuthFixture(testAuthConfig())
	result := registerTestUser(t, f, "jamie@example.com")

	result.User.Deactivate()
	require.NoError(t, f.users.Update(context.Background(), result.User))

	_, err := f.service.Login(context.Background(), LoginInput{
		Email:    "jamie@example.com",
		Password: "correct-horse-7",
	})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestAuthenticateRoundTrip(t *testing.T) {
	f := newAuthFixture(testAuthConfig())
	result := registerTestUser(t, f, "jamie@example.com")

	u, sess, err := f.service.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID(), u.ID())
	assert.Equal(t, result.SessionID, sess.ID().String())
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	f := newAuthFixture(testAuthConfig())

	_, _, err := f.service.Authenticate(context.Background(), "not-a-jwt")
	assert.Error(t, err)
}

func TestAuthenticateAfterLogout(t *testing.T) {
	f := newAuthFixture(testAuthConfig())
	result := registerTestUser(t, f, "jamie@example.com")

	require.NoError(t, f.service.Logout(context.Background(), result.Token))

	_, _, err := f.service.Authenticate(context.Background(), result.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(testAuthConfig())

	assert.NoError(t, f.service.Logout(context.Background(), ""))
	assert.NoError(t, f.service.Logout(context.Background(), "unknown-token"))
}

func TestLogoutAllInvalidatesEverySession(t *testing.T) {
	f := newAuthFixture(testAuthConfig())
	first := registerTestUser(t, f, "jamie@example.com")

	second, err := f.service.Login(context.Background(), LoginInput{
		Email:    "jamie@example.com",
		Password: "correct-horse-7",
	})
	require.NoError(t, err)

	require.NoError(t, f.service.LogoutAll(context.Background(), first.User.ID()))

	_, _, err = f.service.Authenticate(context.Background(), first.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, _, err = f.service.Authenticate(context.Background(), second.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestCleanupExpiredSessions(t *testing.T) {
	cfg := testAuthConfig()
	cfg.SessionDuration = time.Millisecond
	f := newAuthFixture(cfg)
	registerTestUser(t, f, "jamie@example.com")

	time.Sleep(5 * time.Millisecond)

	count, err := f.service.CleanupExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Empty(t, f.sessions.byHash)
}
