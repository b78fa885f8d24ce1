package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allayhq/api/pkg/domain/session"
	"github.com/allayhq/api/pkg/domain/user"
)

type fakeAuthenticator struct {
	user    *user.User
	session *session.Session
	err     error

	gotToken string
}

func (a *fakeAuthenticator) Authenticate(_ context.Context, token string) (*user.User, *session.Session, error) {
	a.gotToken = token
	if a.err != nil {
		return nil, nil, a.err
	}
	return a.user, a.session, nil
}

func newAuthedUser(t *testing.T) *user.User {
	t.Helper()

	u, err := user.New("jamie@example.com", "hash", "Jamie", "Rivera")
	require.NoError(t, err)
	return u
}

func TestExtractTokenPriority(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
	r.AddCookie(&http.Cookie{Name: "auth_token", Value: "from-cookie"})
	r.Header.Set("Authorization", "Bearer from-header")

	assert.Equal(t, "from-header", ExtractToken(r, "auth_token"))

	r.Header.Del("Authorization")
	assert.Equal(t, "from-cookie", ExtractToken(r, "auth_token"))

	// EventSource clients cannot set headers or always carry cookies.
	r = httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
	assert.Equal(t, "from-query", ExtractToken(r, "auth_token"))
}

func TestExtractTokenIgnoresNonBearerScheme(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	assert.Empty(t, ExtractToken(r, ""))
}

func TestAuthStoresUserInContext(t *testing.T) {
	u := newAuthedUser(t)
	authenticator := &fakeAuthenticator{user: u}

	var gotUser *user.User
	var gotUserID string
	handler := Auth(authenticator, "auth_token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUser(r.Context())
		gotUserID = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer some-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "some-token", authenticator.gotToken)
	require.NotNil(t, gotUser)
	assert.Equal(t, u.ID(), gotUser.ID())
	assert.Equal(t, u.ID().String(), gotUserID)
}

func TestAuthMissingToken(t *testing.T) {
	handler := Auth(&fakeAuthenticator{}, "auth_token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthInvalidToken(t *testing.T) {
	authenticator := &fakeAuthenticator{err: errors.New("session is invalid or expired")}
	handler := Auth(authenticator, "auth_token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer expired-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserEmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetUser(ctx))
	assert.Nil(t, GetSession(ctx))
	assert.Empty(t, GetUserID(ctx))
}
