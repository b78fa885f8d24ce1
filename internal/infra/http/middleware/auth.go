package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/allayhq/api/pkg/apierror"
	"github.com/allayhq/api/pkg/domain/session"
	"github.com/allayhq/api/pkg/domain/user"
	"github.com/allayhq/api/pkg/logger"
)

type contextKey string

const (
	userContextKey    contextKey = "auth_user"
	sessionContextKey contextKey = "auth_session"
)

// Authenticator validates an access token and returns the user and
// session it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.User, *session.Session, error)
}

// Auth authenticates the request and stores the user and session in the
// request context. Requests without a valid token are rejected.
//
// The token is taken from the Authorization header, then the auth
// cookie, then the token query parameter. The query parameter exists
// for EventSource clients, which cannot set headers.
func Auth(authenticator Authenticator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r, cookieName)
			if token == "" {
				apierror.Unauthorized("Authentication required").WriteJSON(w)
				return
			}

			u, sess, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				apierror.Unauthorized("Invalid or expired token").WriteJSON(w)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, u)
			ctx = context.WithValue(ctx, sessionContextKey, sess)
			ctx = context.WithValue(ctx, logger.ContextKeyUserID, u.ID().String())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken pulls the access token from the request.
func ExtractToken(r *http.Request, cookieName string) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}

	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}

	return r.URL.Query().Get("token")
}

// GetUser returns the authenticated user from context, or nil.
func GetUser(ctx context.Context) *user.User {
	u, _ := ctx.Value(userContextKey).(*user.User)
	return u
}

// GetSession returns the authenticated session from context, or nil.
func GetSession(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionContextKey).(*session.Session)
	return s
}

// GetUserID returns the authenticated user's ID, or "".
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.ID().String()
	}
	return ""
}
