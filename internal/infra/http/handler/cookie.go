package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/allayhq/api/internal/config"
)

// DefaultAccessTokenCookieName is the cookie carrying the access token.
const DefaultAccessTokenCookieName = "auth_token"

// CookieConfig holds cookie configuration for authentication.
type CookieConfig struct {
	Secure                bool
	Domain                string
	SameSite              http.SameSite
	Path                  string
	AccessTokenCookieName string
}

// NewCookieConfig creates a CookieConfig from AuthConfig.
func NewCookieConfig(cfg config.AuthConfig) CookieConfig {
	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(cfg.CookieSameSite) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	case "lax":
		sameSite = http.SameSiteLaxMode
	}

	name := cfg.AccessTokenCookieName
	if name == "" {
		name = DefaultAccessTokenCookieName
	}

	return CookieConfig{
		Secure:                cfg.CookieSecure,
		Domain:                cfg.CookieDomain,
		SameSite:              sameSite,
		Path:                  "/",
		AccessTokenCookieName: name,
	}
}

// SetAccessTokenCookie stores the access token in an httpOnly cookie so
// browser clients never expose it to script.
func SetAccessTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.AccessTokenCookieName,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}

// ClearAccessTokenCookie removes the access token cookie.
func ClearAccessTokenCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.AccessTokenCookieName,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	})
}
