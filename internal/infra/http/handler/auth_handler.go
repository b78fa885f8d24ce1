package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/allayhq/api/internal/app"
	"github.com/allayhq/api/internal/infra/http/middleware"
	"github.com/allayhq/api/pkg/apierror"
	"github.com/allayhq/api/pkg/domain/user"
	"github.com/allayhq/api/pkg/logger"
	"github.com/allayhq/api/pkg/validator"
)

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	auth      *app.AuthService
	validator *validator.Validator
	cookies   CookieConfig
	logger    *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(auth *app.AuthService, v *validator.Validator, cookies CookieConfig, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		validator: v,
		cookies:   cookies,
		logger:    log.With("handler", "auth"),
	}
}

// UserResponse is the public shape of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName,omitempty"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID().String(),
		Email:     u.Email(),
		FirstName: u.FirstName(),
		LastName:  u.LastName(),
		FullName:  u.FullName(),
		CreatedAt: u.CreatedAt(),
	}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input app.RegisterInput
	if err := decodeAndValidate(r, h.validator, &input); err != nil {
		respondError(w, r, err)
		return
	}
	input.IPAddress = middleware.ClientIP(r)
	input.UserAgent = r.UserAgent()

	result, err := h.auth.Register(r.Context(), input)
	if err != nil {
		respondError(w, r, mapAuthError(err))
		return
	}

	SetAccessTokenCookie(w, result.Token, result.ExpiresAt, h.cookies)
	respondJSON(w, http.StatusCreated, AuthResponse{
		User:      toUserResponse(result.User),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input app.LoginInput
	if err := decodeAndValidate(r, h.validator, &input); err != nil {
		respondError(w, r, err)
		return
	}
	input.IPAddress = middleware.ClientIP(r)
	input.UserAgent = r.UserAgent()

	result, err := h.auth.Login(r.Context(), input)
	if err != nil {
		respondError(w, r, mapAuthError(err))
		return
	}

	SetAccessTokenCookie(w, result.Token, result.ExpiresAt, h.cookies)
	respondJSON(w, http.StatusOK, AuthResponse{
		User:      toUserResponse(result.User),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout handles POST /auth/logout. Idempotent: unknown tokens still
// clear the cookie and return 204.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r, h.cookies.AccessTokenCookieName)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		respondError(w, r, err)
		return
	}

	ClearAccessTokenCookie(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /auth/logout-all, invalidating every session of
// the authenticated user.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	if err := h.auth.LogoutAll(r.Context(), u.ID()); err != nil {
		respondError(w, r, err)
		return
	}

	ClearAccessTokenCookie(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	respondJSON(w, http.StatusOK, toUserResponse(u))
}

// mapAuthError translates service errors into API errors without
// leaking which part of the credential check failed.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		return apierror.Unauthorized("Invalid email or password")
	case errors.Is(err, app.ErrAccountDisabled):
		return apierror.Forbidden("Account is disabled")
	case errors.Is(err, app.ErrEmailAlreadyExists):
		return apierror.Conflict("An account with this email already exists")
	case errors.Is(err, app.ErrRegistrationDisabled):
		return apierror.Forbidden("Registration is disabled")
	case errors.Is(err, app.ErrSessionInvalid):
		return apierror.Unauthorized("Session is invalid or expired")
	default:
		return err
	}
}
