// Package session contains the server-side session entity backing issued
// tokens. Sessions are keyed by a hash of the opaque token, never the
// token itself.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/allayhq/api/pkg/domain/shared"
)

// Session is one authenticated login with client metadata and an expiry.
type Session struct {
	id             shared.ID
	userID         shared.ID
	tokenHash      string
	ipAddress      string
	userAgent      string
	expiresAt      time.Time
	isActive       bool
	createdAt      time.Time
	lastActivityAt time.Time
}

// HashToken derives the storage key for an opaque token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// New creates a new active Session for a token.
func New(userID shared.ID, token, ipAddress, userAgent string, ttl time.Duration) (*Session, error) {
	return NewWithID(shared.NewID(), userID, token, ipAddress, userAgent, ttl)
}

// NewWithID creates a Session with a caller-supplied ID, for when the ID
// must be embedded in the token before the token can be hashed.
func NewWithID(id, userID shared.ID, token, ipAddress, userAgent string, ttl time.Duration) (*Session, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: id is required", shared.ErrValidation)
	}
	if userID.IsZero() {
		return nil, fmt.Errorf("%w: userID is required", shared.ErrValidation)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", shared.ErrValidation)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Session{
		id:             id,
		userID:         userID,
		tokenHash:      HashToken(token),
		ipAddress:      ipAddress,
		userAgent:      userAgent,
		expiresAt:      now.Add(ttl),
		isActive:       true,
		createdAt:      now,
		lastActivityAt: now,
	}, nil
}

// Reconstitute recreates a Session from persistence.
func Reconstitute(
	id shared.ID,
	userID shared.ID,
	tokenHash string,
	ipAddress string,
	userAgent string,
	expiresAt time.Time,
	isActive bool,
	createdAt time.Time,
	lastActivityAt time.Time,
) *Session {
	return &Session{
		id:             id,
		userID:         userID,
		tokenHash:      tokenHash,
		ipAddress:      ipAddress,
		userAgent:      userAgent,
		expiresAt:      expiresAt,
		isActive:       isActive,
		createdAt:      createdAt,
		lastActivityAt: lastActivityAt,
	}
}

// ID returns the session ID.
func (s *Session) ID() shared.ID {
	return s.id
}

// UserID returns the owning user ID.
func (s *Session) UserID() shared.ID {
	return s.userID
}

// TokenHash returns the hashed token key.
func (s *Session) TokenHash() string {
	return s.tokenHash
}

// IPAddress returns the client IP recorded at login.
func (s *Session) IPAddress() string {
	return s.ipAddress
}

// UserAgent returns the client user agent recorded at login.
func (s *Session) UserAgent() string {
	return s.userAgent
}

// ExpiresAt returns when the session expires.
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

// IsActive reports whether the session has been invalidated.
func (s *Session) IsActive() bool {
	return s.isActive
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastActivityAt returns the last time the session was used.
func (s *Session) LastActivityAt() time.Time {
	return s.lastActivityAt
}

// IsValid reports whether the session is active and unexpired.
func (s *Session) IsValid() bool {
	return s.isActive && time.Now().UTC().Before(s.expiresAt)
}

// Invalidate deactivates the session.
func (s *Session) Invalidate() {
	s.isActive = false
}

// Touch records session activity.
func (s *Session) Touch() {
	s.lastActivityAt = time.Now().UTC()
}
