// Package slack contains the Slack-side domain: synced workspace user
// profiles and per-tenant workspace configuration.
package slack

import (
	"fmt"
	"time"

	"github.com/allayhq/api/pkg/domain/shared"
)

// User is a Slack workspace member profile synced for a tenant. It is
// looked up by (tenantID, slackUserID) to resolve display names on
// conversations; absence of a profile is not an error.
type User struct {
	id          shared.ID
	tenantID    shared.ID
	slackUserID string
	realName    string
	displayName string
	email       string
	title       string
	imageURL    string
	timezone    string
	isBot       bool
	isAdmin     bool
	isActive    bool
	lastSeenAt  *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

// NewUser creates a synced Slack user profile.
func NewUser(tenantID shared.ID, slackUserID string) (*User, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if slackUserID == "" {
		return nil, fmt.Errorf("%w: slackUserID is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &User{
		id:          shared.NewID(),
		tenantID:    tenantID,
		slackUserID: slackUserID,
		isActive:    true,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstituteUser recreates a Slack user profile from persistence.
func ReconstituteUser(
	id shared.ID,
	tenantID shared.ID,
	slackUserID string,
	realName string,
	displayName string,
	email string,
	title string,
	imageURL string,
	timezone string,
	isBot bool,
	isAdmin bool,
	isActive bool,
	lastSeenAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) *User {
	return &User{
		id:          id,
		tenantID:    tenantID,
		slackUserID: slackUserID,
		realName:    realName,
		displayName: displayName,
		email:       email,
		title:       title,
		imageURL:    imageURL,
		timezone:    timezone,
		isBot:       isBot,
		isAdmin:     isAdmin,
		isActive:    isActive,
		lastSeenAt:  lastSeenAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the internal row ID.
func (u *User) ID() shared.ID { return u.id }

// TenantID returns the owning tenant ID.
func (u *User) TenantID() shared.ID { return u.tenantID }

// SlackUserID returns the external Slack member ID.
func (u *User) SlackUserID() string { return u.slackUserID }

// RealName returns the profile real name.
func (u *User) RealName() string { return u.realName }

// DisplayName returns the profile display name.
func (u *User) DisplayName() string { return u.displayName }

// Email returns the profile email.
func (u *User) Email() string { return u.email }

// Title returns the profile title.
func (u *User) Title() string { return u.title }

// ImageURL returns the avatar URL.
func (u *User) ImageURL() string { return u.imageURL }

// Timezone returns the profile timezone.
func (u *User) Timezone() string { return u.timezone }

// IsBot reports whether the member is a bot.
func (u *User) IsBot() bool { return u.isBot }

// IsAdmin reports whether the member is a workspace admin.
func (u *User) IsAdmin() bool { return u.isAdmin }

// IsActive reports whether the member is active in the workspace.
func (u *User) IsActive() bool { return u.isActive }

// LastSeenAt returns the last observed activity (nil if never).
func (u *User) LastSeenAt() *time.Time { return u.lastSeenAt }

// CreatedAt returns when the profile was first synced.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns when the profile was last synced.
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// Name resolves the best display name: real name, then display name.
func (u *User) Name() string {
	if u.realName != "" {
		return u.realName
	}
	return u.displayName
}

// UpdateProfile refreshes synced profile fields.
func (u *User) UpdateProfile(realName, displayName, email, title, imageURL, timezone string, isBot, isAdmin bool) {
	u.realName = realName
	u.displayName = displayName
	u.email = email
	u.title = title
	u.imageURL = imageURL
	u.timezone = timezone
	u.isBot = isBot
	u.isAdmin = isAdmin
	u.updatedAt = time.Now().UTC()
}

// MarkSeen records activity for the member.
func (u *User) MarkSeen() {
	now := time.Now().UTC()
	u.lastSeenAt = &now
	u.updatedAt = now
}
