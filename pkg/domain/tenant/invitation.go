package tenant

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/allayhq/api/pkg/domain/shared"
)

const (
	// DefaultInvitationTTL is the default lifetime of an invitation.
	DefaultInvitationTTL = 7 * 24 * time.Hour

	// invitationTokenBytes sized so a token carries 256 bits of entropy.
	invitationTokenBytes = 32
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationExpired  InvitationStatus = "EXPIRED"
	InvitationRevoked  InvitationStatus = "REVOKED"
)

// IsTerminal reports whether the status is a terminal state.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationAccepted || s == InvitationExpired || s == InvitationRevoked
}

// Invitation is a time-boxed, single-use token offering a prospective user
// a role within a tenant. Expiry is checked lazily on every read path;
// there is no background sweep, so a row can sit PENDING-but-expired until
// the next create or accept attempt touches it.
type Invitation struct {
	id                  shared.ID
	tenantID            shared.ID
	email               string
	token               string
	proposedRole        Role
	proposedPermissions []Permission
	message             string
	invitedBy           shared.ID
	expiresAt           time.Time
	status              InvitationStatus
	acceptedAt          *time.Time
	acceptedBy          *shared.ID
	createdAt           time.Time
}

// NewInvitation creates a pending Invitation. When permissions is nil the
// proposed role's default permission set is applied. ttl of zero falls
// back to DefaultInvitationTTL.
func NewInvitation(tenantID shared.ID, email string, role Role, permissions []Permission, message string, invitedBy shared.ID, ttl time.Duration) (*Invitation, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", shared.ErrValidation)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role %q", shared.ErrValidation, role)
	}
	if role == RoleOwner {
		return nil, fmt.Errorf("%w: cannot invite as owner", shared.ErrValidation)
	}
	if invitedBy.IsZero() {
		return nil, fmt.Errorf("%w: invitedBy is required", shared.ErrValidation)
	}
	if permissions == nil {
		permissions = DefaultPermissionsFor(role)
	}
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now().UTC()
	return &Invitation{
		id:                  shared.NewID(),
		tenantID:            tenantID,
		email:               email,
		token:               token,
		proposedRole:        role,
		proposedPermissions: permissions,
		message:             message,
		invitedBy:           invitedBy,
		expiresAt:           now.Add(ttl),
		status:              InvitationPending,
		createdAt:           now,
	}, nil
}

// ReconstituteInvitation recreates an Invitation from persistence.
func ReconstituteInvitation(
	id shared.ID,
	tenantID shared.ID,
	email string,
	token string,
	role Role,
	permissions []Permission,
	message string,
	invitedBy shared.ID,
	expiresAt time.Time,
	status InvitationStatus,
	acceptedAt *time.Time,
	acceptedBy *shared.ID,
	createdAt time.Time,
) *Invitation {
	return &Invitation{
		id:                  id,
		tenantID:            tenantID,
		email:               email,
		token:               token,
		proposedRole:        role,
		proposedPermissions: permissions,
		message:             message,
		invitedBy:           invitedBy,
		expiresAt:           expiresAt,
		status:              status,
		acceptedAt:          acceptedAt,
		acceptedBy:          acceptedBy,
		createdAt:           createdAt,
	}
}

// ID returns the invitation ID.
func (i *Invitation) ID() shared.ID {
	return i.id
}

// TenantID returns the tenant ID.
func (i *Invitation) TenantID() shared.ID {
	return i.tenantID
}

// Email returns the invitee's email.
func (i *Invitation) Email() string {
	return i.email
}

// Token returns the invitation token.
func (i *Invitation) Token() string {
	return i.token
}

// ProposedRole returns the role offered by the invitation.
func (i *Invitation) ProposedRole() Role {
	return i.proposedRole
}

// ProposedPermissions returns the permission set offered by the invitation.
func (i *Invitation) ProposedPermissions() []Permission {
	return i.proposedPermissions
}

// Message returns the optional invite message.
func (i *Invitation) Message() string {
	return i.message
}

// InvitedBy returns the user ID of the inviter.
func (i *Invitation) InvitedBy() shared.ID {
	return i.invitedBy
}

// ExpiresAt returns when the invitation expires.
func (i *Invitation) ExpiresAt() time.Time {
	return i.expiresAt
}

// Status returns the stored lifecycle status. Callers deciding usability
// must also consult IsExpired; the stored status lags real time by design.
func (i *Invitation) Status() InvitationStatus {
	return i.status
}

// AcceptedAt returns when the invitation was accepted (nil if never).
func (i *Invitation) AcceptedAt() *time.Time {
	return i.acceptedAt
}

// AcceptedBy returns who accepted the invitation (nil if never).
func (i *Invitation) AcceptedBy() *shared.ID {
	return i.acceptedBy
}

// CreatedAt returns when the invitation was created.
func (i *Invitation) CreatedAt() time.Time {
	return i.createdAt
}

// IsExpired checks the wall clock against expiresAt.
func (i *Invitation) IsExpired() bool {
	return time.Now().UTC().After(i.expiresAt)
}

// IsPending reports whether the invitation is still usable: stored status
// PENDING and not past its expiry.
func (i *Invitation) IsPending() bool {
	return i.status == InvitationPending && !i.IsExpired()
}

// MarkExpired transitions a stale pending invitation to EXPIRED.
func (i *Invitation) MarkExpired() error {
	if i.status != InvitationPending {
		return fmt.Errorf("%w: invitation is %s, not pending", shared.ErrConflict, i.status)
	}
	i.status = InvitationExpired
	return nil
}

// Revoke transitions a pending invitation to REVOKED.
func (i *Invitation) Revoke() error {
	if i.status != InvitationPending {
		return fmt.Errorf("%w: invitation is %s, not pending", shared.ErrConflict, i.status)
	}
	i.status = InvitationRevoked
	return nil
}

// Accept marks the invitation as accepted by the given user.
func (i *Invitation) Accept(userID shared.ID) error {
	if i.status == InvitationAccepted {
		return fmt.Errorf("%w: invitation already accepted", shared.ErrConflict)
	}
	if i.status != InvitationPending {
		return fmt.Errorf("%w: invitation is %s", shared.ErrConflict, i.status)
	}
	if i.IsExpired() {
		return fmt.Errorf("%w: invitation has expired", shared.ErrConflict)
	}
	now := time.Now().UTC()
	i.status = InvitationAccepted
	i.acceptedAt = &now
	i.acceptedBy = &userID
	return nil
}

// generateToken generates a secure random token.
func generateToken() (string, error) {
	bytes := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
