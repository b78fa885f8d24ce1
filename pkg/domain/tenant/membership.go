package tenant

import (
	"fmt"
	"slices"
	"time"

	"github.com/allayhq/api/pkg/domain/shared"
)

// Membership grants a user a role and permission set within one tenant.
// Invariant: at most one active membership per (user, tenant) pair;
// reactivating a deactivated membership overwrites role and permissions.
type Membership struct {
	id           shared.ID
	userID       shared.ID
	tenantID     shared.ID
	role         Role
	permissions  []Permission
	joinedAt     time.Time
	lastActiveAt time.Time
	isActive     bool
}

// NewMembership creates a new active Membership. When permissions is nil
// the role's default permission set is applied.
func NewMembership(userID, tenantID shared.ID, role Role, permissions []Permission) (*Membership, error) {
	if userID.IsZero() {
		return nil, fmt.Errorf("%w: userID is required", shared.ErrValidation)
	}
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role %q", shared.ErrValidation, role)
	}
	if permissions == nil {
		permissions = DefaultPermissionsFor(role)
	}

	now := time.Now().UTC()
	return &Membership{
		id:           shared.NewID(),
		userID:       userID,
		tenantID:     tenantID,
		role:         role,
		permissions:  permissions,
		joinedAt:     now,
		lastActiveAt: now,
		isActive:     true,
	}, nil
}

// NewOwnerMembership creates the founding membership for a tenant. The
// explicit permission set is empty: the owner role alone grants everything.
func NewOwnerMembership(userID, tenantID shared.ID) (*Membership, error) {
	return NewMembership(userID, tenantID, RoleOwner, []Permission{})
}

// ReconstituteMembership recreates a Membership from persistence.
func ReconstituteMembership(
	id shared.ID,
	userID shared.ID,
	tenantID shared.ID,
	role Role,
	permissions []Permission,
	joinedAt time.Time,
	lastActiveAt time.Time,
	isActive bool,
) *Membership {
	return &Membership{
		id:           id,
		userID:       userID,
		tenantID:     tenantID,
		role:         role,
		permissions:  permissions,
		joinedAt:     joinedAt,
		lastActiveAt: lastActiveAt,
		isActive:     isActive,
	}
}

// ID returns the membership ID.
func (m *Membership) ID() shared.ID {
	return m.id
}

// UserID returns the user ID.
func (m *Membership) UserID() shared.ID {
	return m.userID
}

// TenantID returns the tenant ID.
func (m *Membership) TenantID() shared.ID {
	return m.tenantID
}

// Role returns the member's role.
func (m *Membership) Role() Role {
	return m.role
}

// Permissions returns the member's explicit permission set.
func (m *Membership) Permissions() []Permission {
	return m.permissions
}

// JoinedAt returns when the member joined.
func (m *Membership) JoinedAt() time.Time {
	return m.joinedAt
}

// LastActiveAt returns when the member was last active.
func (m *Membership) LastActiveAt() time.Time {
	return m.lastActiveAt
}

// IsActive reports whether the membership is active.
func (m *Membership) IsActive() bool {
	return m.isActive
}

// HasPermission checks the explicit permission set. Role bypass is the
// caller's concern (see Authorize).
func (m *Membership) HasPermission(p Permission) bool {
	return slices.Contains(m.permissions, p)
}

// IsOwner checks if this membership has the owner role.
func (m *Membership) IsOwner() bool {
	return m.role == RoleOwner
}

// UpdateRole updates the member's role and permission set.
func (m *Membership) UpdateRole(role Role, permissions []Permission) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: invalid role %q", shared.ErrValidation, role)
	}
	if permissions == nil {
		permissions = DefaultPermissionsFor(role)
	}
	m.role = role
	m.permissions = permissions
	return nil
}

// Reactivate re-enables a deactivated membership, overwriting role and
// permissions with the new grant.
func (m *Membership) Reactivate(role Role, permissions []Permission) error {
	if err := m.UpdateRole(role, permissions); err != nil {
		return err
	}
	m.isActive = true
	m.lastActiveAt = time.Now().UTC()
	return nil
}

// Deactivate disables the membership.
func (m *Membership) Deactivate() {
	m.isActive = false
}

// Touch records member activity.
func (m *Membership) Touch() {
	m.lastActiveAt = time.Now().UTC()
}
