package tenant

// Role represents a user's role within a tenant.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ImpliesAllPermissions reports whether the role bypasses explicit
// permission checks entirely. Owners and admins are fully trusted;
// members are checked against their explicit permission set.
func (r Role) ImpliesAllPermissions() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Priority returns the priority of the role (higher = more privileged).
func (r Role) Priority() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// AllRoles lists every valid role.
var AllRoles = []Role{RoleOwner, RoleAdmin, RoleMember}

// InvitableRoles returns the roles that can be assigned when inviting.
// The owner role is created only at tenant creation, never via invitation.
var InvitableRoles = []Role{RoleAdmin, RoleMember}

// ParseRole parses a string to a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}
