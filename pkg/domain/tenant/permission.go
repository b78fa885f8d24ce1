package tenant

// Permission is a named capability granted to a membership.
type Permission string

const (
	PermManageMembers      Permission = "MANAGE_MEMBERS"
	PermInviteMembers      Permission = "INVITE_MEMBERS"
	PermViewAnalytics      Permission = "VIEW_ANALYTICS"
	PermManageSlack        Permission = "MANAGE_SLACK"
	PermSendMessages       Permission = "SEND_MESSAGES"
	PermManageIntegrations Permission = "MANAGE_INTEGRATIONS"
)

// IsValid checks if the permission is a known capability.
func (p Permission) IsValid() bool {
	switch p {
	case PermManageMembers, PermInviteMembers, PermViewAnalytics,
		PermManageSlack, PermSendMessages, PermManageIntegrations:
		return true
	}
	return false
}

// String returns the string representation of the permission.
func (p Permission) String() string {
	return string(p)
}

// defaultPermissions maps each role to the permission set a membership
// receives when none is supplied explicitly. Owners carry an empty
// explicit set: the role alone grants everything.
var defaultPermissions = map[Role][]Permission{
	RoleOwner: {},
	RoleAdmin: {
		PermInviteMembers,
		PermManageSlack,
		PermViewAnalytics,
		PermSendMessages,
	},
	RoleMember: {
		PermViewAnalytics,
		PermSendMessages,
	},
}

// DefaultPermissionsFor returns a copy of the default permission set for
// a role. Unknown roles get an empty set.
func DefaultPermissionsFor(role Role) []Permission {
	defaults, ok := defaultPermissions[role]
	if !ok {
		return nil
	}
	out := make([]Permission, len(defaults))
	copy(out, defaults)
	return out
}

// ParsePermissions parses a list of permission strings, rejecting unknown
// capabilities.
func ParsePermissions(values []string) ([]Permission, bool) {
	perms := make([]Permission, 0, len(values))
	for _, v := range values {
		p := Permission(v)
		if !p.IsValid() {
			return nil, false
		}
		perms = append(perms, p)
	}
	return perms, true
}

// Authorize decides whether a membership grants all required capabilities.
// A nil membership denies. Elevated roles grant unconditionally. An empty
// requirement grants (public-within-tenant routes). Pure function; the
// edge layer maps a false result to a forbidden response.
func Authorize(m *Membership, required ...Permission) bool {
	if m == nil {
		return false
	}
	if m.Role().ImpliesAllPermissions() {
		return true
	}
	for _, req := range required {
		if !m.HasPermission(req) {
			return false
		}
	}
	return true
}
