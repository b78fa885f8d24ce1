package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allayhq/api/pkg/domain/shared"
)

func newTestMembership(t *testing.T, role Role, permissions []Permission) *Membership {
	t.Helper()

	m, err := NewMembership(shared.NewID(), shared.NewID(), role, permissions)
	require.NoError(t, err)
	return m
}

func TestAuthorizeNilMembershipDenies(t *testing.T) {
	assert.False(t, Authorize(nil))
	assert.False(t, Authorize(nil, PermViewAnalytics))
}

func TestAuthorizeElevatedRolesBypassExplicitSet(t *testing.T) {
	owner := newTestMembership(t, RoleOwner, []Permission{})
	admin := newTestMembership(t, RoleAdmin, []Permission{})

	// Neither carries the permission explicitly; the role alone grants it.
	assert.True(t, Authorize(owner, PermManageMembers, PermManageSlack))
	assert.True(t, Authorize(admin, PermManageMembers, PermManageSlack))
}

func TestAuthorizeMemberRequiresExplicitPermissions(t *testing.T) {
	m := newTestMembership(t, RoleMember, []Permission{PermViewAnalytics, PermSendMessages})

	assert.True(t, Authorize(m, PermViewAnalytics))
	assert.True(t, Authorize(m, PermViewAnalytics, PermSendMessages))
	assert.False(t, Authorize(m, PermInviteMembers))
	assert.False(t, Authorize(m, PermViewAnalytics, PermInviteMembers))
}

func TestAuthorizeEmptyRequirementGrants(t *testing.T) {
	m := newTestMembership(t, RoleMember, []Permission{})
	assert.True(t, Authorize(m))
}

func TestNewMembershipDefaultsPermissionsByRole(t *testing.T) {
	m := newTestMembership(t, RoleMember, nil)
	assert.ElementsMatch(t, []Permission{PermViewAnalytics, PermSendMessages}, m.Permissions())

	admin := newTestMembership(t, RoleAdmin, nil)
	assert.ElementsMatch(t, []Permission{
		PermInviteMembers,
		PermManageSlack,
		PermViewAnalytics,
		PermSendMessages,
	}, admin.Permissions())
}

func TestNewMembershipExplicitPermissionsOverrideDefaults(t *testing.T) {
	m := newTestMembership(t, RoleMember, []Permission{PermInviteMembers})
	assert.Equal(t, []Permission{PermInviteMembers}, m.Permissions())
	assert.True(t, Authorize(m, PermInviteMembers))
	assert.False(t, Authorize(m, PermViewAnalytics))
}

func TestNewOwnerMembershipHasEmptyExplicitSet(t *testing.T) {
	m, err := NewOwnerMembership(shared.NewID(), shared.NewID())
	require.NoError(t, err)

	assert.Equal(t, RoleOwner, m.Role())
	assert.Empty(t, m.Permissions())
	assert.True(t, m.IsOwner())
	assert.True(t, Authorize(m, PermManageIntegrations))
}

func TestNewMembershipValidation(t *testing.T) {
	_, err := NewMembership(shared.ID{}, shared.NewID(), RoleMember, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewMembership(shared.NewID(), shared.ID{}, RoleMember, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewMembership(shared.NewID(), shared.NewID(), Role("SUPERUSER"), nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestMembershipUpdateRole(t *testing.T) {
	m := newTestMembership(t, RoleMember, nil)

	require.NoError(t, m.UpdateRole(RoleAdmin, nil))
	assert.Equal(t, RoleAdmin, m.Role())
	assert.ElementsMatch(t, DefaultPermissionsFor(RoleAdmin), m.Permissions())

	assert.ErrorIs(t, m.UpdateRole(Role("bogus"), nil), shared.ErrValidation)
}

func TestMembershipReactivateOverwritesGrant(t *testing.T) {
	m := newTestMembership(t, RoleAdmin, nil)
	m.Deactivate()
	require.False(t, m.IsActive())

	require.NoError(t, m.Reactivate(RoleMember, []Permission{PermSendMessages}))
	assert.True(t, m.IsActive())
	assert.Equal(t, RoleMember, m.Role())
	assert.Equal(t, []Permission{PermSendMessages}, m.Permissions())
}

func TestDefaultPermissionsForReturnsCopy(t *testing.T) {
	a := DefaultPermissionsFor(RoleMember)
	a[0] = PermManageMembers

	b := DefaultPermissionsFor(RoleMember)
	assert.NotContains(t, b, PermManageMembers)
}

func TestParsePermissions(t *testing.T) {
	perms, ok := ParsePermissions([]string{"VIEW_ANALYTICS", "SEND_MESSAGES"})
	require.True(t, ok)
	assert.Equal(t, []Permission{PermViewAnalytics, PermSendMessages}, perms)

	_, ok = ParsePermissions([]string{"VIEW_ANALYTICS", "DELETE_EVERYTHING"})
	assert.False(t, ok)
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("ADMIN")
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	_, ok = ParseRole("admin")
	assert.False(t, ok)
}
