package tenant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allayhq/api/pkg/domain/shared"
)

func newTestInvitation(t *testing.T, ttl time.Duration) *Invitation {
	t.Helper()

	inv, err := NewInvitation(shared.NewID(), "jamie@example.com", RoleMember, nil, "", shared.NewID(), ttl)
	require.NoError(t, err)
	return inv
}

// expiredInvitation builds a PENDING row whose expiry is already in the
// past, the state a stale row sits in until a read path touches it.
func expiredInvitation(t *testing.T) *Invitation {
	t.Helper()

	inv := newTestInvitation(t, 0)
	return ReconstituteInvitation(
		inv.ID(),
		inv.TenantID(),
		inv.Email(),
		inv.Token(),
		inv.ProposedRole(),
		inv.ProposedPermissions(),
		inv.Message(),
		inv.InvitedBy(),
		time.Now().UTC().Add(-time.Hour),
		InvitationPending,
		nil,
		nil,
		inv.CreatedAt(),
	)
}

func TestNewInvitationDefaults(t *testing.T) {
	inv := newTestInvitation(t, 0)

	assert.Equal(t, InvitationPending, inv.Status())
	assert.True(t, inv.IsPending())
	assert.ElementsMatch(t, DefaultPermissionsFor(RoleMember), inv.ProposedPermissions())
	assert.WithinDuration(t, time.Now().UTC().Add(DefaultInvitationTTL), inv.ExpiresAt(), time.Minute)
	assert.NotEmpty(t, inv.Token())
	assert.Nil(t, inv.AcceptedAt())
	assert.Nil(t, inv.AcceptedBy())
}

func TestNewInvitationTokensAreUnique(t *testing.T) {
	a := newTestInvitation(t, 0)
	b := newTestInvitation(t, 0)

	assert.NotEqual(t, a.Token(), b.Token())
	assert.GreaterOrEqual(t, len(a.Token()), 43)
}

func TestNewInvitationValidation(t *testing.T) {
	tenantID := shared.NewID()
	invitedBy := shared.NewID()

	_, err := NewInvitation(shared.ID{}, "jamie@example.com", RoleMember, nil, "", invitedBy, 0)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewInvitation(tenantID, "", RoleMember, nil, "", invitedBy, 0)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewInvitation(tenantID, "jamie@example.com", Role("bogus"), nil, "", invitedBy, 0)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewInvitation(tenantID, "jamie@example.com", RoleMember, nil, "", shared.ID{}, 0)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestNewInvitationRejectsOwnerRole(t *testing.T) {
	_, err := NewInvitation(shared.NewID(), "jamie@example.com", RoleOwner, nil, "", shared.NewID(), 0)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestInvitationAccept(t *testing.T) {
	inv := newTestInvitation(t, time.Hour)
	userID := shared.NewID()

	require.NoError(t, inv.Accept(userID))
	assert.Equal(t, InvitationAccepted, inv.Status())
	require.NotNil(t, inv.AcceptedAt())
	require.NotNil(t, inv.AcceptedBy())
	assert.True(t, inv.AcceptedBy().Equals(userID))
	assert.False(t, inv.IsPending())

	// A second accept is a conflict, not a silent no-op.
	assert.ErrorIs(t, inv.Accept(shared.NewID()), shared.ErrConflict)
}

func TestInvitationAcceptExpired(t *testing.T) {
	inv := expiredInvitation(t)

	// Stored status is still PENDING; the wall clock decides.
	assert.Equal(t, InvitationPending, inv.Status())
	assert.False(t, inv.IsPending())
	assert.ErrorIs(t, inv.Accept(shared.NewID()), shared.ErrConflict)
}

func TestInvitationAcceptRevoked(t *testing.T) {
	inv := newTestInvitation(t, time.Hour)
	require.NoError(t, inv.Revoke())

	assert.ErrorIs(t, inv.Accept(shared.NewID()), shared.ErrConflict)
}

func TestInvitationRevoke(t *testing.T) {
	inv := newTestInvitation(t, time.Hour)

	require.NoError(t, inv.Revoke())
	assert.Equal(t, InvitationRevoked, inv.Status())
	assert.False(t, inv.IsPending())

	assert.ErrorIs(t, inv.Revoke(), shared.ErrConflict)
}

func TestInvitationMarkExpired(t *testing.T) {
	inv := expiredInvitation(t)

	require.NoError(t, inv.MarkExpired())
	assert.Equal(t, InvitationExpired, inv.Status())

	assert.ErrorIs(t, inv.MarkExpired(), shared.ErrConflict)
}

func TestInvitationMarkExpiredRequiresPending(t *testing.T) {
	inv := newTestInvitation(t, time.Hour)
	require.NoError(t, inv.Accept(shared.NewID()))

	assert.ErrorIs(t, inv.MarkExpired(), shared.ErrConflict)
}

func TestInvitationStatusIsTerminal(t *testing.T) {
	assert.False(t, InvitationPending.IsTerminal())
	assert.True(t, InvitationAccepted.IsTerminal())
	assert.True(t, InvitationExpired.IsTerminal())
	assert.True(t, InvitationRevoked.IsTerminal())
}
