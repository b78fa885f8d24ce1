package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/tenant"
	"github.com/allayhq/api/pkg/domain/user"
	"github.com/allayhq/api/pkg/logger"
)

type tenantFixture struct {
	service *TenantService
	repo    *memTenantRepo
	users   *memUserRepo
	emails  *captureEnqueuer
}

func newTenantFixture() *tenantFixture {
	repo := newMemTenantRepo()
	users := newMemUserRepo()
	emails := &captureEnqueuer{}
	return &tenantFixture{
		service: NewTenantService(repo, users, emails, testAuthConfig(), logger.NewNop()),
		repo:    repo,
		users:   users,
		emails:  emails,
	}
}

func (f *tenantFixture) addUser(t *testing.T, email string) *user.User {
	t.Helper()

	u, err := user.New(email, "hash", "Sam", "Okafor")
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	f.repo.emails[u.ID()] = email
	return u
}

func (f *tenantFixture) createWorkspace(t *testing.T, ownerID shared.ID, slug string) *tenant.Tenant {
	t.Helper()

	ws, err := f.service.CreateTenant(context.Background(), ownerID, CreateTenantInput{
		Name: "Acme Support",
		Slug: slug,
	})
	require.NoError(t, err)
	return ws
}

func TestCreateTenantMakesCallerOwner(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")

	ws := f.createWorkspace(t, owner.ID(), "acme")

	m, err := f.service.GetMembership(context.Background(), owner.ID(), ws.ID())
	require.NoError(t, err)
	assert.Equal(t, tenant.RoleOwner, m.Role())
	assert.True(t, m.IsActive())
}

func TestCreateTenantSlugTaken(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	f.createWorkspace(t, owner.ID(), "acme")

	_, err := f.service.CreateTenant(context.Background(), owner.ID(), CreateTenantInput{
		Name: "Other",
		Slug: "ACME",
	})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestGetMembershipNotMember(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	stranger := f.addUser(t, "stranger@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")

	_, err := f.service.GetMembership(context.Background(), stranger.ID(), ws.ID())
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestGetMembershipDeactivated(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")

	m, err := f.repo.GetMembership(context.Background(), owner.ID(), ws.ID())
	require.NoError(t, err)
	m.Deactivate()

	_, err = f.service.GetMembership(context.Background(), owner.ID(), ws.ID())
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestInviteMemberCreatesPendingInvitationAndEmail(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")

	inv, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email:   " New.Hire@Example.com ",
		Role:    "MEMBER",
		Message: "welcome aboard",
	})
	require.NoError(t, err)

	assert.Equal(t, "new.hire@example.com", inv.Email())
	assert.Equal(t, tenant.RoleMember, inv.ProposedRole())
	assert.True(t, inv.IsPending())

	require.Len(t, f.emails.invitations, 1)
	assert.Equal(t, "new.hire@example.com", f.emails.invitations[0].RecipientEmail)
	assert.Equal(t, "Acme Support", f.emails.invitations[0].WorkspaceName)
	assert.Equal(t, "Sam Okafor", f.emails.invitations[0].InviterName)
}

func TestInviteMemberAlreadyActiveMember(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")

	_, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "owner@example.com",
		Role:  "MEMBER",
	})
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestInviteMemberBlockedByPendingInvitation(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")

	_, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "MEMBER",
	})
	require.NoError(t, err)

	_, err = f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "ADMIN",
	})
	assert.ErrorIs(t, err, ErrInvitationPending)
}

// seedExpiredInvitation plants a PENDING row whose expiry has passed,
// the state lazy expiry is meant to clean up.
func seedExpiredInvitation(t *testing.T, f *tenantFixture, tenantID, invitedBy shared.ID, email string) *tenant.Invitation {
	t.Helper()

	fresh, err := tenant.NewInvitation(tenantID, email, tenant.RoleMember, nil, "", invitedBy, time.Hour)
	require.NoError(t, err)

	stale := tenant.ReconstituteInvitation(
		fresh.ID(), tenantID, email, fresh.Token(),
		fresh.ProposedRole(), fresh.ProposedPermissions(), "", invitedBy,
		time.Now().UTC().Add(-time.Hour),
		tenant.InvitationPending,
		nil, nil,
		time.Now().UTC().Add(-2*time.Hour),
	)
	require.NoError(t, f.repo.CreateInvitation(context.Background(), stale))
	return stale
}

func TestInviteMemberExpiresStalePendingInvitation(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	stale := seedExpiredInvitation(t, f, ws.ID(), owner.ID(), "hire@example.com")

	inv, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "MEMBER",
	})
	require.NoError(t, err)

	// The stale row was retired in place of a background sweep.
	assert.Equal(t, tenant.InvitationExpired, stale.Status())
	assert.True(t, inv.IsPending())
	assert.NotEqual(t, stale.Token(), inv.Token())
}

func TestGetInvitationByTokenExpiresStaleRow(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	stale := seedExpiredInvitation(t, f, ws.ID(), owner.ID(), "hire@example.com")

	inv, err := f.service.GetInvitationByToken(context.Background(), stale.Token())
	require.NoError(t, err)
	assert.Equal(t, tenant.InvitationExpired, inv.Status())

	stored, err := f.repo.GetInvitationByID(context.Background(), stale.ID())
	require.NoError(t, err)
	assert.Equal(t, tenant.InvitationExpired, stored.Status())
}

func TestAcceptInvitationCreatesMembership(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	invitee := f.addUser(t, "hire@example.com")

	inv, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "ADMIN",
	})
	require.NoError(t, err)

	m, err := f.service.AcceptInvitation(context.Background(), inv.Token(), invitee)
	require.NoError(t, err)
	assert.Equal(t, tenant.RoleAdmin, m.Role())
	assert.True(t, m.IsActive())
	assert.Equal(t, ws.ID(), m.TenantID())

	stored, err := f.repo.GetInvitationByID(context.Background(), inv.ID())
	require.NoError(t, err)
	assert.Equal(t, tenant.InvitationAccepted, stored.Status())
	require.NotNil(t, stored.AcceptedBy())
	assert.True(t, stored.AcceptedBy().Equals(invitee.ID()))
}

func TestAcceptInvitationEmailMismatch(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	other := f.addUser(t, "other@example.com")

	inv, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "MEMBER",
	})
	require.NoError(t, err)

	_, err = f.service.AcceptInvitation(context.Background(), inv.Token(), other)
	assert.ErrorIs(t, err, ErrInvitationMismatch)
}

func TestAcceptInvitationExpired(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	invitee := f.addUser(t, "hire@example.com")
	stale := seedExpiredInvitation(t, f, ws.ID(), owner.ID(), "hire@example.com")

	_, err := f.service.AcceptInvitation(context.Background(), stale.Token(), invitee)
	assert.ErrorIs(t, err, ErrInvitationNotUsable)
	assert.Equal(t, tenant.InvitationExpired, stale.Status())
}

func TestAcceptInvitationRevoked(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	invitee := f.addUser(t, "hire@example.com")

	inv, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "MEMBER",
	})
	require.NoError(t, err)
	require.NoError(t, f.service.RevokeInvitation(context.Background(), ws.ID(), inv.ID()))

	_, err = f.service.AcceptInvitation(context.Background(), inv.Token(), invitee)
	assert.ErrorIs(t, err, ErrInvitationNotUsable)
}

func TestAcceptInvitationAlreadyActiveMember(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")

	inv, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "MEMBER",
	})
	require.NoError(t, err)

	invitee := f.addUser(t, "hire@example.com")
	_, err = f.service.AcceptInvitation(context.Background(), inv.Token(), invitee)
	require.NoError(t, err)

	// A second invitation issued before the first was accepted.
	straggler, err := tenant.NewInvitation(ws.ID(), "hire@example.com", tenant.RoleAdmin, nil, "", owner.ID(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.repo.CreateInvitation(context.Background(), straggler))

	_, err = f.service.AcceptInvitation(context.Background(), straggler.Token(), invitee)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "ADMIN",
	})
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestAcceptInvitationReactivatesMembership(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	invitee := f.addUser(t, "hire@example.com")

	first, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "MEMBER",
	})
	require.NoError(t, err)
	m, err := f.service.AcceptInvitation(context.Background(), first.Token(), invitee)
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveMember(context.Background(), ws.ID(), m.ID()))

	second, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "ADMIN",
	})
	require.NoError(t, err)

	reactivated, err := f.service.AcceptInvitation(context.Background(), second.Token(), invitee)
	require.NoError(t, err)
	assert.Equal(t, m.ID(), reactivated.ID())
	assert.Equal(t, tenant.RoleAdmin, reactivated.Role())
	assert.True(t, reactivated.IsActive())
}

func TestRevokeInvitationWrongTenant(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	other := f.createWorkspace(t, owner.ID(), "beta")

	inv, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "MEMBER",
	})
	require.NoError(t, err)

	err = f.service.RevokeInvitation(context.Background(), other.ID(), inv.ID())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateMemberRoleOwnerImmutable(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")

	m, err := f.repo.GetMembership(context.Background(), owner.ID(), ws.ID())
	require.NoError(t, err)

	_, err = f.service.UpdateMemberRole(context.Background(), ws.ID(), m.ID(), UpdateMemberRoleInput{Role: "MEMBER"})
	assert.ErrorIs(t, err, ErrOwnerImmutable)

	assert.ErrorIs(t, f.service.RemoveMember(context.Background(), ws.ID(), m.ID()), ErrOwnerImmutable)
}

func TestUpdateMemberRole(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	invitee := f.addUser(t, "hire@example.com")

	inv, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "MEMBER",
	})
	require.NoError(t, err)
	m, err := f.service.AcceptInvitation(context.Background(), inv.Token(), invitee)
	require.NoError(t, err)

	updated, err := f.service.UpdateMemberRole(context.Background(), ws.ID(), m.ID(), UpdateMemberRoleInput{
		Role:        "ADMIN",
		Permissions: []string{"INVITE_MEMBERS"},
	})
	require.NoError(t, err)
	assert.Equal(t, tenant.RoleAdmin, updated.Role())
	assert.Equal(t, []tenant.Permission{tenant.PermInviteMembers}, updated.Permissions())
}

func TestUpdateMemberRoleRejectsOwnerPromotion(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	invitee := f.addUser(t, "hire@example.com")

	inv, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "MEMBER",
	})
	require.NoError(t, err)
	m, err := f.service.AcceptInvitation(context.Background(), inv.Token(), invitee)
	require.NoError(t, err)

	_, err = f.service.UpdateMemberRole(context.Background(), ws.ID(), m.ID(), UpdateMemberRoleInput{Role: "OWNER"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRemoveMemberDeactivates(t *testing.T) {
	f := newTenantFixture()
	owner := f.addUser(t, "owner@example.com")
	ws := f.createWorkspace(t, owner.ID(), "acme")
	invitee := f.addUser(t, "hire@example.com")

	inv, err := f.service.InviteMember(context.Background(), ws.ID(), owner.ID(), InviteMemberInput{
		Email: "hire@example.com",
		Role:  "MEMBER",
	})
	require.NoError(t, err)
	m, err := f.service.AcceptInvitation(context.Background(), inv.Token(), invitee)
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveMember(context.Background(), ws.ID(), m.ID()))

	_, err = f.service.GetMembership(context.Background(), invitee.ID(), ws.ID())
	assert.ErrorIs(t, err, ErrNotMember)
}
