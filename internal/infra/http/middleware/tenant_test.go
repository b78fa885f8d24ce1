package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/tenant"
	"github.com/allayhq/api/pkg/domain/user"
)

type fakeMembershipResolver struct {
	membership *tenant.Membership
	err        error
}

func (r *fakeMembershipResolver) GetMembership(_ context.Context, _, _ shared.ID) (*tenant.Membership, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.membership, nil
}

// workspaceRequest builds a request carrying an authenticated user and a
// {tenantID} route parameter, the state RequireMembership runs in.
func workspaceRequest(t *testing.T, u *user.User, tenantID string) *http.Request {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, "/tenants/"+tenantID, nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tenantID", tenantID)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if u != nil {
		ctx = context.WithValue(ctx, userContextKey, u)
	}
	return r.WithContext(ctx)
}

func newMember(t *testing.T, role tenant.Role, permissions []tenant.Permission) *tenant.Membership {
	t.Helper()

	m, err := tenant.NewMembership(shared.NewID(), shared.NewID(), role, permissions)
	require.NoError(t, err)
	return m
}

func TestRequireMembershipStoresMembership(t *testing.T) {
	m := newMember(t, tenant.RoleMember, nil)
	resolver := &fakeMembershipResolver{membership: m}

	u, err := user.New("jamie@example.com", "hash", "Jamie", "Rivera")
	require.NoError(t, err)

	var got *tenant.Membership
	handler := RequireMembership(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetMembership(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, workspaceRequest(t, u, m.TenantID().String()))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, m.ID(), got.ID())
}

func TestRequireMembershipUnauthenticated(t *testing.T) {
	handler := RequireMembership(&fakeMembershipResolver{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, workspaceRequest(t, nil, shared.NewID().String()))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireMembershipInvalidTenantID(t *testing.T) {
	u, err := user.New("jamie@example.com", "hash", "Jamie", "Rivera")
	require.NoError(t, err)

	handler := RequireMembership(&fakeMembershipResolver{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, workspaceRequest(t, u, "not-a-uuid"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireMembershipNonMember(t *testing.T) {
	u, err := user.New("jamie@example.com", "hash", "Jamie", "Rivera")
	require.NoError(t, err)

	// The 403 must not reveal whether the workspace exists.
	resolver := &fakeMembershipResolver{err: shared.ErrNotFound}
	handler := RequireMembership(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, workspaceRequest(t, u, shared.NewID().String()))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermissionsDeniesMissingGrant(t *testing.T) {
	m := newMember(t, tenant.RoleMember, []tenant.Permission{tenant.PermViewAnalytics})

	handler := RequirePermissions(tenant.PermManageSlack)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), membershipContextKey, m))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequirePermissionsAdminBypassesExplicitSet(t *testing.T) {
	m := newMember(t, tenant.RoleAdmin, []tenant.Permission{})

	handler := RequirePermissions(tenant.PermManageMembers)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), membershipContextKey, m))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermissionsWithoutMembership(t *testing.T) {
	handler := RequirePermissions(tenant.PermSendMessages)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetTenantID(t *testing.T) {
	assert.Empty(t, GetTenantID(context.Background()))

	m := newMember(t, tenant.RoleMember, nil)
	ctx := context.WithValue(context.Background(), membershipContextKey, m)
	assert.Equal(t, m.TenantID().String(), GetTenantID(ctx))
}
