package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/allayhq/api/pkg/apierror"
	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/tenant"
)

const membershipContextKey contextKey = "tenant_membership"

// MembershipResolver resolves the caller's active membership in a
// workspace.
type MembershipResolver interface {
	GetMembership(ctx context.Context, userID, tenantID shared.ID) (*tenant.Membership, error)
}

// RequireMembership resolves the {tenantID} URL parameter against the
// authenticated user's memberships and stores the membership in the
// request context. Non-members get a 403; the response does not reveal
// whether the workspace exists.
func RequireMembership(resolver MembershipResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := GetUser(r.Context())
			if u == nil {
				apierror.Unauthorized("Authentication required").WriteJSON(w)
				return
			}

			tenantID, err := shared.IDFromString(chi.URLParam(r, "tenantID"))
			if err != nil {
				apierror.BadRequest("Invalid workspace ID").WriteJSON(w)
				return
			}

			m, err := resolver.GetMembership(r.Context(), u.ID(), tenantID)
			if err != nil {
				apierror.Forbidden("You are not a member of this workspace").WriteJSON(w)
				return
			}

			ctx := context.WithValue(r.Context(), membershipContextKey, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermissions denies the request unless the caller's membership
// grants every listed permission. Must run after RequireMembership.
func RequirePermissions(required ...tenant.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := GetMembership(r.Context())
			if !tenant.Authorize(m, required...) {
				apierror.Forbidden("Insufficient permissions").WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetMembership returns the resolved membership from context, or nil.
func GetMembership(ctx context.Context) *tenant.Membership {
	m, _ := ctx.Value(membershipContextKey).(*tenant.Membership)
	return m
}

// GetTenantID returns the resolved workspace ID from context, or "".
func GetTenantID(ctx context.Context) string {
	if m := GetMembership(ctx); m != nil {
		return m.TenantID().String()
	}
	return ""
}
