package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/allayhq/api/internal/app"
	"github.com/allayhq/api/internal/infra/http/middleware"
	"github.com/allayhq/api/pkg/apierror"
	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/tenant"
	"github.com/allayhq/api/pkg/logger"
	"github.com/allayhq/api/pkg/validator"
)

// TenantHandler serves workspace, membership and invitation endpoints.
type TenantHandler struct {
	tenants   *app.TenantService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewTenantHandler creates a new tenant handler.
func NewTenantHandler(tenants *app.TenantService, v *validator.Validator, log *logger.Logger) *TenantHandler {
	return &TenantHandler{
		tenants:   tenants,
		validator: v,
		logger:    log.With("handler", "tenant"),
	}
}

// TenantResponse is the public shape of a workspace.
type TenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toTenantResponse(t *tenant.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID().String(),
		Name:      t.Name(),
		Slug:      t.Slug(),
		CreatedAt: t.CreatedAt(),
	}
}

// MemberResponse is a workspace member with user details.
type MemberResponse struct {
	MembershipID string    `json:"membershipId"`
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName,omitempty"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions"`
	JoinedAt     time.Time `json:"joinedAt"`
}

func toMemberResponse(m *tenant.MemberWithUser) MemberResponse {
	perms := m.Membership.Permissions()
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.String())
	}
	return MemberResponse{
		MembershipID: m.Membership.ID().String(),
		UserID:       m.Membership.UserID().String(),
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Role:         m.Membership.Role().String(),
		Permissions:  out,
		JoinedAt:     m.Membership.JoinedAt(),
	}
}

// InvitationResponse is the public shape of an invitation. The token is
// only included for workspace-scoped listings, never for previews.
type InvitationResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Permissions   []string  `json:"permissions,omitempty"`
	Message       string    `json:"message,omitempty"`
	Status        string    `json:"status"`
	Token         string    `json:"token,omitempty"`
	WorkspaceName string    `json:"workspaceName,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toInvitationResponse(inv *tenant.Invitation, includeToken bool) InvitationResponse {
	perms := inv.ProposedPermissions()
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.String())
	}
	resp := InvitationResponse{
		ID:          inv.ID().String(),
		Email:       inv.Email(),
		Role:        inv.ProposedRole().String(),
		Permissions: out,
		Message:     inv.Message(),
		Status:      string(inv.Status()),
		ExpiresAt:   inv.ExpiresAt(),
		CreatedAt:   inv.CreatedAt(),
	}
	if includeToken {
		resp.Token = inv.Token()
	}
	return resp
}

// Create handles POST /tenants.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input app.CreateTenantInput
	if err := decodeAndValidate(r, h.validator, &input); err != nil {
		respondError(w, r, err)
		return
	}

	u := middleware.GetUser(r.Context())
	t, err := h.tenants.CreateTenant(r.Context(), u.ID(), input)
	if err != nil {
		respondError(w, r, mapTenantError(err))
		return
	}

	resp := toTenantResponse(t)
	resp.Role = tenant.RoleOwner.String()
	respondJSON(w, http.StatusCreated, resp)
}

// List handles GET /tenants, returning the caller's workspaces.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r.Context())
	tenants, err := h.tenants.ListTenantsForUser(r.Context(), u.ID())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]TenantResponse, 0, len(tenants))
	for _, tw := range tenants {
		resp := toTenantResponse(tw.Tenant)
		resp.Role = tw.Role.String()
		out = append(out, resp)
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /tenants/{tenantID}.
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	m := middleware.GetMembership(r.Context())
	t, err := h.tenants.GetTenant(r.Context(), m.TenantID())
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := toTenantResponse(t)
	resp.Role = m.Role().String()
	respondJSON(w, http.StatusOK, resp)
}

// Update handles PATCH /tenants/{tenantID}.
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input app.UpdateTenantInput
	if err := decodeAndValidate(r, h.validator, &input); err != nil {
		respondError(w, r, err)
		return
	}

	m := middleware.GetMembership(r.Context())
	t, err := h.tenants.UpdateTenant(r.Context(), m.TenantID(), input)
	if err != nil {
		respondError(w, r, mapTenantError(err))
		return
	}

	resp := toTenantResponse(t)
	resp.Role = m.Role().String()
	respondJSON(w, http.StatusOK, resp)
}

// ListMembers handles GET /tenants/{tenantID}/members.
func (h *TenantHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	m := middleware.GetMembership(r.Context())
	members, err := h.tenants.ListMembers(r.Context(), m.TenantID())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]MemberResponse, 0, len(members))
	for _, member := range members {
		out = append(out, toMemberResponse(member))
	}
	respondJSON(w, http.StatusOK, out)
}

// UpdateMemberRole handles PATCH /tenants/{tenantID}/members/{membershipID}.
func (h *TenantHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	membershipID, err := shared.IDFromString(chi.URLParam(r, "membershipID"))
	if err != nil {
		respondError(w, r, apierror.BadRequest("Invalid membership ID"))
		return
	}

	var input app.UpdateMemberRoleInput
	if err := decodeAndValidate(r, h.validator, &input); err != nil {
		respondError(w, r, err)
		return
	}

	m := middleware.GetMembership(r.Context())
	updated, err := h.tenants.UpdateMemberRole(r.Context(), m.TenantID(), membershipID, input)
	if err != nil {
		respondError(w, r, mapTenantError(err))
		return
	}

	perms := updated.Permissions()
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.String())
	}
	respondJSON(w, http.StatusOK, MemberResponse{
		MembershipID: updated.ID().String(),
		UserID:       updated.UserID().String(),
		Role:         updated.Role().String(),
		Permissions:  out,
		JoinedAt:     updated.JoinedAt(),
	})
}

// RemoveMember handles DELETE /tenants/{tenantID}/members/{membershipID}.
func (h *TenantHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	membershipID, err := shared.IDFromString(chi.URLParam(r, "membershipID"))
	if err != nil {
		respondError(w, r, apierror.BadRequest("Invalid membership ID"))
		return
	}

	m := middleware.GetMembership(r.Context())
	if err := h.tenants.RemoveMember(r.Context(), m.TenantID(), membershipID); err != nil {
		respondError(w, r, mapTenantError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Invite handles POST /tenants/{tenantID}/invitations.
func (h *TenantHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var input app.InviteMemberInput
	if err := decodeAndValidate(r, h.validator, &input); err != nil {
		respondError(w, r, err)
		return
	}

	m := middleware.GetMembership(r.Context())
	inv, err := h.tenants.InviteMember(r.Context(), m.TenantID(), m.UserID(), input)
	if err != nil {
		respondError(w, r, mapTenantError(err))
		return
	}
	respondJSON(w, http.StatusCreated, toInvitationResponse(inv, true))
}

// ListInvitations handles GET /tenants/{tenantID}/invitations.
func (h *TenantHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	m := middleware.GetMembership(r.Context())
	invitations, err := h.tenants.ListInvitations(r.Context(), m.TenantID())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		out = append(out, toInvitationResponse(inv, true))
	}
	respondJSON(w, http.StatusOK, out)
}

// RevokeInvitation handles DELETE /tenants/{tenantID}/invitations/{invitationID}.
func (h *TenantHandler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, err := shared.IDFromString(chi.URLParam(r, "invitationID"))
	if err != nil {
		respondError(w, r, apierror.BadRequest("Invalid invitation ID"))
		return
	}

	m := middleware.GetMembership(r.Context())
	if err := h.tenants.RevokeInvitation(r.Context(), m.TenantID(), invitationID); err != nil {
		respondError(w, r, mapTenantError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewInvitation handles GET /invitations/{token}. It lets an invitee
// see what they were invited to before signing in; the token itself is
// the credential, so the response never echoes it back.
func (h *TenantHandler) PreviewInvitation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	inv, err := h.tenants.GetInvitationByToken(r.Context(), token)
	if err != nil {
		respondError(w, r, mapTenantError(err))
		return
	}

	resp := toInvitationResponse(inv, false)
	if t, err := h.tenants.GetTenant(r.Context(), inv.TenantID()); err == nil {
		resp.WorkspaceName = t.Name()
	}
	respondJSON(w, http.StatusOK, resp)
}

// AcceptInvitation handles POST /invitations/{token}/accept.
func (h *TenantHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	u := middleware.GetUser(r.Context())

	m, err := h.tenants.AcceptInvitation(r.Context(), token, u)
	if err != nil {
		respondError(w, r, mapTenantError(err))
		return
	}

	perms := m.Permissions()
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.String())
	}
	respondJSON(w, http.StatusOK, MemberResponse{
		MembershipID: m.ID().String(),
		UserID:       m.UserID().String(),
		Email:        u.Email(),
		FirstName:    u.FirstName(),
		LastName:     u.LastName(),
		Role:         m.Role().String(),
		Permissions:  out,
		JoinedAt:     m.JoinedAt(),
	})
}

// mapTenantError translates service errors into API errors.
func mapTenantError(err error) error {
	switch {
	case errors.Is(err, app.ErrSlugTaken):
		return apierror.Conflict("This workspace URL is already taken")
	case errors.Is(err, app.ErrNotMember):
		return apierror.Forbidden("You are not a member of this workspace")
	case errors.Is(err, app.ErrAlreadyMember):
		return apierror.Conflict("User is already an active member")
	case errors.Is(err, app.ErrInvitationPending):
		return apierror.Conflict("A pending invitation already exists for this email")
	case errors.Is(err, app.ErrInvitationNotUsable):
		return apierror.New(http.StatusGone, "INVITATION_NOT_USABLE", "Invitation is expired or no longer pending")
	case errors.Is(err, app.ErrInvitationMismatch):
		return apierror.Forbidden("This invitation was issued for a different email address")
	case errors.Is(err, app.ErrOwnerImmutable):
		return apierror.Forbidden("The owner membership cannot be changed or removed")
	default:
		return err
	}
}
