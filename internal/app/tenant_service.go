package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/allayhq/api/internal/config"
	"github.com/allayhq/api/internal/infra/jobs"
	"github.com/allayhq/api/internal/metrics"
	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/tenant"
	"github.com/allayhq/api/pkg/domain/user"
	"github.com/allayhq/api/pkg/logger"
)

// TenantService errors.
var (
	ErrSlugTaken           = errors.New("workspace slug is already taken")
	ErrNotMember           = errors.New("user is not a member of this workspace")
	ErrAlreadyMember       = errors.New("user is already an active member")
	ErrInvitationPending   = errors.New("a pending invitation already exists for this email")
	ErrInvitationNotUsable = errors.New("invitation is expired or no longer pending")
	ErrInvitationMismatch  = errors.New("invitation was issued for a different email")
	ErrOwnerImmutable      = errors.New("the owner membership cannot be changed or removed")
)

// TenantService handles workspaces, memberships and invitations.
type TenantService struct {
	tenantRepo    tenant.Repository
	userRepo      user.Repository
	emailEnqueuer EmailEnqueuer
	config        config.AuthConfig
	logger        *logger.Logger
}

// NewTenantService creates a new TenantService.
func NewTenantService(
	tenantRepo tenant.Repository,
	userRepo user.Repository,
	emailEnqueuer EmailEnqueuer,
	cfg config.AuthConfig,
	log *logger.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo:    tenantRepo,
		userRepo:      userRepo,
		emailEnqueuer: emailEnqueuer,
		config:        cfg,
		logger:        log.With("service", "tenant"),
	}
}

// CreateTenantInput represents the input for workspace creation.
type CreateTenantInput struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
	Slug string `json:"slug" validate:"required,slug,min=2,max=63"`
}

// CreateTenant creates a workspace with the creating user as its owner.
func (s *TenantService) CreateTenant(ctx context.Context, userID shared.ID, input CreateTenantInput) (*tenant.Tenant, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))

	taken, err := s.tenantRepo.ExistsBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if taken {
		return nil, ErrSlugTaken
	}

	t, err := tenant.NewTenant(strings.TrimSpace(input.Name), slug)
	if err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Create(ctx, t); err != nil {
		if shared.IsConflict(err) || errors.Is(err, shared.ErrAlreadyExists) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	owner, err := tenant.NewOwnerMembership(userID, t.ID())
	if err != nil {
		return nil, err
	}
	if err := s.tenantRepo.CreateMembership(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	s.logger.Info("workspace created",
		"tenant_id", t.ID().String(),
		"slug", slug,
		"owner_id", userID.String(),
	)
	return t, nil
}

// GetTenant retrieves a workspace by ID.
func (s *TenantService) GetTenant(ctx context.Context, tenantID shared.ID) (*tenant.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, tenantID)
}

// UpdateTenantInput represents the input for workspace updates.
type UpdateTenantInput struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// UpdateTenant renames a workspace.
func (s *TenantService) UpdateTenant(ctx context.Context, tenantID shared.ID, input UpdateTenantInput) (*tenant.Tenant, error) {
	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := t.UpdateName(strings.TrimSpace(input.Name)); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}
	return t, nil
}

// ListTenantsForUser lists the workspaces a user belongs to with their role.
func (s *TenantService) ListTenantsForUser(ctx context.Context, userID shared.ID) ([]*tenant.TenantWithRole, error) {
	return s.tenantRepo.ListTenantsByUser(ctx, userID)
}

// GetMembership returns the caller's active membership in a workspace, or
// ErrNotMember. The middleware uses this to resolve tenant context.
func (s *TenantService) GetMembership(ctx context.Context, userID, tenantID shared.ID) (*tenant.Membership, error) {
	m, err := s.tenantRepo.GetMembership(ctx, userID, tenantID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if !m.IsActive() {
		return nil, ErrNotMember
	}
	return m, nil
}

// ListMembers lists a workspace's active members with user details.
func (s *TenantService) ListMembers(ctx context.Context, tenantID shared.ID) ([]*tenant.MemberWithUser, error) {
	return s.tenantRepo.ListMembersWithUserInfo(ctx, tenantID)
}

// UpdateMemberRoleInput represents the input for member role updates.
type UpdateMemberRoleInput struct {
	Role        string   `json:"role" validate:"required,invitable_role"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,permission"`
}

// UpdateMemberRole changes a member's role and permission set. The owner
// membership is immutable.
func (s *TenantService) UpdateMemberRole(ctx context.Context, tenantID, membershipID shared.ID, input UpdateMemberRoleInput) (*tenant.Membership, error) {
	m, err := s.tenantRepo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m.TenantID() != tenantID {
		return nil, fmt.Errorf("%w: membership %s", shared.ErrNotFound, membershipID)
	}
	if m.IsOwner() {
		return nil, ErrOwnerImmutable
	}

	role, ok := tenant.ParseRole(input.Role)
	if !ok || role == tenant.RoleOwner {
		return nil, fmt.Errorf("%w: invalid role %q", shared.ErrValidation, input.Role)
	}

	permissions, err := parsePermissionInput(input.Permissions)
	if err != nil {
		return nil, err
	}

	if err := m.UpdateRole(role, permissions); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.UpdateMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update membership: %w", err)
	}

	s.logger.Info("member role updated",
		"tenant_id", tenantID.String(),
		"membership_id", membershipID.String(),
		"role", role.String(),
	)
	return m, nil
}

// RemoveMember deactivates a membership. The owner cannot be removed.
func (s *TenantService) RemoveMember(ctx context.Context, tenantID, membershipID shared.ID) error {
	m, err := s.tenantRepo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.TenantID() != tenantID {
		return fmt.Errorf("%w: membership %s", shared.ErrNotFound, membershipID)
	}
	if m.IsOwner() {
		return ErrOwnerImmutable
	}

	m.Deactivate()
	if err := s.tenantRepo.UpdateMembership(ctx, m); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.logger.Info("member removed",
		"tenant_id", tenantID.String(),
		"membership_id", membershipID.String(),
	)
	return nil
}

// InviteMemberInput represents the input for creating an invitation.
type InviteMemberInput struct {
	Email       string   `json:"email" validate:"required,email,max=255"`
	Role        string   `json:"role" validate:"required,invitable_role"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,permission"`
	Message     string   `json:"message" validate:"max=500"`
}

// InviteMember creates a pending invitation. A stale pending invitation
// for the same email is transitioned to EXPIRED here rather than by a
// background sweep; an unexpired one blocks the new invite.
func (s *TenantService) InviteMember(ctx context.Context, tenantID, invitedBy shared.ID, input InviteMemberInput) (*tenant.Invitation, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))

	existing, err := s.tenantRepo.GetActiveMemberByEmail(ctx, tenantID, email)
	if err != nil && !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	pending, err := s.tenantRepo.GetPendingInvitationByEmail(ctx, tenantID, email)
	if err != nil && !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check pending invitations: %w", err)
	}
	if pending != nil {
		if !pending.IsExpired() {
			return nil, ErrInvitationPending
		}
		// Lazy expiry: retire the stale invite so a fresh one can exist.
		if err := pending.MarkExpired(); err == nil {
			if err := s.tenantRepo.UpdateInvitation(ctx, pending); err != nil {
				return nil, fmt.Errorf("failed to expire stale invitation: %w", err)
			}
			metrics.InvitationsTotal.WithLabelValues(tenantID.String(), string(tenant.InvitationExpired)).Inc()
		}
	}

	role, ok := tenant.ParseRole(input.Role)
	if !ok {
		return nil, fmt.Errorf("%w: invalid role %q", shared.ErrValidation, input.Role)
	}

	permissions, err := parsePermissionInput(input.Permissions)
	if err != nil {
		return nil, err
	}

	inv, err := tenant.NewInvitation(tenantID, email, role, permissions, strings.TrimSpace(input.Message), invitedBy, s.config.InvitationTTL)
	if err != nil {
		return nil, err
	}

	if err := s.tenantRepo.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	metrics.InvitationsTotal.WithLabelValues(tenantID.String(), string(tenant.InvitationPending)).Inc()

	s.logger.Info("invitation created",
		"tenant_id", tenantID.String(),
		"invitation_id", inv.ID().String(),
		"email", email,
		"role", role.String(),
	)

	s.enqueueInvitationEmail(ctx, inv)
	return inv, nil
}

// enqueueInvitationEmail queues the invitation email. Delivery is best
// effort; the invitation row is already committed.
func (s *TenantService) enqueueInvitationEmail(ctx context.Context, inv *tenant.Invitation) {
	if s.emailEnqueuer == nil {
		return
	}

	inviterName := "A teammate"
	if inviter, err := s.userRepo.GetByID(ctx, inv.InvitedBy()); err == nil {
		inviterName = inviter.FullName()
	}

	workspaceName := ""
	if t, err := s.tenantRepo.GetByID(ctx, inv.TenantID()); err == nil {
		workspaceName = t.Name()
	}

	err := s.emailEnqueuer.EnqueueInvitationEmail(ctx, jobs.InvitationEmailPayload{
		RecipientEmail: inv.Email(),
		InviterName:    inviterName,
		WorkspaceName:  workspaceName,
		Role:           inv.ProposedRole().String(),
		Message:        inv.Message(),
		InvitationID:   inv.ID().String(),
		TenantID:       inv.TenantID().String(),
		ExpiresAt:      inv.ExpiresAt(),
	})
	if err != nil {
		s.logger.Error("failed to enqueue invitation email",
			"invitation_id", inv.ID().String(),
			"error", err,
		)
	}
}

// ListInvitations lists a workspace's invitations, newest first.
func (s *TenantService) ListInvitations(ctx context.Context, tenantID shared.ID) ([]*tenant.Invitation, error) {
	return s.tenantRepo.ListInvitationsByTenant(ctx, tenantID)
}

// GetInvitationByToken resolves an invitation for the acceptance page.
// A stale pending invitation is transitioned to EXPIRED on this read.
func (s *TenantService) GetInvitationByToken(ctx context.Context, token string) (*tenant.Invitation, error) {
	inv, err := s.tenantRepo.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if inv.Status() == tenant.InvitationPending && inv.IsExpired() {
		if err := inv.MarkExpired(); err == nil {
			if err := s.tenantRepo.UpdateInvitation(ctx, inv); err != nil {
				s.logger.Warn("failed to expire stale invitation", "invitation_id", inv.ID().String(), "error", err)
			} else {
				metrics.InvitationsTotal.WithLabelValues(inv.TenantID().String(), string(tenant.InvitationExpired)).Inc()
			}
		}
	}

	return inv, nil
}

// RevokeInvitation revokes a pending invitation.
func (s *TenantService) RevokeInvitation(ctx context.Context, tenantID, invitationID shared.ID) error {
	inv, err := s.tenantRepo.GetInvitationByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv.TenantID() != tenantID {
		return fmt.Errorf("%w: invitation %s", shared.ErrNotFound, invitationID)
	}

	if err := inv.Revoke(); err != nil {
		return err
	}
	if err := s.tenantRepo.UpdateInvitation(ctx, inv); err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	metrics.InvitationsTotal.WithLabelValues(tenantID.String(), string(tenant.InvitationRevoked)).Inc()

	s.logger.Info("invitation revoked",
		"tenant_id", tenantID.String(),
		"invitation_id", invitationID.String(),
	)
	return nil
}

// AcceptInvitation accepts an invitation on behalf of the authenticated
// user, creating or reactivating their membership atomically with the
// invitation status change.
func (s *TenantService) AcceptInvitation(ctx context.Context, token string, u *user.User) (*tenant.Membership, error) {
	inv, err := s.tenantRepo.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(inv.Email(), u.Email()) {
		return nil, ErrInvitationMismatch
	}

	if inv.Status() == tenant.InvitationPending && inv.IsExpired() {
		if err := inv.MarkExpired(); err == nil {
			if err := s.tenantRepo.UpdateInvitation(ctx, inv); err != nil {
				s.logger.Warn("failed to expire stale invitation", "invitation_id", inv.ID().String(), "error", err)
			}
		}
		return nil, ErrInvitationNotUsable
	}

	if err := inv.Accept(u.ID()); err != nil {
		return nil, ErrInvitationNotUsable
	}

	var membership *tenant.Membership
	existing, err := s.tenantRepo.GetMembership(ctx, u.ID(), inv.TenantID())
	switch {
	case err == nil && existing.IsActive():
		return nil, ErrAlreadyMember
	case err == nil:
		if err := existing.Reactivate(inv.ProposedRole(), inv.ProposedPermissions()); err != nil {
			return nil, err
		}
		membership = existing
	case shared.IsNotFound(err):
		membership, err = tenant.NewMembership(u.ID(), inv.TenantID(), inv.ProposedRole(), inv.ProposedPermissions())
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	if err := s.tenantRepo.AcceptInvitationTx(ctx, inv, membership); err != nil {
		if shared.IsConflict(err) {
			return nil, ErrInvitationNotUsable
		}
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	metrics.InvitationsTotal.WithLabelValues(inv.TenantID().String(), string(tenant.InvitationAccepted)).Inc()

	s.logger.Info("invitation accepted",
		"tenant_id", inv.TenantID().String(),
		"invitation_id", inv.ID().String(),
		"user_id", u.ID().String(),
	)
	return membership, nil
}

// parsePermissionInput converts permission strings, treating an empty
// list as "use the role defaults".
func parsePermissionInput(values []string) ([]tenant.Permission, error) {
	if len(values) == 0 {
		return nil, nil
	}
	permissions, ok := tenant.ParsePermissions(values)
	if !ok {
		return nil, fmt.Errorf("%w: unknown permission in %v", shared.ErrValidation, values)
	}
	return permissions, nil
}
