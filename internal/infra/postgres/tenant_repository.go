package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/allayhq/api/pkg/domain/shared"
	"github.com/allayhq/api/pkg/domain/tenant"
)

// tenantColumns is the list of columns to select for a tenant.
const tenantColumns = `id, name, slug, is_active, created_at, updated_at`

// membershipColumns is the list of columns to select for a membership.
const membershipColumns = `id, user_id, tenant_id, role, permissions, joined_at, last_active_at, is_active`

// invitationColumns is the list of columns to select for an invitation.
const invitationColumns = `id, tenant_id, email, token, role, permissions, message, invited_by, expires_at, status, accepted_at, accepted_by, created_at`

// TenantRepository implements tenant.Repository using PostgreSQL. It owns
// the tenant, membership and invitation tables; they share a repository
// because invitation acceptance mutates all three consistently.
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create persists a new tenant.
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, slug, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID().String(),
		t.Name(),
		t.Slug(),
		t.IsActive(),
		t.CreatedAt(),
		t.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: tenant with slug %s", shared.ErrAlreadyExists, t.Slug())
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

// GetByID retrieves a tenant by ID.
func (r *TenantRepository) GetByID(ctx context.Context, id shared.ID) (*tenant.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE id = $1`, tenantColumns)

	t, err := r.scanTenant(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: tenant %s", shared.ErrNotFound, id)
		}
		return nil, err
	}

	return t, nil
}

// GetBySlug retrieves a tenant by slug.
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE slug = $1`, tenantColumns)

	t, err := r.scanTenant(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: tenant %s", shared.ErrNotFound, slug)
		}
		return nil, err
	}

	return t, nil
}

// Update persists changes to an existing tenant.
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, is_active = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, t.ID().String(), t.Name(), t.IsActive(), t.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: tenant %s", shared.ErrNotFound, t.ID())
	}

	return nil
}

// Delete removes a tenant. Memberships and invitations cascade.
func (r *TenantRepository) Delete(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: tenant %s", shared.ErrNotFound, id)
	}

	return nil
}

// ExistsBySlug checks whether a tenant with the given slug exists.
func (r *TenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tenants WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tenant existence: %w", err)
	}
	return exists, nil
}

// CreateMembership persists a new membership.
func (r *TenantRepository) CreateMembership(ctx context.Context, m *tenant.Membership) error {
	query := `
		INSERT INTO tenant_members (id, user_id, tenant_id, role, permissions, joined_at, last_active_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID().String(),
		m.UserID().String(),
		m.TenantID().String(),
		m.Role().String(),
		pq.Array(permissionsToStrings(m.Permissions())),
		m.JoinedAt(),
		m.LastActiveAt(),
		m.IsActive(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user is already a member of this tenant", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}

	return nil
}

// GetMembership retrieves a membership by user and tenant.
func (r *TenantRepository) GetMembership(ctx context.Context, userID, tenantID shared.ID) (*tenant.Membership, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenant_members WHERE user_id = $1 AND tenant_id = $2`, membershipColumns)

	m, err := r.scanMembership(r.db.QueryRowContext(ctx, query, userID.String(), tenantID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: membership", shared.ErrNotFound)
		}
		return nil, err
	}

	return m, nil
}

// GetMembershipByID retrieves a membership by its row ID.
func (r *TenantRepository) GetMembershipByID(ctx context.Context, id shared.ID) (*tenant.Membership, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenant_members WHERE id = $1`, membershipColumns)

	m, err := r.scanMembership(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: membership %s", shared.ErrNotFound, id)
		}
		return nil, err
	}

	return m, nil
}

// UpdateMembership persists changes to an existing membership.
func (r *TenantRepository) UpdateMembership(ctx context.Context, m *tenant.Membership) error {
	query := `
		UPDATE tenant_members
		SET role = $2, permissions = $3, last_active_at = $4, is_active = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		m.ID().String(),
		m.Role().String(),
		pq.Array(permissionsToStrings(m.Permissions())),
		m.LastActiveAt(),
		m.IsActive(),
	)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: membership %s", shared.ErrNotFound, m.ID())
	}

	return nil
}

// ListMembersByTenant lists active memberships for a tenant.
func (r *TenantRepository) ListMembersByTenant(ctx context.Context, tenantID shared.ID) ([]*tenant.Membership, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tenant_members
		WHERE tenant_id = $1 AND is_active = true
		ORDER BY joined_at ASC
	`, membershipColumns)

	rows, err := r.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*tenant.Membership
	for rows.Next() {
		m, err := r.scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// ListMembersWithUserInfo lists active memberships joined with user details.
func (r *TenantRepository) ListMembersWithUserInfo(ctx context.Context, tenantID shared.ID) ([]*tenant.MemberWithUser, error) {
	query := `
		SELECT m.id, m.user_id, m.tenant_id, m.role, m.permissions, m.joined_at, m.last_active_at, m.is_active,
			u.email, u.first_name, u.last_name
		FROM tenant_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.tenant_id = $1 AND m.is_active = true
		ORDER BY m.joined_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list members with user info: %w", err)
	}
	defer rows.Close()

	var members []*tenant.MemberWithUser
	for rows.Next() {
		var (
			idStr        string
			userIDStr    string
			tenantIDStr  string
			role         string
			perms        pq.StringArray
			joinedAt     sql.NullTime
			lastActiveAt sql.NullTime
			isActive     bool
			email        string
			firstName    sql.NullString
			lastName     sql.NullString
		)
		if err := rows.Scan(&idStr, &userIDStr, &tenantIDStr, &role, &perms, &joinedAt, &lastActiveAt, &isActive, &email, &firstName, &lastName); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}

		m, err := reconstituteMembership(idStr, userIDStr, tenantIDStr, role, perms, joinedAt, lastActiveAt, isActive)
		if err != nil {
			return nil, err
		}

		members = append(members, &tenant.MemberWithUser{
			Membership: m,
			Email:      email,
			FirstName:  nullStringValue(firstName),
			LastName:   nullStringValue(lastName),
		})
	}

	return members, rows.Err()
}

// ListTenantsByUser lists tenants a user is an active member of, with role.
func (r *TenantRepository) ListTenantsByUser(ctx context.Context, userID shared.ID) ([]*tenant.TenantWithRole, error) {
	query := `
		SELECT t.id, t.name, t.slug, t.is_active, t.created_at, t.updated_at, m.role, m.joined_at
		FROM tenants t
		JOIN tenant_members m ON m.tenant_id = t.id
		WHERE m.user_id = $1 AND m.is_active = true AND t.is_active = true
		ORDER BY m.joined_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants by user: %w", err)
	}
	defer rows.Close()

	var result []*tenant.TenantWithRole
	for rows.Next() {
		var (
			idStr     string
			name      string
			slug      string
			isActive  bool
			createdAt sql.NullTime
			updatedAt sql.NullTime
			role      string
			joinedAt  sql.NullTime
		)
		if err := rows.Scan(&idStr, &name, &slug, &isActive, &createdAt, &updatedAt, &role, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}

		id, err := shared.IDFromString(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid tenant id in database: %w", err)
		}

		result = append(result, &tenant.TenantWithRole{
			Tenant:   tenant.ReconstituteTenant(id, name, slug, isActive, createdAt.Time, updatedAt.Time),
			Role:     tenant.Role(role),
			JoinedAt: joinedAt.Time,
		})
	}

	return result, rows.Err()
}

// GetActiveMemberByEmail finds an active member of a tenant by user email.
func (r *TenantRepository) GetActiveMemberByEmail(ctx context.Context, tenantID shared.ID, email string) (*tenant.MemberWithUser, error) {
	query := `
		SELECT m.id, m.user_id, m.tenant_id, m.role, m.permissions, m.joined_at, m.last_active_at, m.is_active,
			u.email, u.first_name, u.last_name
		FROM tenant_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.tenant_id = $1 AND u.email = lower($2) AND m.is_active = true
	`

	var (
		idStr        string
		userIDStr    string
		tenantIDStr  string
		role         string
		perms        pq.StringArray
		joinedAt     sql.NullTime
		lastActiveAt sql.NullTime
		isActive     bool
		memberEmail  string
		firstName    sql.NullString
		lastName     sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, tenantID.String(), email).Scan(
		&idStr, &userIDStr, &tenantIDStr, &role, &perms, &joinedAt, &lastActiveAt, &isActive,
		&memberEmail, &firstName, &lastName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: member", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get member by email: %w", err)
	}

	m, err := reconstituteMembership(idStr, userIDStr, tenantIDStr, role, perms, joinedAt, lastActiveAt, isActive)
	if err != nil {
		return nil, err
	}

	return &tenant.MemberWithUser{
		Membership: m,
		Email:      memberEmail,
		FirstName:  nullStringValue(firstName),
		LastName:   nullStringValue(lastName),
	}, nil
}

// CreateInvitation persists a new invitation.
func (r *TenantRepository) CreateInvitation(ctx context.Context, inv *tenant.Invitation) error {
	query := `
		INSERT INTO tenant_invitations (id, tenant_id, email, token, role, permissions, message, invited_by, expires_at, status, accepted_at, accepted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query, r.invitationArgs(inv)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: invitation", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil
}

// GetInvitationByID retrieves an invitation by ID.
func (r *TenantRepository) GetInvitationByID(ctx context.Context, id shared.ID) (*tenant.Invitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenant_invitations WHERE id = $1`, invitationColumns)

	inv, err := r.scanInvitation(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: invitation %s", shared.ErrNotFound, id)
		}
		return nil, err
	}

	return inv, nil
}

// GetInvitationByToken retrieves an invitation by its token.
func (r *TenantRepository) GetInvitationByToken(ctx context.Context, token string) (*tenant.Invitation, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenant_invitations WHERE token = $1`, invitationColumns)

	inv, err := r.scanInvitation(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: invitation", shared.ErrNotFound)
		}
		return nil, err
	}

	return inv, nil
}

// UpdateInvitation persists changes to an existing invitation.
func (r *TenantRepository) UpdateInvitation(ctx context.Context, inv *tenant.Invitation) error {
	query := `
		UPDATE tenant_invitations
		SET status = $2, accepted_at = $3, accepted_by = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		inv.ID().String(),
		string(inv.Status()),
		nullTime(inv.AcceptedAt()),
		nullID(inv.AcceptedBy()),
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: invitation %s", shared.ErrNotFound, inv.ID())
	}

	return nil
}

// ListInvitationsByTenant lists all invitations for a tenant, newest first.
func (r *TenantRepository) ListInvitationsByTenant(ctx context.Context, tenantID shared.ID) ([]*tenant.Invitation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tenant_invitations
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, invitationColumns)

	rows, err := r.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*tenant.Invitation
	for rows.Next() {
		inv, err := r.scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}

	return invitations, rows.Err()
}

// GetPendingInvitationByEmail finds a stored-PENDING invitation for an email
// within a tenant. Callers must still check expiry; the stored status lags.
func (r *TenantRepository) GetPendingInvitationByEmail(ctx context.Context, tenantID shared.ID, email string) (*tenant.Invitation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tenant_invitations
		WHERE tenant_id = $1 AND email = lower($2) AND status = 'PENDING'
		ORDER BY created_at DESC
		LIMIT 1
	`, invitationColumns)

	inv, err := r.scanInvitation(r.db.QueryRowContext(ctx, query, tenantID.String(), email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: invitation", shared.ErrNotFound)
		}
		return nil, err
	}

	return inv, nil
}

// AcceptInvitationTx atomically marks the invitation accepted and upserts the
// membership.
func (r *TenantRepository) AcceptInvitationTx(ctx context.Context, inv *tenant.Invitation, m *tenant.Membership) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE tenant_invitations
			SET status = $2, accepted_at = $3, accepted_by = $4
			WHERE id = $1 AND status = 'PENDING'
		`,
			inv.ID().String(),
			string(inv.Status()),
			nullTime(inv.AcceptedAt()),
			nullID(inv.AcceptedBy()),
		)
		if err != nil {
			return fmt.Errorf("failed to update invitation: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: invitation is no longer pending", shared.ErrConflict)
		}

		// Reactivation of a previously removed member lands on the same
		// (tenant_id, user_id) row.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tenant_members (id, user_id, tenant_id, role, permissions, joined_at, last_active_at, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (tenant_id, user_id) DO UPDATE
			SET role = EXCLUDED.role, permissions = EXCLUDED.permissions, last_active_at = EXCLUDED.last_active_at, is_active = true
		`,
			m.ID().String(),
			m.UserID().String(),
			m.TenantID().String(),
			m.Role().String(),
			pq.Array(permissionsToStrings(m.Permissions())),
			m.JoinedAt(),
			m.LastActiveAt(),
			m.IsActive(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert membership: %w", err)
		}

		return nil
	})
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// invitationArgs builds the full insert argument list for an invitation.
func (r *TenantRepository) invitationArgs(inv *tenant.Invitation) []any {
	return []any{
		inv.ID().String(),
		inv.TenantID().String(),
		inv.Email(),
		inv.Token(),
		inv.ProposedRole().String(),
		pq.Array(permissionsToStrings(inv.ProposedPermissions())),
		nullString(inv.Message()),
		inv.InvitedBy().String(),
		inv.ExpiresAt(),
		string(inv.Status()),
		nullTime(inv.AcceptedAt()),
		nullID(inv.AcceptedBy()),
		inv.CreatedAt(),
	}
}

// scanTenant scans a tenant row.
func (r *TenantRepository) scanTenant(row scanner) (*tenant.Tenant, error) {
	var (
		idStr     string
		name      string
		slug      string
		isActive  bool
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)

	if err := row.Scan(&idStr, &name, &slug, &isActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id in database: %w", err)
	}

	return tenant.ReconstituteTenant(id, name, slug, isActive, createdAt.Time, updatedAt.Time), nil
}

// scanMembership scans a membership row.
func (r *TenantRepository) scanMembership(row scanner) (*tenant.Membership, error) {
	var (
		idStr        string
		userIDStr    string
		tenantIDStr  string
		role         string
		perms        pq.StringArray
		joinedAt     sql.NullTime
		lastActiveAt sql.NullTime
		isActive     bool
	)

	if err := row.Scan(&idStr, &userIDStr, &tenantIDStr, &role, &perms, &joinedAt, &lastActiveAt, &isActive); err != nil {
		return nil, err
	}

	return reconstituteMembership(idStr, userIDStr, tenantIDStr, role, perms, joinedAt, lastActiveAt, isActive)
}

// scanInvitation scans an invitation row.
func (r *TenantRepository) scanInvitation(row scanner) (*tenant.Invitation, error) {
	var (
		idStr       string
		tenantIDStr string
		email       string
		token       string
		role        string
		perms       pq.StringArray
		message     sql.NullString
		invitedBy   string
		expiresAt   sql.NullTime
		status      string
		acceptedAt  sql.NullTime
		acceptedBy  sql.NullString
		createdAt   sql.NullTime
	)

	if err := row.Scan(&idStr, &tenantIDStr, &email, &token, &role, &perms, &message, &invitedBy, &expiresAt, &status, &acceptedAt, &acceptedBy, &createdAt); err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid invitation id in database: %w", err)
	}
	tenantID, err := shared.IDFromString(tenantIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id in database: %w", err)
	}
	inviterID, err := shared.IDFromString(invitedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid inviter id in database: %w", err)
	}

	return tenant.ReconstituteInvitation(
		id,
		tenantID,
		email,
		token,
		tenant.Role(role),
		permissionsFromStrings(perms),
		nullStringValue(message),
		inviterID,
		expiresAt.Time,
		tenant.InvitationStatus(status),
		nullTimeValue(acceptedAt),
		parseNullID(acceptedBy),
		createdAt.Time,
	), nil
}

// reconstituteMembership builds a domain membership from scanned columns.
func reconstituteMembership(idStr, userIDStr, tenantIDStr, role string, perms []string, joinedAt, lastActiveAt sql.NullTime, isActive bool) (*tenant.Membership, error) {
	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid membership id in database: %w", err)
	}
	userID, err := shared.IDFromString(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in database: %w", err)
	}
	tenantID, err := shared.IDFromString(tenantIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id in database: %w", err)
	}

	return tenant.ReconstituteMembership(
		id,
		userID,
		tenantID,
		tenant.Role(role),
		permissionsFromStrings(perms),
		joinedAt.Time,
		lastActiveAt.Time,
		isActive,
	), nil
}

// permissionsToStrings converts a permission slice for a text[] column.
func permissionsToStrings(perms []tenant.Permission) []string {
	result := make([]string, len(perms))
	for i, p := range perms {
		result[i] = string(p)
	}
	return result
}

// permissionsFromStrings converts a text[] column back to permissions.
func permissionsFromStrings(values []string) []tenant.Permission {
	result := make([]tenant.Permission, len(values))
	for i, v := range values {
		result[i] = tenant.Permission(v)
	}
	return result
}
