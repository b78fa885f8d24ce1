// Package tenant contains the tenant aggregate: the organization entity,
// memberships with roles and permission sets, and invitations.
package tenant

import (
	"fmt"
	"regexp"
	"time"

	"github.com/allayhq/api/pkg/domain/shared"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Tenant represents an isolated organization. All domain data is
// partitioned by tenant ID.
type Tenant struct {
	id        shared.ID
	name      string
	slug      string
	isActive  bool
	createdAt time.Time
	updatedAt time.Time
}

// NewTenant creates a new Tenant.
func NewTenant(name, slug string) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: invalid slug %q", shared.ErrValidation, slug)
	}

	now := time.Now().UTC()
	return &Tenant{
		id:        shared.NewID(),
		name:      name,
		slug:      slug,
		isActive:  true,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstituteTenant recreates a Tenant from persistence.
func ReconstituteTenant(id shared.ID, name, slug string, isActive bool, createdAt, updatedAt time.Time) *Tenant {
	return &Tenant{
		id:        id,
		name:      name,
		slug:      slug,
		isActive:  isActive,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the tenant ID.
func (t *Tenant) ID() shared.ID {
	return t.id
}

// Name returns the tenant name.
func (t *Tenant) Name() string {
	return t.name
}

// Slug returns the tenant slug.
func (t *Tenant) Slug() string {
	return t.slug
}

// IsActive reports whether the tenant is active.
func (t *Tenant) IsActive() bool {
	return t.isActive
}

// CreatedAt returns when the tenant was created.
func (t *Tenant) CreatedAt() time.Time {
	return t.createdAt
}

// UpdatedAt returns when the tenant was last updated.
func (t *Tenant) UpdatedAt() time.Time {
	return t.updatedAt
}

// UpdateName updates the tenant name.
func (t *Tenant) UpdateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	t.name = name
	t.updatedAt = time.Now().UTC()
	return nil
}

// Deactivate marks the tenant inactive.
func (t *Tenant) Deactivate() {
	t.isActive = false
	t.updatedAt = time.Now().UTC()
}
