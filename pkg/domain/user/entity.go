// Package user contains the user aggregate.
package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/allayhq/api/pkg/domain/shared"
)

// User is a registered account. Tenancy is expressed through memberships,
// not on the user row itself.
type User struct {
	id           shared.ID
	email        string
	passwordHash string
	firstName    string
	lastName     string
	isActive     bool
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates a new active User. passwordHash must already be hashed by
// the caller (pkg/password).
func New(email, passwordHash, firstName, lastName string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", shared.ErrValidation)
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("%w: password hash is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &User{
		id:           shared.NewID(),
		email:        strings.ToLower(email),
		passwordHash: passwordHash,
		firstName:    firstName,
		lastName:     lastName,
		isActive:     true,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstitute recreates a User from persistence.
func Reconstitute(id shared.ID, email, passwordHash, firstName, lastName string, isActive bool, createdAt, updatedAt time.Time) *User {
	return &User{
		id:           id,
		email:        email,
		passwordHash: passwordHash,
		firstName:    firstName,
		lastName:     lastName,
		isActive:     isActive,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the user ID.
func (u *User) ID() shared.ID {
	return u.id
}

// Email returns the user's email.
func (u *User) Email() string {
	return u.email
}

// PasswordHash returns the stored password hash.
func (u *User) PasswordHash() string {
	return u.passwordHash
}

// FirstName returns the user's first name.
func (u *User) FirstName() string {
	return u.firstName
}

// LastName returns the user's last name.
func (u *User) LastName() string {
	return u.lastName
}

// FullName returns "First Last", trimmed.
func (u *User) FullName() string {
	return strings.TrimSpace(u.firstName + " " + u.lastName)
}

// IsActive reports whether the account is active.
func (u *User) IsActive() bool {
	return u.isActive
}

// CreatedAt returns when the user registered.
func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

// UpdatedAt returns when the user was last updated.
func (u *User) UpdatedAt() time.Time {
	return u.updatedAt
}

// Deactivate disables the account.
func (u *User) Deactivate() {
	u.isActive = false
	u.updatedAt = time.Now().UTC()
}
