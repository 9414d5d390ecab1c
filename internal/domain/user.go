package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role represents what a user does on the platform.
type Role string

const (
	RoleRider    Role = "RIDER"
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRider, RoleCustomer, RoleStaff:
		return true
	}
	return false
}

// User represents an account in the system.
type User struct {
	ID         string
	Username   string
	FirstName  string
	MiddleName string
	LastName   string
	Role       Role
	IsStaff    bool
	Balance    decimal.Decimal // never negative, two decimal places
	CreatedAt  time.Time
}

// FullName returns the display name of the user.
func (u *User) FullName() string {
	parts := []string{u.FirstName}
	if u.MiddleName != "" {
		parts = append(parts, u.MiddleName)
	}
	parts = append(parts, u.LastName)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Actor is the authenticated caller of a core operation.
// It is supplied by the identity provider and treated as already validated.
type Actor struct {
	UserID  string
	Role    Role
	IsStaff bool
}

// Staff reports whether the actor may perform staff operations.
func (a Actor) Staff() bool {
	return a.IsStaff || a.Role == RoleStaff
}
