package resolver

import (
	"github.com/google/uuid"
)

// UserType classifies the acting user for resolution purposes.
type UserType string

const (
	UserTypeSuperAdmin  UserType = "super_admin"
	UserTypeTenantAdmin UserType = "tenant_admin"
	UserTypeStaff       UserType = "staff"
	UserTypeGuestStaff  UserType = "guest_staff"
)

// Valid reports whether the user type is one of the known values.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeSuperAdmin, UserTypeTenantAdmin, UserTypeStaff, UserTypeGuestStaff:
		return true
	}
	return false
}

// User carries the identity and scoping context resolution needs.
// Lifecycle and authentication are owned elsewhere; the resolver only reads.
type User struct {
	ID       uuid.UUID
	Type     UserType
	TenantID *uuid.UUID
	FirmID   *uuid.UUID
	BranchID *uuid.UUID
	RoleIDs  []int64
}

// IsSuperAdmin satisfies the Actor interfaces of the catalog packages.
func (u User) IsSuperAdmin() bool {
	return u.Type == UserTypeSuperAdmin
}
