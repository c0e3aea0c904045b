package role

import (
	"time"

	"github.com/google/uuid"

	"github.com/lodgekit/lodgekit/pkg/permission"
)

// Role is a named bundle of permission grants.
// A nil TenantID makes the role global; global names and tenant-scoped names
// are unique within their own scope.
type Role struct {
	ID             int64
	TenantID       *uuid.UUID
	Name           string
	DisplayName    string
	Description    string
	System         bool
	Default        bool
	HierarchyLevel int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GrantStatus is the lifecycle state of a single grant row.
type GrantStatus string

const (
	GrantActive   GrantStatus = "active"
	GrantInactive GrantStatus = "inactive"
)

// Grant assigns one permission to one role.
// At most one grant row exists per (role, permission) pair.
type Grant struct {
	RoleID       int64
	PermissionID int64
	Granted      bool
	Status       GrantStatus
	UpdatedAt    time.Time
}

// AnnotatedPermission pairs a catalog entry with its grant state for one role.
// Ungranted permissions carry Granted=false so callers can render the full
// assignment picker from a single query.
type AnnotatedPermission struct {
	permission.Permission
	Granted bool
	Status  GrantStatus
}

// Actor is the caller identity a write operation is performed as.
type Actor interface {
	IsSuperAdmin() bool
}

// Filter narrows role listings.
type Filter struct {
	TenantID      *uuid.UUID // roles scoped to this tenant
	IncludeGlobal bool       // also include global (nil-tenant) roles
}
