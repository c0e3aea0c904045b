package role

import (
	"context"
)

// Store is the persistence interface for roles and their grants.
type Store interface {
	// CreateRole inserts a role and returns it with its assigned id.
	// Returns ErrDuplicateName on a name collision within the tenant scope.
	CreateRole(ctx context.Context, r Role) (Role, error)

	// GetRole returns a role by id. Returns ErrNotFound if absent.
	GetRole(ctx context.Context, id int64) (Role, error)

	// ListRoles returns roles matching the filter, ordered by hierarchy level
	// descending then name ascending.
	ListRoles(ctx context.Context, f Filter) ([]Role, error)

	// UpdateRole replaces the stored role with the same id.
	UpdateRole(ctx context.Context, r Role) (Role, error)

	// DeleteRole removes a role and all its grant rows.
	DeleteRole(ctx context.Context, id int64) error

	// ReplaceGrants atomically supersedes the role's grant set with one active,
	// granted row per permission id. Calls for the same role serialize; a
	// concurrent reader never observes a partially replaced set.
	ReplaceGrants(ctx context.Context, roleID int64, permissionIDs []int64) error

	// Grants returns the grant rows for a role.
	Grants(ctx context.Context, roleID int64) ([]Grant, error)

	// GrantedPermissionIDs returns the union of active, granted permission ids
	// across the given roles, deduplicated.
	GrantedPermissionIDs(ctx context.Context, roleIDs []int64) ([]int64, error)

	// PermissionReferenced reports whether any grant row references the permission.
	PermissionReferenced(ctx context.Context, permissionID int64) (bool, error)
}
