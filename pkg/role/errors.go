package role

import "errors"

// Domain errors for role and grant operations.
var (
	// ErrNotFound is returned when a referenced role does not exist.
	ErrNotFound = errors.New("role.not_found")

	// ErrDuplicateName is returned when a role name collides within its tenant scope.
	ErrDuplicateName = errors.New("role.duplicate_name")

	// ErrSystemProtected is returned when a non-super-admin actor deletes a
	// system role or mutates its protected fields.
	ErrSystemProtected = errors.New("role.system_protected")

	// ErrUnknownPermission is returned when a grant references a permission id
	// absent from the catalog.
	ErrUnknownPermission = errors.New("role.unknown_permission")

	// ErrMissingName is returned when a role is created without a name.
	ErrMissingName = errors.New("role.missing_name")
)
