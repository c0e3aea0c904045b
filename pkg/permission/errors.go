package permission

import "errors"

// Domain errors for catalog operations.
var (
	// ErrNotFound is returned when a referenced permission does not exist.
	ErrNotFound = errors.New("permission.not_found")

	// ErrDuplicateKey is returned when a permission key collides with an existing entry.
	ErrDuplicateKey = errors.New("permission.duplicate_key")

	// ErrInvalidKey is returned when a key is not in "resource.action" format.
	ErrInvalidKey = errors.New("permission.invalid_key")

	// ErrInvalidScope is returned when a scope is not one of the defined values.
	ErrInvalidScope = errors.New("permission.invalid_scope")

	// ErrSystemProtected is returned when a non-super-admin actor mutates a system permission.
	ErrSystemProtected = errors.New("permission.system_protected")

	// ErrInUse is returned when deleting a permission still referenced by a
	// role grant or a subscription feature mapping.
	ErrInUse = errors.New("permission.in_use")
)
