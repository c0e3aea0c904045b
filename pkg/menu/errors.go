package menu

import "errors"

var (
	// ErrNotFound is returned when the requested menu entry does not exist.
	ErrNotFound = errors.New("menu.not_found")

	// ErrDuplicateKey is returned when creating an entry whose key collides
	// with an existing one.
	ErrDuplicateKey = errors.New("menu.duplicate_key")

	// ErrCyclicParent is returned when a write would make an entry its own
	// ancestor. Cycles are rejected at write time so resolution never loops.
	ErrCyclicParent = errors.New("menu.cyclic_parent")

	// ErrUnknownParent is returned when the referenced parent key does not
	// exist in the catalog.
	ErrUnknownParent = errors.New("menu.unknown_parent")

	// ErrUnknownPermission is returned when a required permission id is
	// absent from the catalog.
	ErrUnknownPermission = errors.New("menu.unknown_permission")

	// ErrInvalidMatch is returned when the match type is not one of the
	// known values.
	ErrInvalidMatch = errors.New("menu.invalid_match")

	// ErrMissingKey is returned when an entry is created without a key.
	ErrMissingKey = errors.New("menu.missing_key")

	// ErrInvalidTransition is returned when a lifecycle change is not
	// allowed from the entry's current status.
	ErrInvalidTransition = errors.New("menu.invalid_transition")
)
