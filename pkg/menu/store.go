package menu

import (
	"context"

	"github.com/google/uuid"
)

// Store persists the menu catalog.
type Store interface {
	// Create inserts a new entry. Returns ErrDuplicateKey when the key is
	// already taken within the entry's tenant scope.
	Create(ctx context.Context, e Entry) (Entry, error)

	// Get returns the entry with the given id, or ErrNotFound.
	Get(ctx context.Context, id int64) (Entry, error)

	// GetByKey returns the entry with the given key in exactly the given
	// tenant scope (nil = global), or ErrNotFound.
	GetByKey(ctx context.Context, tenantID *uuid.UUID, key string) (Entry, error)

	// List returns entries matching the filter, sorted by display order and
	// then key. Without IncludeInactive only active entries are returned.
	List(ctx context.Context, f Filter) ([]Entry, error)

	// Update replaces the stored entry, matching on ID. The required
	// permission set is replaced wholesale.
	Update(ctx context.Context, e Entry) (Entry, error)

	// Delete removes an entry. Children of a deleted entry keep their
	// parent key and surface as orphans until reassigned.
	Delete(ctx context.Context, id int64) error

	// PermissionReferenced reports whether any entry requires the
	// permission.
	PermissionReferenced(ctx context.Context, permissionID int64) (bool, error)
}
