package permission

import "context"

// Store is the persistence interface for the permission catalog.
//
// List results are deduplicated by key and ordered by key ascending so
// repeated calls are deterministic regardless of insertion order.
type Store interface {
	// List returns catalog entries matching the filter.
	List(ctx context.Context, f Filter) ([]Permission, error)

	// Get returns a permission by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id int64) (Permission, error)

	// GetByKey returns a permission by its key. Returns ErrNotFound if absent.
	GetByKey(ctx context.Context, key string) (Permission, error)

	// Missing returns the subset of ids that do not exist in the catalog.
	Missing(ctx context.Context, ids []int64) ([]int64, error)

	// Create inserts a permission and returns it with its assigned id.
	// Returns ErrDuplicateKey on key collision.
	Create(ctx context.Context, p Permission) (Permission, error)

	// Update replaces the stored permission with the same id.
	// Returns ErrNotFound if absent and ErrDuplicateKey on key collision.
	Update(ctx context.Context, p Permission) (Permission, error)

	// Delete removes a permission by id. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id int64) error
}
