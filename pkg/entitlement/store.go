package entitlement

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence interface for plans, features, mappings, and
// tenant subscriptions.
type Store interface {
	// CreatePlan inserts a plan and returns it with its assigned id.
	CreatePlan(ctx context.Context, p Plan) (Plan, error)

	// GetPlan returns a plan by id. Returns ErrPlanNotFound if absent.
	GetPlan(ctx context.Context, id int64) (Plan, error)

	// ListPlans returns all plans ordered by id.
	ListPlans(ctx context.Context) ([]Plan, error)

	// CreateFeature inserts a feature owned by a plan.
	CreateFeature(ctx context.Context, f Feature) (Feature, error)

	// GetFeature returns a feature by id, soft-deleted ones included.
	GetFeature(ctx context.Context, id int64) (Feature, error)

	// ListFeatures returns a plan's features, excluding soft-deleted ones
	// unless includeDeleted is set.
	ListFeatures(ctx context.Context, planID int64, includeDeleted bool) ([]Feature, error)

	// UpdateFeature replaces the stored feature with the same id.
	UpdateFeature(ctx context.Context, f Feature) (Feature, error)

	// SoftDeleteFeature marks a feature deleted without removing its rows.
	SoftDeleteFeature(ctx context.Context, id int64) error

	// ReplaceFeaturePermissions replaces the permission set a feature unlocks.
	ReplaceFeaturePermissions(ctx context.Context, featureID int64, permissionIDs []int64) error

	// PlanPermissionIDs returns the union of permission ids unlocked by the
	// plan's non-deleted features, deduplicated and sorted.
	PlanPermissionIDs(ctx context.Context, planID int64) ([]int64, error)

	// ActiveSubscription returns the tenant's active subscription.
	// Returns ErrNoActiveSubscription when there is none.
	ActiveSubscription(ctx context.Context, tenantID uuid.UUID) (Subscription, error)

	// SaveSubscription creates or updates the tenant's subscription row.
	SaveSubscription(ctx context.Context, sub Subscription) error

	// TenantsOnPlan returns the tenants currently subscribed to the plan.
	// Used to invalidate cached entitlements after plan or feature writes.
	TenantsOnPlan(ctx context.Context, planID int64) ([]uuid.UUID, error)

	// PermissionReferenced reports whether any feature mapping references the permission.
	PermissionReferenced(ctx context.Context, permissionID int64) (bool, error)
}
