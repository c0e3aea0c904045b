package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/lodgekit/lodgekit/pkg/cache"
	"github.com/lodgekit/lodgekit/pkg/logger"
)

// Catalog is the slice of the permission catalog the mapper needs for
// validating feature-permission mappings.
type Catalog interface {
	Missing(ctx context.Context, ids []int64) ([]int64, error)
}

// TenantChangedHook is notified after a write changes a tenant's entitlement,
// so downstream resolution caches can drop the tenant's users.
type TenantChangedHook func(ctx context.Context, tenantID uuid.UUID)

// Mapper resolves tenants' subscriptions into permission-id ceilings and owns
// the plan/feature/mapping write surface.
type Mapper struct {
	store   Store
	catalog Catalog
	cache   *cache.TTL[uuid.UUID, []int64]
	hooks   []TenantChangedHook
	log     *slog.Logger
}

// MapperOption configures optional mapper dependencies.
type MapperOption func(*Mapper)

// WithTenantChangedHook registers an invalidation hook.
func WithTenantChangedHook(hooks ...TenantChangedHook) MapperOption {
	return func(m *Mapper) {
		for _, h := range hooks {
			if h != nil {
				m.hooks = append(m.hooks, h)
			}
		}
	}
}

// WithCacheSize overrides the entitlement cache capacity and TTL.
func WithCacheSize(capacity int, ttl time.Duration) MapperOption {
	return func(m *Mapper) {
		m.cache = cache.NewTTL[uuid.UUID, []int64](capacity, ttl)
	}
}

// WithLogger sets the mapper logger.
func WithLogger(log *slog.Logger) MapperOption {
	return func(m *Mapper) {
		if log != nil {
			m.log = log
		}
	}
}

const (
	defaultCacheSize = 4096
	defaultCacheTTL  = 5 * time.Minute
)

// NewMapper creates an entitlement mapper.
// Panics if store or catalog is nil to fail fast during initialization.
func NewMapper(store Store, catalog Catalog, opts ...MapperOption) *Mapper {
	if store == nil {
		panic("entitlement: store is required")
	}
	if catalog == nil {
		panic("entitlement: permission catalog is required")
	}
	m := &Mapper{
		store:   store,
		catalog: catalog,
		cache:   cache.NewTTL[uuid.UUID, []int64](defaultCacheSize, defaultCacheTTL),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EntitledPermissionIDs resolves the tenant's entitlement ceiling: the union
// of permission ids unlocked by its active plan's non-deleted features.
// A tenant without an active plan gets an empty, non-error result.
func (m *Mapper) EntitledPermissionIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error) {
	if ids, ok := m.cache.Get(tenantID); ok {
		return slices.Clone(ids), nil
	}

	sub, err := m.store.ActiveSubscription(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNoActiveSubscription) {
			m.cache.Set(tenantID, nil)
			return nil, nil
		}
		return nil, err
	}

	// A retired plan stops entitling even while subscriptions to it remain.
	plan, err := m.store.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		m.cache.Set(tenantID, nil)
		return nil, nil
	}

	ids, err := m.store.PlanPermissionIDs(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	m.cache.Set(tenantID, ids)
	return slices.Clone(ids), nil
}

// Plans returns all defined plans.
func (m *Mapper) Plans(ctx context.Context) ([]Plan, error) {
	return m.store.ListPlans(ctx)
}

// CreatePlan inserts a new plan.
func (m *Mapper) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	return m.store.CreatePlan(ctx, p)
}

// Subscribe sets or replaces the tenant's subscription and invalidates its
// cached entitlement.
func (m *Mapper) Subscribe(ctx context.Context, tenantID uuid.UUID, planID int64) error {
	if _, err := m.store.GetPlan(ctx, planID); err != nil {
		return err
	}
	if err := m.store.SaveSubscription(ctx, Subscription{
		TenantID: tenantID,
		PlanID:   planID,
		Status:   SubscriptionActive,
	}); err != nil {
		return err
	}

	m.log.InfoContext(ctx, "tenant subscribed", logger.TenantID(tenantID), "plan_id", planID)
	m.invalidateTenant(ctx, tenantID)
	return nil
}

// Cancel marks the tenant's subscription cancelled, dropping its entitlement
// to the empty set.
func (m *Mapper) Cancel(ctx context.Context, tenantID uuid.UUID) error {
	sub, err := m.store.ActiveSubscription(ctx, tenantID)
	if err != nil {
		return err
	}
	sub.Status = SubscriptionCancelled
	if err := m.store.SaveSubscription(ctx, sub); err != nil {
		return err
	}

	m.log.InfoContext(ctx, "tenant subscription cancelled", logger.TenantID(tenantID))
	m.invalidateTenant(ctx, tenantID)
	return nil
}

// FeatureParams describes a new or updated feature.
type FeatureParams struct {
	Name  string
	Price Money
}

// CreateFeature adds a feature to a plan.
func (m *Mapper) CreateFeature(ctx context.Context, planID int64, params FeatureParams) (Feature, error) {
	if params.Name == "" {
		return Feature{}, ErrMissingName
	}
	if _, err := m.store.GetPlan(ctx, planID); err != nil {
		return Feature{}, err
	}

	created, err := m.store.CreateFeature(ctx, Feature{
		PlanID: planID,
		Name:   params.Name,
		Price:  params.Price,
	})
	if err != nil {
		return Feature{}, err
	}

	m.invalidatePlan(ctx, planID)
	return created, nil
}

// UpdateFeature edits a feature's name and price.
func (m *Mapper) UpdateFeature(ctx context.Context, featureID int64, params FeatureParams) (Feature, error) {
	stored, err := m.store.GetFeature(ctx, featureID)
	if err != nil {
		return Feature{}, err
	}
	if stored.Deleted {
		return Feature{}, ErrFeatureNotFound
	}
	if params.Name != "" {
		stored.Name = params.Name
	}
	stored.Price = params.Price

	updated, err := m.store.UpdateFeature(ctx, stored)
	if err != nil {
		return Feature{}, err
	}

	m.invalidatePlan(ctx, stored.PlanID)
	return updated, nil
}

// DeleteFeature soft-deletes a feature; its permission mappings stop counting
// toward the plan's entitlement immediately.
func (m *Mapper) DeleteFeature(ctx context.Context, featureID int64) error {
	stored, err := m.store.GetFeature(ctx, featureID)
	if err != nil {
		return err
	}
	if err := m.store.SoftDeleteFeature(ctx, featureID); err != nil {
		return err
	}

	m.log.InfoContext(ctx, "feature deleted", "feature_id", featureID, "plan_id", stored.PlanID)
	m.invalidatePlan(ctx, stored.PlanID)
	return nil
}

// MapFeaturePermissions replaces the permission set a feature unlocks.
// The feature must belong to the stated plan and every permission id must
// exist in the catalog.
func (m *Mapper) MapFeaturePermissions(ctx context.Context, planID, featureID int64, permissionIDs []int64) error {
	feature, err := m.store.GetFeature(ctx, featureID)
	if err != nil {
		return err
	}
	if feature.Deleted {
		return ErrFeatureNotFound
	}
	if feature.PlanID != planID {
		return ErrFeaturePlanMismatch
	}

	ids := slices.Compact(slices.Sorted(slices.Values(permissionIDs)))
	missing, err := m.catalog.Missing(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return ErrUnknownPermission
	}

	if err := m.store.ReplaceFeaturePermissions(ctx, featureID, ids); err != nil {
		return err
	}

	m.log.InfoContext(ctx, "feature permissions mapped", "feature_id", featureID, "plan_id", planID, "mapped", len(ids))
	m.invalidatePlan(ctx, planID)
	return nil
}

// PermissionReferenced implements permission.ReferenceSource so the catalog
// refuses to delete permissions still unlocked by a live feature.
func (m *Mapper) PermissionReferenced(ctx context.Context, permissionID int64) (bool, error) {
	return m.store.PermissionReferenced(ctx, permissionID)
}

func (m *Mapper) invalidateTenant(ctx context.Context, tenantID uuid.UUID) {
	m.cache.Delete(tenantID)
	for _, h := range m.hooks {
		h(ctx, tenantID)
	}
}

func (m *Mapper) invalidatePlan(ctx context.Context, planID int64) {
	tenants, err := m.store.TenantsOnPlan(ctx, planID)
	if err != nil {
		// Cached entries expire on their own TTL; log and move on.
		m.log.ErrorContext(ctx, "failed to enumerate tenants for invalidation", "plan_id", planID, logger.Error(err))
		return
	}
	for _, tenantID := range tenants {
		m.invalidateTenant(ctx, tenantID)
	}
}
