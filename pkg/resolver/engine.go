package resolver

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lodgekit/lodgekit/pkg/logger"
	"github.com/lodgekit/lodgekit/pkg/permission"
)

// Catalog is the permission catalog slice the engine reads from.
type Catalog interface {
	List(ctx context.Context, f permission.Filter) ([]permission.Permission, error)
}

// GrantSource supplies the union of active, granted permission ids across a
// user's roles.
type GrantSource interface {
	GrantedPermissionIDs(ctx context.Context, roleIDs []int64) ([]int64, error)
}

// EntitlementSource supplies the tenant's subscription permission ceiling.
type EntitlementSource interface {
	EntitledPermissionIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error)
}

// Engine resolves users to effective permission sets.
type Engine struct {
	catalog      Catalog
	grants       GrantSource
	entitlements EntitlementSource
	cache        Cache
	metrics      *Metrics
	log          *slog.Logger
}

// Option configures optional engine dependencies.
type Option func(*Engine)

// WithCache puts a cache in front of resolution. Without one every call
// recomputes from the sources.
func WithCache(c Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithMetrics wires resolution counters and timings.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates a resolution engine.
// Panics if any source is nil to fail fast during initialization.
func NewEngine(catalog Catalog, grants GrantSource, entitlements EntitlementSource, opts ...Option) *Engine {
	if catalog == nil {
		panic("resolver: permission catalog is required")
	}
	if grants == nil {
		panic("resolver: grant source is required")
	}
	if entitlements == nil {
		panic("resolver: entitlement source is required")
	}
	e := &Engine{
		catalog:      catalog,
		grants:       grants,
		entitlements: entitlements,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EffectivePermissions resolves the user's effective permission set, sorted
// by permission key. Absence of a permission from the result is the denial;
// the read path never errors for "no access".
//
// Super-admins receive the full catalog with no grant or entitlement lookup.
// Everyone else gets the intersection of their role grants with the tenant's
// entitlement ceiling. A user with no tenant context falls back to the
// globally-scoped slice of the catalog as their ceiling.
func (e *Engine) EffectivePermissions(ctx context.Context, user User) ([]permission.Permission, error) {
	start := time.Now()
	defer func() {
		e.metrics.observeResolve(time.Since(start))
	}()

	if user.IsSuperAdmin() {
		e.metrics.bypass()
		return e.fullCatalog(ctx)
	}

	if e.cache != nil {
		if perms, ok := e.cache.Get(ctx, user.ID); ok {
			e.metrics.cacheHit()
			return perms, nil
		}
		e.metrics.cacheMiss()
	}

	granted, err := e.grants.GrantedPermissionIDs(ctx, user.RoleIDs)
	if err != nil {
		return nil, err
	}

	ceiling, err := e.ceiling(ctx, user)
	if err != nil {
		return nil, err
	}

	effective := intersect(granted, ceiling)
	perms, err := e.materialize(ctx, effective)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(ctx, Entry{
			UserID:      user.ID,
			TenantID:    user.TenantID,
			RoleIDs:     slices.Clone(user.RoleIDs),
			Permissions: perms,
		})
	}
	return perms, nil
}

// EffectivePermissionIDs is EffectivePermissions reduced to ids, for callers
// that only run set membership checks.
func (e *Engine) EffectivePermissionIDs(ctx context.Context, user User) ([]int64, error) {
	perms, err := e.EffectivePermissions(ctx, user)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(perms))
	for i, p := range perms {
		ids[i] = p.ID
	}
	return ids, nil
}

// HasPermission reports whether the user's effective set contains the key.
func (e *Engine) HasPermission(ctx context.Context, user User, key string) (bool, error) {
	perms, err := e.EffectivePermissions(ctx, user)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Key == key {
			return true, nil
		}
	}
	return false, nil
}

// GrantsChanged drops cached results for every user holding the role.
// Signature matches role.GrantsChangedHook.
func (e *Engine) GrantsChanged(ctx context.Context, roleID int64) {
	if e.cache == nil {
		return
	}
	e.cache.InvalidateRole(ctx, roleID)
	e.log.DebugContext(ctx, "resolution cache invalidated for role", logger.RoleID(roleID))
}

// TenantChanged drops cached results for every user of the tenant.
// Signature matches entitlement.TenantChangedHook.
func (e *Engine) TenantChanged(ctx context.Context, tenantID uuid.UUID) {
	if e.cache == nil {
		return
	}
	e.cache.InvalidateTenant(ctx, tenantID)
	e.log.DebugContext(ctx, "resolution cache invalidated for tenant", logger.TenantID(tenantID))
}

// UserChanged drops the cached result for one user, for role membership
// changes owned outside this module.
func (e *Engine) UserChanged(ctx context.Context, userID uuid.UUID) {
	if e.cache == nil {
		return
	}
	e.cache.InvalidateUser(ctx, userID)
}

func (e *Engine) fullCatalog(ctx context.Context) ([]permission.Permission, error) {
	perms, err := e.catalog.List(ctx, permission.Filter{IncludeSystem: true})
	if err != nil {
		return nil, err
	}
	sortByKey(perms)
	return perms, nil
}

// ceiling returns the tenant's entitlement ceiling, or the globally-scoped
// catalog slice when the user has no tenant context.
func (e *Engine) ceiling(ctx context.Context, user User) ([]int64, error) {
	if user.TenantID == nil {
		perms, err := e.catalog.List(ctx, permission.Filter{IncludeSystem: true})
		if err != nil {
			return nil, err
		}
		var ids []int64
		for _, p := range perms {
			if p.Scope == permission.ScopeAll {
				ids = append(ids, p.ID)
			}
		}
		return ids, nil
	}
	return e.entitlements.EntitledPermissionIDs(ctx, *user.TenantID)
}

// materialize turns an id set into catalog records, sorted by key. Ids the
// catalog no longer knows are dropped silently.
func (e *Engine) materialize(ctx context.Context, ids []int64) ([]permission.Permission, error) {
	if len(ids) == 0 {
		return []permission.Permission{}, nil
	}
	catalog, err := e.catalog.List(ctx, permission.Filter{IncludeSystem: true})
	if err != nil {
		return nil, err
	}

	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]permission.Permission, 0, len(ids))
	for _, p := range catalog {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	sortByKey(out)
	return out, nil
}

func intersect(a, b []int64) []int64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[int64]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	var out []int64
	for _, id := range a {
		if _, ok := set[id]; ok {
			out = append(out, id)
			delete(set, id)
		}
	}
	return out
}

func sortByKey(perms []permission.Permission) {
	slices.SortFunc(perms, func(a, b permission.Permission) int {
		return strings.Compare(a.Key, b.Key)
	})
}
