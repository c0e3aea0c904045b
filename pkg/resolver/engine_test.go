package resolver_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgekit/lodgekit/pkg/entitlement"
	"github.com/lodgekit/lodgekit/pkg/permission"
	"github.com/lodgekit/lodgekit/pkg/resolver"
	"github.com/lodgekit/lodgekit/pkg/role"
)

// fixture wires the real catalog, role, and entitlement implementations
// around the engine so tests exercise the full resolution path.
type fixture struct {
	perms  permission.Store
	roles  *role.Service
	mapper *entitlement.Mapper
	store  entitlement.Store
	engine *resolver.Engine

	permIDs map[string]int64
}

func newFixture(t *testing.T, engineOpts ...resolver.Option) *fixture {
	t.Helper()

	perms := permission.NewMemoryStore()
	roles := role.NewService(role.NewMemoryStore(), perms)
	store := entitlement.NewMemoryStore()
	mapper := entitlement.NewMapper(store, perms)

	return &fixture{
		perms:   perms,
		roles:   roles,
		mapper:  mapper,
		store:   store,
		engine:  resolver.NewEngine(perms, roles, mapper, engineOpts...),
		permIDs: make(map[string]int64),
	}
}

func (f *fixture) addPermission(t *testing.T, key string, scope permission.Scope) permission.Permission {
	t.Helper()
	resource, action, err := permission.ParseKey(key)
	require.NoError(t, err)
	p, err := f.perms.Create(context.Background(), permission.Permission{
		Key:      key,
		Resource: resource,
		Action:   action,
		Scope:    scope,
	})
	require.NoError(t, err)
	f.permIDs[key] = p.ID
	return p
}

func (f *fixture) addRole(t *testing.T, name string, grantKeys ...string) role.Role {
	t.Helper()
	r, err := f.roles.Create(context.Background(), nil, role.CreateParams{Name: name})
	require.NoError(t, err)

	ids := make([]int64, 0, len(grantKeys))
	for _, key := range grantKeys {
		ids = append(ids, f.permIDs[key])
	}
	_, err = f.roles.AssignPermissions(context.Background(), r.ID, ids)
	require.NoError(t, err)
	return r
}

// subscribe creates a plan with one feature entitling the given keys and
// subscribes the tenant to it.
func (f *fixture) subscribe(t *testing.T, tenantID uuid.UUID, entitledKeys ...string) int64 {
	t.Helper()
	plan, err := f.store.CreatePlan(context.Background(), entitlement.Plan{Type: "standard", Active: true})
	require.NoError(t, err)
	feature, err := f.mapper.CreateFeature(context.Background(), plan.ID, entitlement.FeatureParams{Name: "bundle"})
	require.NoError(t, err)

	ids := make([]int64, 0, len(entitledKeys))
	for _, key := range entitledKeys {
		ids = append(ids, f.permIDs[key])
	}
	require.NoError(t, f.mapper.MapFeaturePermissions(context.Background(), plan.ID, feature.ID, ids))
	require.NoError(t, f.mapper.Subscribe(context.Background(), tenantID, plan.ID))
	return feature.ID
}

func keys(perms []permission.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = p.Key
	}
	return out
}

func TestEngine_SuperAdminBypass(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addPermission(t, "bookings.read", permission.ScopeFirm)
	f.addPermission(t, "bookings.create", permission.ScopeFirm)
	f.addPermission(t, "settings.manage", permission.ScopeAll)

	// No roles, no tenant, no subscription: the bypass ignores all of it.
	admin := resolver.User{ID: uuid.New(), Type: resolver.UserTypeSuperAdmin}

	perms, err := f.engine.EffectivePermissions(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"bookings.create", "bookings.read", "settings.manage"}, keys(perms))
}

func TestEngine_RoleIsBindingConstraint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addPermission(t, "bookings.read", permission.ScopeFirm)
	f.addPermission(t, "bookings.create", permission.ScopeFirm)
	f.addPermission(t, "bookings.delete", permission.ScopeFirm)

	receptionist := f.addRole(t, "receptionist", "bookings.read", "bookings.create")

	tenantID := uuid.New()
	f.subscribe(t, tenantID, "bookings.read", "bookings.create", "bookings.delete")

	user := resolver.User{
		ID:       uuid.New(),
		Type:     resolver.UserTypeStaff,
		TenantID: &tenantID,
		RoleIDs:  []int64{receptionist.ID},
	}

	perms, err := f.engine.EffectivePermissions(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, []string{"bookings.create", "bookings.read"}, keys(perms))
}

func TestEngine_SubscriptionIsBindingConstraint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addPermission(t, "bookings.read", permission.ScopeFirm)
	f.addPermission(t, "bookings.create", permission.ScopeFirm)

	receptionist := f.addRole(t, "receptionist", "bookings.read", "bookings.create")

	// Plan entitles only reads; the role's create grant stays dormant.
	tenantID := uuid.New()
	f.subscribe(t, tenantID, "bookings.read")

	user := resolver.User{
		ID:       uuid.New(),
		Type:     resolver.UserTypeStaff,
		TenantID: &tenantID,
		RoleIDs:  []int64{receptionist.ID},
	}

	perms, err := f.engine.EffectivePermissions(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, []string{"bookings.read"}, keys(perms))
}

func TestEngine_NoActiveSubscriptionMeansEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addPermission(t, "bookings.read", permission.ScopeFirm)
	receptionist := f.addRole(t, "receptionist", "bookings.read")

	tenantID := uuid.New()
	user := resolver.User{
		ID:       uuid.New(),
		Type:     resolver.UserTypeStaff,
		TenantID: &tenantID,
		RoleIDs:  []int64{receptionist.ID},
	}

	perms, err := f.engine.EffectivePermissions(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestEngine_TenantlessUserGetsGlobalCeiling(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addPermission(t, "bookings.read", permission.ScopeFirm)
	f.addPermission(t, "profile.edit", permission.ScopeAll)
	f.addPermission(t, "help.view", permission.ScopeAll)

	staff := f.addRole(t, "support", "bookings.read", "profile.edit")

	user := resolver.User{
		ID:      uuid.New(),
		Type:    resolver.UserTypeStaff,
		RoleIDs: []int64{staff.ID},
	}

	// Only the globally-scoped grant survives; the firm-scoped one needs a
	// tenant subscription to back it.
	perms, err := f.engine.EffectivePermissions(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, []string{"profile.edit"}, keys(perms))
}

func TestEngine_NoRolesMeansEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addPermission(t, "bookings.read", permission.ScopeFirm)

	tenantID := uuid.New()
	f.subscribe(t, tenantID, "bookings.read")

	user := resolver.User{
		ID:       uuid.New(),
		Type:     resolver.UserTypeStaff,
		TenantID: &tenantID,
	}

	perms, err := f.engine.EffectivePermissions(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestEngine_HasPermission(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addPermission(t, "bookings.read", permission.ScopeFirm)
	f.addPermission(t, "bookings.delete", permission.ScopeFirm)
	receptionist := f.addRole(t, "receptionist", "bookings.read")

	tenantID := uuid.New()
	f.subscribe(t, tenantID, "bookings.read", "bookings.delete")

	user := resolver.User{
		ID:       uuid.New(),
		Type:     resolver.UserTypeStaff,
		TenantID: &tenantID,
		RoleIDs:  []int64{receptionist.ID},
	}

	ok, err := f.engine.HasPermission(context.Background(), user, "bookings.read")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.engine.HasPermission(context.Background(), user, "bookings.delete")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_CacheInvalidationOnGrantWrite(t *testing.T) {
	t.Parallel()

	cache := resolver.NewMemoryCache(64, time.Minute)
	f := newFixture(t, resolver.WithCache(cache))
	// Route grant writes into the engine's invalidation hook, the way the
	// composition root wires it.
	f.roles = role.NewService(role.NewMemoryStore(), f.perms,
		role.WithGrantsChangedHook(func(ctx context.Context, roleID int64) {
			f.engine.GrantsChanged(ctx, roleID)
		}))
	f.engine = resolver.NewEngine(f.perms, f.roles, f.mapper, resolver.WithCache(cache))

	f.addPermission(t, "bookings.read", permission.ScopeFirm)
	f.addPermission(t, "bookings.create", permission.ScopeFirm)
	receptionist := f.addRole(t, "receptionist", "bookings.read")

	tenantID := uuid.New()
	f.subscribe(t, tenantID, "bookings.read", "bookings.create")

	user := resolver.User{
		ID:       uuid.New(),
		Type:     resolver.UserTypeStaff,
		TenantID: &tenantID,
		RoleIDs:  []int64{receptionist.ID},
	}

	perms, err := f.engine.EffectivePermissions(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, []string{"bookings.read"}, keys(perms))

	// Widening the role's grants must be visible on the next resolution.
	_, err = f.roles.AssignPermissions(context.Background(), receptionist.ID,
		[]int64{f.permIDs["bookings.read"], f.permIDs["bookings.create"]})
	require.NoError(t, err)

	perms, err = f.engine.EffectivePermissions(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, []string{"bookings.create", "bookings.read"}, keys(perms))
}

func TestEngine_CacheInvalidationOnEntitlementWrite(t *testing.T) {
	t.Parallel()

	cache := resolver.NewMemoryCache(64, time.Minute)
	f := newFixture(t)
	f.mapper = entitlement.NewMapper(f.store, f.perms,
		entitlement.WithTenantChangedHook(func(ctx context.Context, tenantID uuid.UUID) {
			f.engine.TenantChanged(ctx, tenantID)
		}))
	f.engine = resolver.NewEngine(f.perms, f.roles, f.mapper, resolver.WithCache(cache))

	f.addPermission(t, "bookings.read", permission.ScopeFirm)
	f.addPermission(t, "bookings.create", permission.ScopeFirm)
	receptionist := f.addRole(t, "receptionist", "bookings.read", "bookings.create")

	tenantID := uuid.New()
	featureID := f.subscribe(t, tenantID, "bookings.read", "bookings.create")

	user := resolver.User{
		ID:       uuid.New(),
		Type:     resolver.UserTypeStaff,
		TenantID: &tenantID,
		RoleIDs:  []int64{receptionist.ID},
	}

	perms, err := f.engine.EffectivePermissions(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, []string{"bookings.create", "bookings.read"}, keys(perms))

	// Downgrading the feature's mapping shrinks the ceiling immediately.
	require.NoError(t, f.mapper.MapFeaturePermissions(context.Background(),
		mustPlanID(t, f.store, tenantID), featureID, []int64{f.permIDs["bookings.read"]}))

	perms, err = f.engine.EffectivePermissions(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, []string{"bookings.read"}, keys(perms))
}

func mustPlanID(t *testing.T, store entitlement.Store, tenantID uuid.UUID) int64 {
	t.Helper()
	sub, err := store.ActiveSubscription(context.Background(), tenantID)
	require.NoError(t, err)
	return sub.PlanID
}

func TestEngine_DeterministicOrdering(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addPermission(t, "rooms.read", permission.ScopeFirm)
	f.addPermission(t, "bookings.read", permission.ScopeFirm)
	f.addPermission(t, "guests.read", permission.ScopeFirm)
	r := f.addRole(t, "viewer", "rooms.read", "bookings.read", "guests.read")

	tenantID := uuid.New()
	f.subscribe(t, tenantID, "rooms.read", "bookings.read", "guests.read")

	user := resolver.User{
		ID:       uuid.New(),
		Type:     resolver.UserTypeStaff,
		TenantID: &tenantID,
		RoleIDs:  []int64{r.ID},
	}

	want := []string{"bookings.read", "guests.read", "rooms.read"}
	for range 3 {
		perms, err := f.engine.EffectivePermissions(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, want, keys(perms))
	}
}

func TestUserContext(t *testing.T) {
	t.Parallel()

	_, ok := resolver.UserFromContext(context.Background())
	assert.False(t, ok)

	user := resolver.User{ID: uuid.New(), Type: resolver.UserTypeTenantAdmin}
	ctx := resolver.WithUser(context.Background(), user)

	got, ok := resolver.UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user, got)
}
