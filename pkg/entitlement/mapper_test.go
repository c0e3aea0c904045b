package entitlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgekit/lodgekit/pkg/entitlement"
)

// allowAllCatalog reports every permission id as known.
type allowAllCatalog struct{}

func (allowAllCatalog) Missing(ctx context.Context, ids []int64) ([]int64, error) {
	return nil, nil
}

// fixedCatalog knows only the listed ids.
type fixedCatalog struct {
	known map[int64]bool
}

func (c fixedCatalog) Missing(ctx context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if !c.known[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func seedPlan(t *testing.T, store entitlement.Store, features map[string][]int64) (entitlement.Plan, map[string]entitlement.Feature) {
	t.Helper()
	ctx := context.Background()

	plan, err := store.CreatePlan(ctx, entitlement.Plan{
		Type:   "standard",
		Active: true,
	})
	require.NoError(t, err)

	created := make(map[string]entitlement.Feature, len(features))
	for name, pids := range features {
		f, err := store.CreateFeature(ctx, entitlement.Feature{PlanID: plan.ID, Name: name})
		require.NoError(t, err)
		require.NoError(t, store.ReplaceFeaturePermissions(ctx, f.ID, pids))
		created[name] = f
	}
	return plan, created
}

func TestMapperEntitledPermissionIDs(t *testing.T) {
	t.Parallel()

	t.Run("unions feature permissions without duplicates", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		plan, _ := seedPlan(t, store, map[string][]int64{
			"front_desk":   {1, 2, 3},
			"housekeeping": {3, 4},
		})
		mapper := entitlement.NewMapper(store, allowAllCatalog{})

		tenantID := uuid.New()
		require.NoError(t, mapper.Subscribe(context.Background(), tenantID, plan.ID))

		ids, err := mapper.EntitledPermissionIDs(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3, 4}, ids)
	})

	t.Run("no active subscription yields empty set", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		mapper := entitlement.NewMapper(store, allowAllCatalog{})

		ids, err := mapper.EntitledPermissionIDs(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("deleted features stop counting", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		plan, features := seedPlan(t, store, map[string][]int64{
			"front_desk":   {1, 2},
			"housekeeping": {3},
		})
		mapper := entitlement.NewMapper(store, allowAllCatalog{})

		tenantID := uuid.New()
		require.NoError(t, mapper.Subscribe(context.Background(), tenantID, plan.ID))
		require.NoError(t, mapper.DeleteFeature(context.Background(), features["housekeeping"].ID))

		ids, err := mapper.EntitledPermissionIDs(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids)
	})

	t.Run("retired plan stops entitling its subscribers", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()

		store := entitlement.NewMemoryStore()
		plan, err := store.CreatePlan(ctx, entitlement.Plan{Type: "legacy", Active: false})
		require.NoError(t, err)
		f, err := store.CreateFeature(ctx, entitlement.Feature{PlanID: plan.ID, Name: "front_desk"})
		require.NoError(t, err)
		require.NoError(t, store.ReplaceFeaturePermissions(ctx, f.ID, []int64{1, 2}))
		mapper := entitlement.NewMapper(store, allowAllCatalog{})

		tenantID := uuid.New()
		require.NoError(t, mapper.Subscribe(ctx, tenantID, plan.ID))

		ids, err := mapper.EntitledPermissionIDs(ctx, tenantID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("cancelled subscription drops entitlement", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		plan, _ := seedPlan(t, store, map[string][]int64{"front_desk": {1, 2}})
		mapper := entitlement.NewMapper(store, allowAllCatalog{})

		tenantID := uuid.New()
		require.NoError(t, mapper.Subscribe(context.Background(), tenantID, plan.ID))

		ids, err := mapper.EntitledPermissionIDs(context.Background(), tenantID)
		require.NoError(t, err)
		require.NotEmpty(t, ids)

		require.NoError(t, mapper.Cancel(context.Background(), tenantID))

		ids, err = mapper.EntitledPermissionIDs(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("cached result survives store writes until invalidated", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		plan, features := seedPlan(t, store, map[string][]int64{"front_desk": {1}})
		mapper := entitlement.NewMapper(store, allowAllCatalog{},
			entitlement.WithCacheSize(16, time.Minute))

		tenantID := uuid.New()
		require.NoError(t, mapper.Subscribe(context.Background(), tenantID, plan.ID))

		ids, err := mapper.EntitledPermissionIDs(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids)

		// Write directly to the store, bypassing the mapper: cache still holds.
		require.NoError(t, store.ReplaceFeaturePermissions(context.Background(), features["front_desk"].ID, []int64{1, 2}))
		ids, err = mapper.EntitledPermissionIDs(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids)

		// A mapper write on the plan invalidates every subscribed tenant.
		require.NoError(t, mapper.MapFeaturePermissions(context.Background(), plan.ID, features["front_desk"].ID, []int64{1, 2}))
		ids, err = mapper.EntitledPermissionIDs(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids)
	})

	t.Run("callers cannot mutate the cached slice", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		plan, _ := seedPlan(t, store, map[string][]int64{"front_desk": {1, 2}})
		mapper := entitlement.NewMapper(store, allowAllCatalog{})

		tenantID := uuid.New()
		require.NoError(t, mapper.Subscribe(context.Background(), tenantID, plan.ID))

		ids, err := mapper.EntitledPermissionIDs(context.Background(), tenantID)
		require.NoError(t, err)
		ids[0] = 999

		again, err := mapper.EntitledPermissionIDs(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, again)
	})
}

func TestMapperMapFeaturePermissions(t *testing.T) {
	t.Parallel()

	t.Run("rejects feature belonging to another plan", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		_, featuresA := seedPlan(t, store, map[string][]int64{"front_desk": {1}})
		planB, _ := seedPlan(t, store, map[string][]int64{"reporting": {2}})
		mapper := entitlement.NewMapper(store, allowAllCatalog{})

		err := mapper.MapFeaturePermissions(context.Background(), planB.ID, featuresA["front_desk"].ID, []int64{1})
		assert.ErrorIs(t, err, entitlement.ErrFeaturePlanMismatch)
	})

	t.Run("rejects unknown permission ids", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		plan, features := seedPlan(t, store, map[string][]int64{"front_desk": nil})
		mapper := entitlement.NewMapper(store, fixedCatalog{known: map[int64]bool{1: true}})

		err := mapper.MapFeaturePermissions(context.Background(), plan.ID, features["front_desk"].ID, []int64{1, 42})
		assert.ErrorIs(t, err, entitlement.ErrUnknownPermission)
	})

	t.Run("rejects deleted feature", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		plan, features := seedPlan(t, store, map[string][]int64{"front_desk": {1}})
		mapper := entitlement.NewMapper(store, allowAllCatalog{})
		require.NoError(t, mapper.DeleteFeature(context.Background(), features["front_desk"].ID))

		err := mapper.MapFeaturePermissions(context.Background(), plan.ID, features["front_desk"].ID, []int64{1})
		assert.ErrorIs(t, err, entitlement.ErrFeatureNotFound)
	})

	t.Run("deduplicates ids before storing", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		plan, features := seedPlan(t, store, map[string][]int64{"front_desk": nil})
		mapper := entitlement.NewMapper(store, allowAllCatalog{})

		require.NoError(t, mapper.MapFeaturePermissions(context.Background(), plan.ID, features["front_desk"].ID, []int64{2, 1, 2, 1}))

		ids, err := store.PlanPermissionIDs(context.Background(), plan.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids)
	})
}

func TestMapperFeatureLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("create requires a name", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		plan, _ := seedPlan(t, store, nil)
		mapper := entitlement.NewMapper(store, allowAllCatalog{})

		_, err := mapper.CreateFeature(context.Background(), plan.ID, entitlement.FeatureParams{})
		assert.ErrorIs(t, err, entitlement.ErrMissingName)
	})

	t.Run("create requires an existing plan", func(t *testing.T) {
		t.Parallel()

		mapper := entitlement.NewMapper(entitlement.NewMemoryStore(), allowAllCatalog{})

		_, err := mapper.CreateFeature(context.Background(), 42, entitlement.FeatureParams{Name: "spa"})
		assert.ErrorIs(t, err, entitlement.ErrPlanNotFound)
	})

	t.Run("update keeps plan ownership", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		plan, features := seedPlan(t, store, map[string][]int64{"front_desk": nil})
		mapper := entitlement.NewMapper(store, allowAllCatalog{})

		updated, err := mapper.UpdateFeature(context.Background(), features["front_desk"].ID, entitlement.FeatureParams{
			Name:  "reception",
			Price: entitlement.Money{Amount: 990, Currency: "USD"},
		})
		require.NoError(t, err)
		assert.Equal(t, "reception", updated.Name)
		assert.Equal(t, plan.ID, updated.PlanID)
	})

	t.Run("update refuses deleted feature", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		_, features := seedPlan(t, store, map[string][]int64{"front_desk": nil})
		mapper := entitlement.NewMapper(store, allowAllCatalog{})
		require.NoError(t, mapper.DeleteFeature(context.Background(), features["front_desk"].ID))

		_, err := mapper.UpdateFeature(context.Background(), features["front_desk"].ID, entitlement.FeatureParams{Name: "x"})
		assert.ErrorIs(t, err, entitlement.ErrFeatureNotFound)
	})
}

func TestMapperTenantChangedHooks(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	plan, features := seedPlan(t, store, map[string][]int64{"front_desk": {1}})

	var notified []uuid.UUID
	mapper := entitlement.NewMapper(store, allowAllCatalog{},
		entitlement.WithTenantChangedHook(func(ctx context.Context, tenantID uuid.UUID) {
			notified = append(notified, tenantID)
		}))

	tenantID := uuid.New()
	require.NoError(t, mapper.Subscribe(context.Background(), tenantID, plan.ID))
	require.Len(t, notified, 1)

	// A plan-level change fans out to every subscribed tenant.
	require.NoError(t, mapper.MapFeaturePermissions(context.Background(), plan.ID, features["front_desk"].ID, []int64{1, 2}))
	require.Len(t, notified, 2)
	assert.Equal(t, tenantID, notified[1])
}

func TestMapperPermissionReferenced(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	_, features := seedPlan(t, store, map[string][]int64{"front_desk": {7}})
	mapper := entitlement.NewMapper(store, allowAllCatalog{})

	referenced, err := mapper.PermissionReferenced(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, referenced)

	referenced, err = mapper.PermissionReferenced(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, referenced)

	// Soft deletion releases the reference.
	require.NoError(t, mapper.DeleteFeature(context.Background(), features["front_desk"].ID))
	referenced, err = mapper.PermissionReferenced(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, referenced)
}
