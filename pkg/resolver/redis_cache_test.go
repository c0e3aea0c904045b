package resolver_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgekit/lodgekit/pkg/permission"
	"github.com/lodgekit/lodgekit/pkg/resolver"
)

func newRedisCache(t *testing.T) (resolver.Cache, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return resolver.NewRedisCache(client, time.Minute), srv
}

func testEntry(userID uuid.UUID, tenantID *uuid.UUID, roleIDs []int64) resolver.Entry {
	return resolver.Entry{
		UserID:   userID,
		TenantID: tenantID,
		RoleIDs:  roleIDs,
		Permissions: []permission.Permission{
			{ID: 1, Key: "bookings.read", Resource: "bookings", Action: "read", Scope: permission.ScopeFirm},
		},
	}
}

func TestRedisCache_RoundTrip(t *testing.T) {
	t.Parallel()

	cache, _ := newRedisCache(t)
	userID := uuid.New()

	_, ok := cache.Get(context.Background(), userID)
	require.False(t, ok)

	cache.Set(context.Background(), testEntry(userID, nil, nil))

	perms, ok := cache.Get(context.Background(), userID)
	require.True(t, ok)
	require.Len(t, perms, 1)
	assert.Equal(t, "bookings.read", perms[0].Key)
}

func TestRedisCache_InvalidateUser(t *testing.T) {
	t.Parallel()

	cache, _ := newRedisCache(t)
	userID := uuid.New()
	cache.Set(context.Background(), testEntry(userID, nil, nil))

	cache.InvalidateUser(context.Background(), userID)

	_, ok := cache.Get(context.Background(), userID)
	assert.False(t, ok)
}

func TestRedisCache_InvalidateRoleFansOut(t *testing.T) {
	t.Parallel()

	cache, _ := newRedisCache(t)
	holder1 := uuid.New()
	holder2 := uuid.New()
	bystander := uuid.New()

	cache.Set(context.Background(), testEntry(holder1, nil, []int64{7}))
	cache.Set(context.Background(), testEntry(holder2, nil, []int64{7, 9}))
	cache.Set(context.Background(), testEntry(bystander, nil, []int64{9}))

	cache.InvalidateRole(context.Background(), 7)

	_, ok := cache.Get(context.Background(), holder1)
	assert.False(t, ok)
	_, ok = cache.Get(context.Background(), holder2)
	assert.False(t, ok)
	_, ok = cache.Get(context.Background(), bystander)
	assert.True(t, ok, "users without the role keep their entries")
}

func TestRedisCache_InvalidateTenantFansOut(t *testing.T) {
	t.Parallel()

	cache, _ := newRedisCache(t)
	tenantA := uuid.New()
	tenantB := uuid.New()
	userA := uuid.New()
	userB := uuid.New()

	cache.Set(context.Background(), testEntry(userA, &tenantA, nil))
	cache.Set(context.Background(), testEntry(userB, &tenantB, nil))

	cache.InvalidateTenant(context.Background(), tenantA)

	_, ok := cache.Get(context.Background(), userA)
	assert.False(t, ok)
	_, ok = cache.Get(context.Background(), userB)
	assert.True(t, ok)
}

func TestRedisCache_EntriesExpire(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := resolver.NewRedisCache(client, time.Second)

	userID := uuid.New()
	cache.Set(context.Background(), testEntry(userID, nil, nil))

	srv.FastForward(2 * time.Second)

	_, ok := cache.Get(context.Background(), userID)
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	t.Parallel()

	cache, srv := newRedisCache(t)
	userID := uuid.New()

	require.NoError(t, srv.Set("resolver:user:"+userID.String(), "not json"))

	_, ok := cache.Get(context.Background(), userID)
	assert.False(t, ok)
}

func TestMemoryCache_RoleAndTenantIndexes(t *testing.T) {
	t.Parallel()

	cache := resolver.NewMemoryCache(64, time.Minute)
	tenantID := uuid.New()
	holder := uuid.New()
	other := uuid.New()

	cache.Set(context.Background(), testEntry(holder, &tenantID, []int64{3}))
	cache.Set(context.Background(), testEntry(other, nil, []int64{5}))

	cache.InvalidateRole(context.Background(), 3)
	_, ok := cache.Get(context.Background(), holder)
	assert.False(t, ok)
	_, ok = cache.Get(context.Background(), other)
	assert.True(t, ok)

	cache.Set(context.Background(), testEntry(holder, &tenantID, []int64{3}))
	cache.InvalidateTenant(context.Background(), tenantID)
	_, ok = cache.Get(context.Background(), holder)
	assert.False(t, ok)
}

func TestMemoryCache_GetReturnsIndependentSlice(t *testing.T) {
	t.Parallel()

	cache := resolver.NewMemoryCache(64, time.Minute)
	userID := uuid.New()
	cache.Set(context.Background(), testEntry(userID, nil, nil))

	got, ok := cache.Get(context.Background(), userID)
	require.True(t, ok)
	require.Len(t, got, 1)
	got[0].Key = "bookings.delete"

	again, ok := cache.Get(context.Background(), userID)
	require.True(t, ok)
	require.Len(t, again, 1)
	assert.Equal(t, "bookings.read", again[0].Key)
}
