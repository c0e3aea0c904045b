package resolver

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lodgekit/lodgekit/pkg/cache"
	"github.com/lodgekit/lodgekit/pkg/permission"
)

// Entry is one cached resolution result plus the context needed to
// invalidate it when a role or tenant write lands.
type Entry struct {
	UserID      uuid.UUID               `json:"user_id"`
	TenantID    *uuid.UUID              `json:"tenant_id,omitempty"`
	RoleIDs     []int64                 `json:"role_ids,omitempty"`
	Permissions []permission.Permission `json:"permissions"`
}

// Cache stores resolved permission sets keyed by user. Implementations are
// best-effort: a failed Get is a miss, a failed Set is dropped.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) ([]permission.Permission, bool)
	Set(ctx context.Context, entry Entry)
	InvalidateUser(ctx context.Context, userID uuid.UUID)
	InvalidateRole(ctx context.Context, roleID int64)
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID)
}

// memoryCache is an in-process Cache with reverse indexes from role and
// tenant to the users whose results depend on them.
type memoryCache struct {
	mu      sync.Mutex
	entries *cache.TTL[uuid.UUID, Entry]
	byRole  map[int64]map[uuid.UUID]struct{}
	byTen   map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewMemoryCache creates an in-process resolution cache with the given
// capacity and entry TTL.
func NewMemoryCache(capacity int, ttl time.Duration) Cache {
	c := &memoryCache{
		entries: cache.NewTTL[uuid.UUID, Entry](capacity, ttl),
		byRole:  make(map[int64]map[uuid.UUID]struct{}),
		byTen:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
	// Keep the reverse indexes from leaking when capacity eviction fires.
	c.entries.SetEvictCallback(func(userID uuid.UUID, e Entry) {
		c.unindex(e)
	})
	return c
}

func (c *memoryCache) Get(ctx context.Context, userID uuid.UUID) ([]permission.Permission, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(userID)
	if !ok {
		return nil, false
	}
	// Cloned so a caller mutating its result cannot corrupt later hits.
	return slices.Clone(e.Permissions), true
}

func (c *memoryCache) Set(ctx context.Context, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries.Get(entry.UserID); ok {
		c.unindex(old)
	}
	c.entries.Set(entry.UserID, entry)
	for _, roleID := range entry.RoleIDs {
		users, ok := c.byRole[roleID]
		if !ok {
			users = make(map[uuid.UUID]struct{})
			c.byRole[roleID] = users
		}
		users[entry.UserID] = struct{}{}
	}
	if entry.TenantID != nil {
		users, ok := c.byTen[*entry.TenantID]
		if !ok {
			users = make(map[uuid.UUID]struct{})
			c.byTen[*entry.TenantID] = users
		}
		users[entry.UserID] = struct{}{}
	}
}

func (c *memoryCache) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop(userID)
}

func (c *memoryCache) InvalidateRole(ctx context.Context, roleID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for userID := range c.byRole[roleID] {
		c.drop(userID)
	}
}

func (c *memoryCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for userID := range c.byTen[tenantID] {
		c.drop(userID)
	}
}

// drop removes one user's entry and its index references. Caller holds mu.
func (c *memoryCache) drop(userID uuid.UUID) {
	if e, ok := c.entries.Get(userID); ok {
		c.unindex(e)
	}
	c.entries.Delete(userID)
}

// unindex removes the entry's reverse index references. Caller holds mu.
func (c *memoryCache) unindex(e Entry) {
	for _, roleID := range e.RoleIDs {
		if users, ok := c.byRole[roleID]; ok {
			delete(users, e.UserID)
			if len(users) == 0 {
				delete(c.byRole, roleID)
			}
		}
	}
	if e.TenantID != nil {
		if users, ok := c.byTen[*e.TenantID]; ok {
			delete(users, e.UserID)
			if len(users) == 0 {
				delete(c.byTen, *e.TenantID)
			}
		}
	}
}
