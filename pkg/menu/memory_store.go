package menu

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is an in-memory Store for tests and single-process setups.
type memoryStore struct {
	mu     sync.RWMutex
	byID   map[int64]Entry
	byKey  map[string]int64
	nextID int64
}

// NewMemoryStore creates an empty in-memory menu store.
func NewMemoryStore() Store {
	return &memoryStore{
		byID:   make(map[int64]Entry),
		byKey:  make(map[string]int64),
		nextID: 1,
	}
}

func (s *memoryStore) Create(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKey[scopedKey(e.TenantID, e.Key)]; ok {
		return Entry{}, ErrDuplicateKey
	}

	now := time.Now().UTC()
	e.ID = s.nextID
	s.nextID++
	e.CreatedAt = now
	e.UpdatedAt = now
	e.PermissionIDs = slices.Clone(e.PermissionIDs)
	s.byID[e.ID] = e
	s.byKey[scopedKey(e.TenantID, e.Key)] = e.ID
	return e, nil
}

func (s *memoryStore) Get(ctx context.Context, id int64) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *memoryStore) GetByKey(ctx context.Context, tenantID *uuid.UUID, key string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[scopedKey(tenantID, key)]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *memoryStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.byID))
	for _, e := range s.byID {
		if e.TenantID != nil && (f.TenantID == nil || *e.TenantID != *f.TenantID) {
			continue
		}
		if !f.IncludeInactive && (e.Status != StatusActive || !e.Active) {
			continue
		}
		if f.ParentKey != nil && (e.ParentKey == nil || *e.ParentKey != *f.ParentKey) {
			continue
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (s *memoryStore) Update(ctx context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[e.ID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if e.Key != stored.Key {
		if _, taken := s.byKey[scopedKey(stored.TenantID, e.Key)]; taken {
			return Entry{}, ErrDuplicateKey
		}
		delete(s.byKey, scopedKey(stored.TenantID, stored.Key))
		s.byKey[scopedKey(stored.TenantID, e.Key)] = e.ID
	}
	e.TenantID = stored.TenantID

	e.CreatedAt = stored.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	e.PermissionIDs = slices.Clone(e.PermissionIDs)
	s.byID[e.ID] = e
	return e, nil
}

func (s *memoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byKey, scopedKey(e.TenantID, e.Key))
	return nil
}

func (s *memoryStore) PermissionReferenced(ctx context.Context, permissionID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.byID {
		if slices.Contains(e.PermissionIDs, permissionID) {
			return true, nil
		}
	}
	return false, nil
}

// scopedKey namespaces a menu key by its tenant scope for uniqueness checks.
func scopedKey(tenantID *uuid.UUID, key string) string {
	if tenantID == nil {
		return key
	}
	return tenantID.String() + "/" + key
}

// sortEntries orders by display order ascending, breaking ties by key so
// repeated listings are deterministic.
func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder - b.DisplayOrder
		}
		return strings.Compare(a.Key, b.Key)
	})
}
