package permission

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// memoryStore is an in-memory Store for tests and single-process setups.
// It is thread-safe and returns copies so callers cannot mutate stored state.
type memoryStore struct {
	mu     sync.RWMutex
	byID   map[int64]Permission
	byKey  map[string]int64
	nextID int64
}

// NewMemoryStore creates an empty in-memory catalog store.
func NewMemoryStore() Store {
	return &memoryStore{
		byID:   make(map[int64]Permission),
		byKey:  make(map[string]int64),
		nextID: 1,
	}
}

func (s *memoryStore) List(ctx context.Context, f Filter) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Permission, 0, len(s.byID))
	for _, p := range s.byID {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Permission) int {
		return strings.Compare(a.Key, b.Key)
	})
	return out, nil
}

func (s *memoryStore) Get(ctx context.Context, id int64) (Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return p, nil
}

func (s *memoryStore) GetByKey(ctx context.Context, key string) (Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *memoryStore) Missing(ctx context.Context, ids []int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []int64
	for _, id := range ids {
		if _, ok := s.byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *memoryStore) Create(ctx context.Context, p Permission) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKey[p.Key]; ok {
		return Permission{}, ErrDuplicateKey
	}

	now := time.Now().UTC()
	p.ID = s.nextID
	s.nextID++
	p.CreatedAt = now
	p.UpdatedAt = now

	s.byID[p.ID] = p
	s.byKey[p.Key] = p.ID
	return p, nil
}

func (s *memoryStore) Update(ctx context.Context, p Permission) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[p.ID]
	if !ok {
		return Permission{}, ErrNotFound
	}
	if other, ok := s.byKey[p.Key]; ok && other != p.ID {
		return Permission{}, ErrDuplicateKey
	}

	p.CreatedAt = stored.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	delete(s.byKey, stored.Key)
	s.byID[p.ID] = p
	s.byKey[p.Key] = p.ID
	return p, nil
}

func (s *memoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byKey, p.Key)
	return nil
}
