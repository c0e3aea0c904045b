package role

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is an in-memory Store for tests and single-process setups.
// A single mutex covers roles and grants, so ReplaceGrants is trivially
// atomic and serialized.
type memoryStore struct {
	mu     sync.RWMutex
	roles  map[int64]Role
	grants map[int64]map[int64]Grant // roleID -> permissionID -> grant
	nextID int64
}

// NewMemoryStore creates an empty in-memory role store.
func NewMemoryStore() Store {
	return &memoryStore{
		roles:  make(map[int64]Role),
		grants: make(map[int64]map[int64]Grant),
		nextID: 1,
	}
}

func sameScope(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *memoryStore) nameTaken(r Role) bool {
	for _, other := range s.roles {
		if other.ID != r.ID && other.Name == r.Name && sameScope(other.TenantID, r.TenantID) {
			return true
		}
	}
	return false
}

func (s *memoryStore) CreateRole(ctx context.Context, r Role) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(r) {
		return Role{}, ErrDuplicateName
	}

	now := time.Now().UTC()
	r.ID = s.nextID
	s.nextID++
	r.CreatedAt = now
	r.UpdatedAt = now

	s.roles[r.ID] = r
	return r, nil
}

func (s *memoryStore) GetRole(ctx context.Context, id int64) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (s *memoryStore) ListRoles(ctx context.Context, f Filter) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		switch {
		case f.TenantID != nil && sameScope(r.TenantID, f.TenantID):
			out = append(out, r)
		case r.TenantID == nil && (f.IncludeGlobal || f.TenantID == nil):
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Role) int {
		if a.HierarchyLevel != b.HierarchyLevel {
			return b.HierarchyLevel - a.HierarchyLevel
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *memoryStore) UpdateRole(ctx context.Context, r Role) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.roles[r.ID]
	if !ok {
		return Role{}, ErrNotFound
	}
	if s.nameTaken(r) {
		return Role{}, ErrDuplicateName
	}

	r.CreatedAt = stored.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	s.roles[r.ID] = r
	return r, nil
}

func (s *memoryStore) DeleteRole(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[id]; !ok {
		return ErrNotFound
	}
	delete(s.roles, id)
	delete(s.grants, id)
	return nil
}

func (s *memoryStore) ReplaceGrants(ctx context.Context, roleID int64, permissionIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()
	set := make(map[int64]Grant, len(permissionIDs))
	for _, pid := range permissionIDs {
		set[pid] = Grant{
			RoleID:       roleID,
			PermissionID: pid,
			Granted:      true,
			Status:       GrantActive,
			UpdatedAt:    now,
		}
	}
	s.grants[roleID] = set
	return nil
}

func (s *memoryStore) Grants(ctx context.Context, roleID int64) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.roles[roleID]; !ok {
		return nil, ErrNotFound
	}

	set := s.grants[roleID]
	out := make([]Grant, 0, len(set))
	for _, g := range set {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b Grant) int {
		return int(a.PermissionID - b.PermissionID)
	})
	return out, nil
}

func (s *memoryStore) GrantedPermissionIDs(ctx context.Context, roleIDs []int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	var out []int64
	for _, roleID := range roleIDs {
		for pid, g := range s.grants[roleID] {
			if !g.Granted || g.Status != GrantActive {
				continue
			}
			if _, ok := seen[pid]; ok {
				continue
			}
			seen[pid] = struct{}{}
			out = append(out, pid)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *memoryStore) PermissionReferenced(ctx context.Context, permissionID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, set := range s.grants {
		if _, ok := set[permissionID]; ok {
			return true, nil
		}
	}
	return false, nil
}
