package entitlement

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is an in-memory Store for tests and single-process setups.
type memoryStore struct {
	mu            sync.RWMutex
	plans         map[int64]Plan
	features      map[int64]Feature
	featurePerms  map[int64][]int64 // featureID -> permissionIDs
	subscriptions map[uuid.UUID]Subscription
	nextPlanID    int64
	nextFeatureID int64
}

// NewMemoryStore creates an empty in-memory entitlement store.
func NewMemoryStore() Store {
	return &memoryStore{
		plans:         make(map[int64]Plan),
		features:      make(map[int64]Feature),
		featurePerms:  make(map[int64][]int64),
		subscriptions: make(map[uuid.UUID]Subscription),
		nextPlanID:    1,
		nextFeatureID: 1,
	}
}

func (s *memoryStore) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	p.ID = s.nextPlanID
	s.nextPlanID++
	p.CreatedAt = now
	p.UpdatedAt = now
	s.plans[p.ID] = p
	return p, nil
}

func (s *memoryStore) GetPlan(ctx context.Context, id int64) (Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

func (s *memoryStore) ListPlans(ctx context.Context) ([]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Plan) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *memoryStore) CreateFeature(ctx context.Context, f Feature) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[f.PlanID]; !ok {
		return Feature{}, ErrPlanNotFound
	}

	now := time.Now().UTC()
	f.ID = s.nextFeatureID
	s.nextFeatureID++
	f.CreatedAt = now
	f.UpdatedAt = now
	s.features[f.ID] = f
	return f, nil
}

func (s *memoryStore) GetFeature(ctx context.Context, id int64) (Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.features[id]
	if !ok {
		return Feature{}, ErrFeatureNotFound
	}
	return f, nil
}

func (s *memoryStore) ListFeatures(ctx context.Context, planID int64, includeDeleted bool) ([]Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Feature
	for _, f := range s.features {
		if f.PlanID != planID {
			continue
		}
		if f.Deleted && !includeDeleted {
			continue
		}
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b Feature) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *memoryStore) UpdateFeature(ctx context.Context, f Feature) (Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.features[f.ID]
	if !ok {
		return Feature{}, ErrFeatureNotFound
	}

	f.PlanID = stored.PlanID // ownership never moves between plans
	f.CreatedAt = stored.CreatedAt
	f.UpdatedAt = time.Now().UTC()
	s.features[f.ID] = f
	return f, nil
}

func (s *memoryStore) SoftDeleteFeature(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.features[id]
	if !ok {
		return ErrFeatureNotFound
	}
	f.Deleted = true
	f.UpdatedAt = time.Now().UTC()
	s.features[id] = f
	return nil
}

func (s *memoryStore) ReplaceFeaturePermissions(ctx context.Context, featureID int64, permissionIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.features[featureID]; !ok {
		return ErrFeatureNotFound
	}
	s.featurePerms[featureID] = slices.Clone(permissionIDs)
	return nil
}

func (s *memoryStore) PlanPermissionIDs(ctx context.Context, planID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	var out []int64
	for _, f := range s.features {
		if f.PlanID != planID || f.Deleted {
			continue
		}
		for _, pid := range s.featurePerms[f.ID] {
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

func (s *memoryStore) ActiveSubscription(ctx context.Context, tenantID uuid.UUID) (Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[tenantID]
	if !ok || sub.Status != SubscriptionActive {
		return Subscription{}, ErrNoActiveSubscription
	}
	return sub, nil
}

func (s *memoryStore) SaveSubscription(ctx context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[sub.PlanID]; !ok {
		return ErrPlanNotFound
	}

	now := time.Now().UTC()
	if stored, ok := s.subscriptions[sub.TenantID]; ok {
		sub.CreatedAt = stored.CreatedAt
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	s.subscriptions[sub.TenantID] = sub
	return nil
}

func (s *memoryStore) TenantsOnPlan(ctx context.Context, planID int64) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uuid.UUID
	for tenantID, sub := range s.subscriptions {
		if sub.PlanID == planID {
			out = append(out, tenantID)
		}
	}
	return out, nil
}

func (s *memoryStore) PermissionReferenced(ctx context.Context, permissionID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for featureID, pids := range s.featurePerms {
		f, ok := s.features[featureID]
		if !ok || f.Deleted {
			continue
		}
		if slices.Contains(pids, permissionID) {
			return true, nil
		}
	}
	return false, nil
}
