package menu

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/lodgekit/lodgekit/pkg/logger"
	"github.com/lodgekit/lodgekit/pkg/resolver"
	"github.com/lodgekit/lodgekit/pkg/statemachine"
)

// Catalog is the permission catalog slice needed to validate required
// permission ids.
type Catalog interface {
	Missing(ctx context.Context, ids []int64) ([]int64, error)
}

// PermissionResolver supplies the user's effective permission ids.
// Satisfied by resolver.Engine.
type PermissionResolver interface {
	EffectivePermissionIDs(ctx context.Context, user resolver.User) ([]int64, error)
}

// Lifecycle events for menu entries.
const (
	EventActivate   statemachine.Event = "activate"
	EventDeactivate statemachine.Event = "deactivate"
)

// Service owns the menu catalog and visibility evaluation.
type Service struct {
	store     Store
	catalog   Catalog
	resolver  PermissionResolver
	lifecycle *statemachine.Machine
	log       *slog.Logger
}

// ServiceOption configures optional service dependencies.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a menu service.
// Panics if store, catalog, or resolver is nil to fail fast during
// initialization.
func NewService(store Store, catalog Catalog, resolver PermissionResolver, opts ...ServiceOption) *Service {
	if store == nil {
		panic("menu: store is required")
	}
	if catalog == nil {
		panic("menu: permission catalog is required")
	}
	if resolver == nil {
		panic("menu: permission resolver is required")
	}

	lifecycle := statemachine.New()
	// draft -> active -> inactive -> active; drafts cannot be deactivated.
	_ = lifecycle.AddTransition(statemachine.State(StatusDraft), statemachine.State(StatusActive), EventActivate)
	_ = lifecycle.AddTransition(statemachine.State(StatusInactive), statemachine.State(StatusActive), EventActivate)
	_ = lifecycle.AddTransition(statemachine.State(StatusActive), statemachine.State(StatusInactive), EventDeactivate)

	s := &Service{
		store:     store,
		catalog:   catalog,
		resolver:  resolver,
		lifecycle: lifecycle,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VisibleMenu resolves the user's effective permissions and assembles the
// menu tree they are allowed to see. Visibility is judged per entry; a
// parent whose own rule passes is rendered even when none of its children
// are visible. A visible entry whose parent is not visible is dropped with
// its subtree.
func (s *Service) VisibleMenu(ctx context.Context, user resolver.User) ([]Node, error) {
	visible, err := s.VisibleEntries(ctx, user)
	if err != nil {
		return nil, err
	}
	return BuildTree(visible), nil
}

// VisibleEntries is the flat form of VisibleMenu: every active entry whose
// permission rule passes for the user, parent-key-linked and sorted by
// display order then key. Tenant users see the global catalog plus their
// tenant's own entries. Callers that assemble their own tree use this.
func (s *Service) VisibleEntries(ctx context.Context, user resolver.User) ([]Entry, error) {
	ids, err := s.resolver.EffectivePermissionIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	effective := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		effective[id] = struct{}{}
	}

	entries, err := s.store.List(ctx, Filter{TenantID: user.TenantID})
	if err != nil {
		return nil, err
	}

	visible := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Visible(effective) {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// BuildTree arranges entries into a tree. Entries without a parent key are
// roots; children nest under the entry whose key matches their parent key.
// Input order is preserved, so a list sorted by display order yields sorted
// siblings. Entries referencing a parent absent from the input are dropped.
func BuildTree(entries []Entry) []Node {
	children := make(map[string][]Entry)
	var rootEntries []Entry
	for _, e := range entries {
		if e.ParentKey == nil {
			rootEntries = append(rootEntries, e)
			continue
		}
		children[*e.ParentKey] = append(children[*e.ParentKey], e)
	}

	var build func(e Entry) Node
	build = func(e Entry) Node {
		n := Node{Entry: e}
		for _, child := range children[e.Key] {
			n.Children = append(n.Children, build(child))
		}
		return n
	}

	roots := make([]Node, 0, len(rootEntries))
	for _, e := range rootEntries {
		roots = append(roots, build(e))
	}
	return roots
}

// Get returns one entry by id.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.store.Get(ctx, id)
}

// GetByKey returns one entry by key in the given tenant scope (nil = global).
func (s *Service) GetByKey(ctx context.Context, tenantID *uuid.UUID, key string) (Entry, error) {
	return s.store.GetByKey(ctx, tenantID, key)
}

// List returns catalog entries for assignment pickers. Without
// IncludeInactive only active entries are returned.
func (s *Service) List(ctx context.Context, f Filter) ([]Entry, error) {
	return s.store.List(ctx, f)
}

// CreateParams describes a new menu entry. A nil TenantID creates a
// platform-wide entry.
type CreateParams struct {
	TenantID      *uuid.UUID
	Key           string
	ParentKey     *string
	DisplayName   string
	Icon          string
	Route         string
	DisplayOrder  int
	Match         Match
	PermissionIDs []int64
}

// Create inserts a new entry in draft status. The parent, if set, must
// already exist, and every required permission id must be in the catalog.
func (s *Service) Create(ctx context.Context, params CreateParams) (Entry, error) {
	if params.Key == "" {
		return Entry{}, ErrMissingKey
	}
	if params.Match == "" {
		params.Match = MatchAny
	}
	if !params.Match.Valid() {
		return Entry{}, ErrInvalidMatch
	}
	// Tenant entries merge into the global catalog when listed, so a tenant
	// key must not shadow a global one.
	if params.TenantID != nil {
		if _, err := s.store.GetByKey(ctx, nil, params.Key); err == nil {
			return Entry{}, ErrDuplicateKey
		} else if !errors.Is(err, ErrNotFound) {
			return Entry{}, err
		}
	}
	if params.ParentKey != nil {
		if *params.ParentKey == params.Key {
			return Entry{}, ErrCyclicParent
		}
		if _, err := s.lookupKey(ctx, params.TenantID, *params.ParentKey); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Entry{}, ErrUnknownParent
			}
			return Entry{}, err
		}
	}

	ids := dedupe(params.PermissionIDs)
	if err := s.validatePermissions(ctx, ids); err != nil {
		return Entry{}, err
	}

	created, err := s.store.Create(ctx, Entry{
		TenantID:      params.TenantID,
		Key:           params.Key,
		ParentKey:     params.ParentKey,
		DisplayName:   params.DisplayName,
		Icon:          params.Icon,
		Route:         params.Route,
		DisplayOrder:  params.DisplayOrder,
		Match:         params.Match,
		PermissionIDs: ids,
		Status:        StatusDraft,
		Active:        true,
	})
	if err != nil {
		return Entry{}, err
	}

	s.log.InfoContext(ctx, "menu entry created", logger.MenuKey(created.Key), "menu_id", created.ID)
	return created, nil
}

// UpdateParams carries the fields to change; nil means keep.
type UpdateParams struct {
	ParentKey     **string // outer nil keeps, inner nil clears
	DisplayName   *string
	Icon          *string
	Route         *string
	DisplayOrder  *int
	Match         *Match
	PermissionIDs *[]int64
}

// Update edits an entry. Reparenting is checked against the catalog so no
// write can introduce a cycle; visibility evaluation relies on that.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (Entry, error) {
	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}

	if params.ParentKey != nil {
		newParent := *params.ParentKey
		if newParent != nil {
			if err := s.checkAcyclic(ctx, stored.TenantID, stored.Key, *newParent); err != nil {
				return Entry{}, err
			}
		}
		stored.ParentKey = newParent
	}
	if params.DisplayName != nil {
		stored.DisplayName = *params.DisplayName
	}
	if params.Icon != nil {
		stored.Icon = *params.Icon
	}
	if params.Route != nil {
		stored.Route = *params.Route
	}
	if params.DisplayOrder != nil {
		stored.DisplayOrder = *params.DisplayOrder
	}
	if params.Match != nil {
		if !params.Match.Valid() {
			return Entry{}, ErrInvalidMatch
		}
		stored.Match = *params.Match
	}
	if params.PermissionIDs != nil {
		ids := dedupe(*params.PermissionIDs)
		if err := s.validatePermissions(ctx, ids); err != nil {
			return Entry{}, err
		}
		stored.PermissionIDs = ids
	}

	return s.store.Update(ctx, stored)
}

// Delete removes an entry from the catalog.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "menu entry deleted", "menu_id", id)
	return nil
}

// Activate moves a draft or inactive entry into active status, making it
// eligible for visibility evaluation.
func (s *Service) Activate(ctx context.Context, id int64) (Entry, error) {
	return s.transition(ctx, id, EventActivate)
}

// Deactivate retires an active entry. Inactive entries are excluded from
// listings and resolution entirely.
func (s *Service) Deactivate(ctx context.Context, id int64) (Entry, error) {
	return s.transition(ctx, id, EventDeactivate)
}

// PermissionReferenced implements permission.ReferenceSource so the catalog
// refuses to delete permissions still required by a menu entry.
func (s *Service) PermissionReferenced(ctx context.Context, permissionID int64) (bool, error) {
	return s.store.PermissionReferenced(ctx, permissionID)
}

func (s *Service) transition(ctx context.Context, id int64, event statemachine.Event) (Entry, error) {
	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}

	next, err := s.lifecycle.Next(ctx, statemachine.State(stored.Status), event, stored)
	if err != nil {
		if statemachine.IsNoTransitionError(err) {
			return Entry{}, ErrInvalidTransition
		}
		return Entry{}, err
	}

	stored.Status = Status(next)
	updated, err := s.store.Update(ctx, stored)
	if err != nil {
		return Entry{}, err
	}

	s.log.InfoContext(ctx, "menu entry transitioned", logger.MenuKey(updated.Key), "status", updated.Status)
	return updated, nil
}

// checkAcyclic walks the parent chain from newParentKey; finding entryKey on
// the way up means the reparent would close a cycle.
func (s *Service) checkAcyclic(ctx context.Context, tenantID *uuid.UUID, entryKey, newParentKey string) error {
	if newParentKey == entryKey {
		return ErrCyclicParent
	}

	seen := map[string]struct{}{entryKey: {}}
	current := newParentKey
	for {
		if _, ok := seen[current]; ok {
			return ErrCyclicParent
		}
		seen[current] = struct{}{}

		e, err := s.lookupKey(ctx, tenantID, current)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrUnknownParent
			}
			return err
		}
		if e.ParentKey == nil {
			return nil
		}
		current = *e.ParentKey
	}
}

// lookupKey resolves a key the way a merged listing would see it: the tenant
// scope first, then the global catalog.
func (s *Service) lookupKey(ctx context.Context, tenantID *uuid.UUID, key string) (Entry, error) {
	if tenantID != nil {
		e, err := s.store.GetByKey(ctx, tenantID, key)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return e, err
		}
	}
	return s.store.GetByKey(ctx, nil, key)
}

func (s *Service) validatePermissions(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.catalog.Missing(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return ErrUnknownPermission
	}
	return nil
}

func dedupe(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
