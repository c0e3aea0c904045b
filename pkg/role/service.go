package role

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/lodgekit/lodgekit/pkg/logger"
	"github.com/lodgekit/lodgekit/pkg/permission"
)

// Catalog is the slice of the permission catalog the role service needs:
// the full listing for grant annotation and existence checks for assignment
// validation.
type Catalog interface {
	List(ctx context.Context, f permission.Filter) ([]permission.Permission, error)
	Missing(ctx context.Context, ids []int64) ([]int64, error)
}

// GrantsChangedHook is notified after a role's grant set changes, so cached
// resolution results for users holding the role can be dropped.
type GrantsChangedHook func(ctx context.Context, roleID int64)

// Service is the role and grant operation surface.
type Service struct {
	store   Store
	catalog Catalog
	hooks   []GrantsChangedHook
	log     *slog.Logger
}

// ServiceOption configures optional service dependencies.
type ServiceOption func(*Service)

// WithGrantsChangedHook registers an invalidation hook.
func WithGrantsChangedHook(hooks ...GrantsChangedHook) ServiceOption {
	return func(s *Service) {
		for _, h := range hooks {
			if h != nil {
				s.hooks = append(s.hooks, h)
			}
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a role service.
// Panics if store or catalog is nil to fail fast during initialization.
func NewService(store Store, catalog Catalog, opts ...ServiceOption) *Service {
	if store == nil {
		panic("role: store is required")
	}
	if catalog == nil {
		panic("role: permission catalog is required")
	}
	s := &Service{
		store:   store,
		catalog: catalog,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes a new role.
type CreateParams struct {
	TenantID       *uuid.UUID
	Name           string
	DisplayName    string
	Description    string
	System         bool
	Default        bool
	HierarchyLevel int
}

// Create inserts a new role. Creating a system role requires a super-admin actor.
func (s *Service) Create(ctx context.Context, actor Actor, params CreateParams) (Role, error) {
	if params.Name == "" {
		return Role{}, ErrMissingName
	}
	if params.System && !isSuperAdmin(actor) {
		return Role{}, ErrSystemProtected
	}

	created, err := s.store.CreateRole(ctx, Role{
		TenantID:       params.TenantID,
		Name:           params.Name,
		DisplayName:    params.DisplayName,
		Description:    params.Description,
		System:         params.System,
		Default:        params.Default,
		HierarchyLevel: params.HierarchyLevel,
	})
	if err != nil {
		return Role{}, err
	}

	s.log.InfoContext(ctx, "role created", logger.RoleID(created.ID), "role_name", created.Name)
	return created, nil
}

// Get returns a role by id.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	return s.store.GetRole(ctx, id)
}

// List returns roles matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Role, error) {
	return s.store.ListRoles(ctx, f)
}

// UpdateParams carries partial updates; nil fields are left unchanged.
type UpdateParams struct {
	Name           *string
	DisplayName    *string
	Description    *string
	System         *bool
	Default        *bool
	HierarchyLevel *int
}

// Update applies a partial update to a role.
// On a system role, Name and System changes require a super-admin actor;
// DisplayName and Description stay editable by anyone allowed to manage roles.
// Toggling the System flag on any role also requires a super-admin actor.
func (s *Service) Update(ctx context.Context, actor Actor, id int64, params UpdateParams) (Role, error) {
	stored, err := s.store.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}

	admin := isSuperAdmin(actor)
	if stored.System && !admin {
		if params.Name != nil && *params.Name != stored.Name {
			return Role{}, ErrSystemProtected
		}
		if params.System != nil && *params.System != stored.System {
			return Role{}, ErrSystemProtected
		}
	}
	if params.System != nil && *params.System != stored.System && !admin {
		return Role{}, ErrSystemProtected
	}

	if params.Name != nil {
		if *params.Name == "" {
			return Role{}, ErrMissingName
		}
		stored.Name = *params.Name
	}
	if params.DisplayName != nil {
		stored.DisplayName = *params.DisplayName
	}
	if params.Description != nil {
		stored.Description = *params.Description
	}
	if params.System != nil {
		stored.System = *params.System
	}
	if params.Default != nil {
		stored.Default = *params.Default
	}
	if params.HierarchyLevel != nil {
		stored.HierarchyLevel = *params.HierarchyLevel
	}

	return s.store.UpdateRole(ctx, stored)
}

// Delete removes a role and its grants.
// Deleting a system role requires a super-admin actor.
func (s *Service) Delete(ctx context.Context, actor Actor, id int64) error {
	stored, err := s.store.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if stored.System && !isSuperAdmin(actor) {
		return ErrSystemProtected
	}

	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "role deleted", logger.RoleID(id), "role_name", stored.Name)
	s.notifyGrantsChanged(ctx, id)
	return nil
}

// CloneParams names the copy produced by Clone.
type CloneParams struct {
	Name        string
	DisplayName string
	TenantID    *uuid.UUID
}

// Clone copies a role and its grant set under a new name.
// The copy is never a system role regardless of the source.
func (s *Service) Clone(ctx context.Context, actor Actor, sourceID int64, params CloneParams) (Role, error) {
	source, err := s.store.GetRole(ctx, sourceID)
	if err != nil {
		return Role{}, err
	}
	if params.Name == "" {
		return Role{}, ErrMissingName
	}

	tenantID := params.TenantID
	if tenantID == nil {
		tenantID = source.TenantID
	}
	displayName := params.DisplayName
	if displayName == "" {
		displayName = source.DisplayName
	}

	created, err := s.store.CreateRole(ctx, Role{
		TenantID:       tenantID,
		Name:           params.Name,
		DisplayName:    displayName,
		Description:    source.Description,
		HierarchyLevel: source.HierarchyLevel,
	})
	if err != nil {
		return Role{}, err
	}

	grants, err := s.store.Grants(ctx, sourceID)
	if err != nil {
		return Role{}, err
	}
	ids := make([]int64, 0, len(grants))
	for _, g := range grants {
		if g.Granted && g.Status == GrantActive {
			ids = append(ids, g.PermissionID)
		}
	}
	if err := s.store.ReplaceGrants(ctx, created.ID, ids); err != nil {
		return Role{}, err
	}

	s.log.InfoContext(ctx, "role cloned", "source_role_id", sourceID, logger.RoleID(created.ID), "role_name", created.Name)
	return created, nil
}

// AssignPermissions replaces the role's entire grant set with the given
// permission ids. The operation is idempotent and atomic; the previous set is
// superseded as a whole. Returns the number of grants stored.
func (s *Service) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (int, error) {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return 0, err
	}

	ids := dedupe(permissionIDs)
	missing, err := s.catalog.Missing(ctx, ids)
	if err != nil {
		return 0, err
	}
	if len(missing) > 0 {
		return 0, ErrUnknownPermission
	}

	if err := s.store.ReplaceGrants(ctx, roleID, ids); err != nil {
		return 0, err
	}

	s.log.InfoContext(ctx, "role grants replaced", logger.RoleID(roleID), "granted", len(ids))
	s.notifyGrantsChanged(ctx, roleID)
	return len(ids), nil
}

// Permissions returns the full catalog annotated with the role's grant state,
// so a single call can drive a complete assignment UI.
func (s *Service) Permissions(ctx context.Context, roleID int64) ([]AnnotatedPermission, error) {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return nil, err
	}

	catalog, err := s.catalog.List(ctx, permission.Filter{IncludeSystem: true})
	if err != nil {
		return nil, err
	}
	grants, err := s.store.Grants(ctx, roleID)
	if err != nil {
		return nil, err
	}

	byPermission := make(map[int64]Grant, len(grants))
	for _, g := range grants {
		byPermission[g.PermissionID] = g
	}

	out := make([]AnnotatedPermission, 0, len(catalog))
	for _, p := range catalog {
		ap := AnnotatedPermission{Permission: p, Status: GrantInactive}
		if g, ok := byPermission[p.ID]; ok {
			ap.Granted = g.Granted
			ap.Status = g.Status
		}
		out = append(out, ap)
	}
	return out, nil
}

// GrantedPermissionIDs returns the union of active granted permission ids
// across the given roles. This is the resolution engine's read path.
func (s *Service) GrantedPermissionIDs(ctx context.Context, roleIDs []int64) ([]int64, error) {
	return s.store.GrantedPermissionIDs(ctx, roleIDs)
}

// PermissionReferenced implements permission.ReferenceSource so the catalog
// refuses to delete permissions that still appear in grant rows.
func (s *Service) PermissionReferenced(ctx context.Context, permissionID int64) (bool, error) {
	return s.store.PermissionReferenced(ctx, permissionID)
}

func (s *Service) notifyGrantsChanged(ctx context.Context, roleID int64) {
	for _, h := range s.hooks {
		h(ctx, roleID)
	}
}

func dedupe(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func isSuperAdmin(actor Actor) bool {
	return actor != nil && actor.IsSuperAdmin()
}
