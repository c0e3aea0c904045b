package permission

import (
	"context"
	"log/slog"

	"github.com/lodgekit/lodgekit/pkg/logger"
)

// ReferenceSource reports whether a permission id is still referenced
// somewhere outside the catalog. The role-grant store and the entitlement
// store both act as sources so the catalog refuses to delete rows out from
// under them.
type ReferenceSource interface {
	PermissionReferenced(ctx context.Context, permissionID int64) (bool, error)
}

// Service is the catalog's operation surface.
type Service struct {
	store Store
	refs  []ReferenceSource
	log   *slog.Logger
}

// ServiceOption configures optional service dependencies.
type ServiceOption func(*Service)

// WithReferenceSources registers stores consulted before a delete.
func WithReferenceSources(refs ...ReferenceSource) ServiceOption {
	return func(s *Service) {
		for _, r := range refs {
			if r != nil {
				s.refs = append(s.refs, r)
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

// NewService creates a catalog service over the given store.
// Panics if store is nil to fail fast during initialization.
func NewService(store Store, opts ...ServiceOption) *Service {
	if store == nil {
		panic("permission: store is required")
	}
	s := &Service{
		store: store,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns catalog entries matching the filter, ordered by key.
func (s *Service) List(ctx context.Context, f Filter) ([]Permission, error) {
	return s.store.List(ctx, f)
}

// Get returns a permission by id.
func (s *Service) Get(ctx context.Context, id int64) (Permission, error) {
	return s.store.Get(ctx, id)
}

// Missing returns the subset of ids absent from the catalog.
func (s *Service) Missing(ctx context.Context, ids []int64) ([]int64, error) {
	return s.store.Missing(ctx, ids)
}

// CreateParams describes a new catalog entry.
type CreateParams struct {
	Key         string
	Category    string
	Scope       Scope
	System      bool
	Description string
}

// Create validates and inserts a new permission.
// Creating a system permission requires a super-admin actor.
func (s *Service) Create(ctx context.Context, actor Actor, params CreateParams) (Permission, error) {
	resource, action, err := ParseKey(params.Key)
	if err != nil {
		return Permission{}, err
	}
	if !params.Scope.Valid() {
		return Permission{}, ErrInvalidScope
	}
	if params.System && !isSuperAdmin(actor) {
		return Permission{}, ErrSystemProtected
	}

	created, err := s.store.Create(ctx, Permission{
		Key:         params.Key,
		Resource:    resource,
		Action:      action,
		Category:    params.Category,
		Scope:       params.Scope,
		System:      params.System,
		Description: params.Description,
	})
	if err != nil {
		return Permission{}, err
	}

	s.log.InfoContext(ctx, "permission created", logger.PermissionKey(created.Key), "permission_id", created.ID)
	return created, nil
}

// UpdateParams carries partial updates; nil fields are left unchanged.
type UpdateParams struct {
	Key         *string
	Category    *string
	Scope       *Scope
	Description *string
}

// Update applies a partial update to a permission.
// System permissions may only be updated by a super-admin actor. Changing the
// key of a permission that is still referenced is refused: grants and feature
// mappings hold its id, and renames would silently change what they mean.
func (s *Service) Update(ctx context.Context, actor Actor, id int64, params UpdateParams) (Permission, error) {
	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	if stored.System && !isSuperAdmin(actor) {
		return Permission{}, ErrSystemProtected
	}

	if params.Key != nil && *params.Key != stored.Key {
		resource, action, err := ParseKey(*params.Key)
		if err != nil {
			return Permission{}, err
		}
		referenced, err := s.referenced(ctx, id)
		if err != nil {
			return Permission{}, err
		}
		if referenced {
			return Permission{}, ErrInUse
		}
		stored.Key = *params.Key
		stored.Resource = resource
		stored.Action = action
	}
	if params.Category != nil {
		stored.Category = *params.Category
	}
	if params.Scope != nil {
		if !params.Scope.Valid() {
			return Permission{}, ErrInvalidScope
		}
		stored.Scope = *params.Scope
	}
	if params.Description != nil {
		stored.Description = *params.Description
	}

	return s.store.Update(ctx, stored)
}

// Delete removes a permission from the catalog.
// Refused for system permissions without a super-admin actor, and for any
// permission still referenced by a grant or feature mapping. There is no
// cascading delete.
func (s *Service) Delete(ctx context.Context, actor Actor, id int64) error {
	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if stored.System && !isSuperAdmin(actor) {
		return ErrSystemProtected
	}

	referenced, err := s.referenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return ErrInUse
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "permission deleted", logger.PermissionKey(stored.Key), "permission_id", id)
	return nil
}

func (s *Service) referenced(ctx context.Context, id int64) (bool, error) {
	for _, ref := range s.refs {
		used, err := ref.PermissionReferenced(ctx, id)
		if err != nil {
			return false, err
		}
		if used {
			return true, nil
		}
	}
	return false, nil
}

func isSuperAdmin(actor Actor) bool {
	return actor != nil && actor.IsSuperAdmin()
}
