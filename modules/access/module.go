package access

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lodgekit/lodgekit/pkg/entitlement"
	"github.com/lodgekit/lodgekit/pkg/menu"
	"github.com/lodgekit/lodgekit/pkg/permission"
	"github.com/lodgekit/lodgekit/pkg/resolver"
	"github.com/lodgekit/lodgekit/pkg/role"
)

// ErrUnknownUser is what a UserSource returns for an id it cannot resolve.
var ErrUnknownUser = errors.New("access.unknown_user")

// UserSource resolves user ids into resolution contexts. The authentication
// collaborator owns user lifecycle; this module only reads.
type UserSource interface {
	User(ctx context.Context, id uuid.UUID) (resolver.User, error)
}

// Module bundles the access-control services behind one HTTP surface.
type Module struct {
	users       UserSource
	engine      *resolver.Engine
	permissions *permission.Service
	roles       *role.Service
	mapper      *entitlement.Mapper
	menus       *menu.Service
	log         *slog.Logger
}

// Option configures optional module dependencies.
type Option func(*Module)

// WithLogger sets the module logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates the access module.
// Panics on nil dependencies to fail fast during initialization.
func New(
	users UserSource,
	engine *resolver.Engine,
	permissions *permission.Service,
	roles *role.Service,
	mapper *entitlement.Mapper,
	menus *menu.Service,
	opts ...Option,
) *Module {
	switch {
	case users == nil:
		panic("access: user source is required")
	case engine == nil:
		panic("access: resolver engine is required")
	case permissions == nil:
		panic("access: permission service is required")
	case roles == nil:
		panic("access: role service is required")
	case mapper == nil:
		panic("access: entitlement mapper is required")
	case menus == nil:
		panic("access: menu service is required")
	}

	m := &Module{
		users:       users,
		engine:      engine,
		permissions: permissions,
		roles:       roles,
		mapper:      mapper,
		menus:       menus,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Router mounts every endpoint of the module.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/access", accessModule.Router())
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/effective-permissions", m.handleEffectivePermissions)

	r.Route("/role-permissions", func(r chi.Router) {
		r.Post("/list", m.handleRolePermissionsList)
		r.Post("/assign", m.handleRolePermissionsAssign)
	})

	r.Route("/menus", func(r chi.Router) {
		r.Post("/for-user", m.handleMenusForUser)
	})

	r.Route("/roles", func(r chi.Router) {
		r.Post("/create", m.handleRoleCreate)
		r.Post("/update", m.handleRoleUpdate)
		r.Post("/delete", m.handleRoleDelete)
		r.Post("/clone", m.handleRoleClone)
	})

	r.Route("/permissions", func(r chi.Router) {
		r.Post("/create", m.handlePermissionCreate)
		r.Post("/update", m.handlePermissionUpdate)
		r.Post("/delete", m.handlePermissionDelete)
	})

	r.Route("/menu-permissions", func(r chi.Router) {
		r.Post("/create", m.handleMenuCreate)
		r.Post("/update", m.handleMenuUpdate)
		r.Post("/delete", m.handleMenuDelete)
		r.Post("/activate", m.handleMenuActivate)
		r.Post("/deactivate", m.handleMenuDeactivate)
	})

	return r
}

// actor returns the acting user placed on the context by the host's
// authentication middleware, or nil when the request is anonymous.
func actor(ctx context.Context) permission.Actor {
	if user, ok := resolver.UserFromContext(ctx); ok {
		return user
	}
	return nil
}
