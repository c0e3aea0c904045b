package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lodgekit/lodgekit/pkg/logger"
	"github.com/lodgekit/lodgekit/pkg/menu"
	"github.com/lodgekit/lodgekit/pkg/permission"
	"github.com/lodgekit/lodgekit/pkg/role"
)

// Manifest is the YAML shape of a seed file.
type Manifest struct {
	Permissions []PermissionSeed `yaml:"permissions"`
	Roles       []RoleSeed       `yaml:"roles"`
	Menus       []MenuSeed       `yaml:"menus"`
}

// PermissionSeed declares one catalog permission.
type PermissionSeed struct {
	Key         string `yaml:"key"`
	Category    string `yaml:"category"`
	Scope       string `yaml:"scope"`
	Description string `yaml:"description"`
}

// RoleSeed declares one system role and the permission keys it grants.
type RoleSeed struct {
	Name           string   `yaml:"name"`
	DisplayName    string   `yaml:"display_name"`
	Description    string   `yaml:"description"`
	Default        bool     `yaml:"default"`
	HierarchyLevel int      `yaml:"hierarchy_level"`
	Grants         []string `yaml:"grants"`
}

// MenuSeed declares one menu entry, activated on creation.
type MenuSeed struct {
	Key          string   `yaml:"key"`
	Parent       string   `yaml:"parent"`
	DisplayName  string   `yaml:"display_name"`
	Icon         string   `yaml:"icon"`
	Route        string   `yaml:"route"`
	DisplayOrder int      `yaml:"display_order"`
	Match        string   `yaml:"match"`
	Permissions  []string `yaml:"permissions"` // permission keys
}

// Parse decodes a manifest from YAML.
func Parse(r io.Reader) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("seed: decode manifest: %w", err)
	}
	return m, nil
}

// ParseFile decodes a manifest from a YAML file.
func ParseFile(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("seed: open manifest: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// deployActor is the implicit super-admin identity seeding runs under, so
// system records can be provisioned through the regular service path.
type deployActor struct{}

func (deployActor) IsSuperAdmin() bool { return true }

// Seeder applies manifests to the catalog. Seeded permissions and roles are
// created as system records under an implicit deployment super-admin; the
// actor checks of the services guard runtime mutation, not deployment.
type Seeder struct {
	perms permission.Store
	roles *role.Service
	menus *menu.Service
	log   *slog.Logger
}

// Option configures optional seeder dependencies.
type Option func(*Seeder)

// WithLogger sets the seeder logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Seeder) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a seeder. The menu service may be nil when the deployment
// carries no menu manifest.
func New(perms permission.Store, roles *role.Service, menus *menu.Service, opts ...Option) *Seeder {
	if perms == nil {
		panic("seed: permission store is required")
	}
	if roles == nil {
		panic("seed: role service is required")
	}
	s := &Seeder{
		perms: perms,
		roles: roles,
		menus: menus,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply provisions everything the manifest declares, in dependency order:
// permissions, then roles and their grants, then menus.
func (s *Seeder) Apply(ctx context.Context, m Manifest) error {
	permIDs, err := s.applyPermissions(ctx, m.Permissions)
	if err != nil {
		return err
	}
	if err := s.applyRoles(ctx, m.Roles, permIDs); err != nil {
		return err
	}
	return s.applyMenus(ctx, m.Menus, permIDs)
}

func (s *Seeder) applyPermissions(ctx context.Context, seeds []PermissionSeed) (map[string]int64, error) {
	ids := make(map[string]int64, len(seeds))
	created := 0
	for _, ps := range seeds {
		existing, err := s.perms.GetByKey(ctx, ps.Key)
		if err == nil {
			ids[ps.Key] = existing.ID
			continue
		}
		if !errors.Is(err, permission.ErrNotFound) {
			return nil, err
		}

		resource, action, err := permission.ParseKey(ps.Key)
		if err != nil {
			return nil, fmt.Errorf("seed: permission %q: %w", ps.Key, err)
		}
		scope := permission.Scope(ps.Scope)
		if ps.Scope == "" {
			scope = permission.ScopeFirm
		}
		if !scope.Valid() {
			return nil, fmt.Errorf("seed: permission %q: %w", ps.Key, permission.ErrInvalidScope)
		}

		p, err := s.perms.Create(ctx, permission.Permission{
			Key:         ps.Key,
			Resource:    resource,
			Action:      action,
			Category:    ps.Category,
			Scope:       scope,
			System:      true,
			Description: ps.Description,
		})
		if err != nil {
			return nil, fmt.Errorf("seed: permission %q: %w", ps.Key, err)
		}
		ids[ps.Key] = p.ID
		created++
	}

	s.log.InfoContext(ctx, "permissions seeded", "declared", len(seeds), "created", created)
	return ids, nil
}

func (s *Seeder) applyRoles(ctx context.Context, seeds []RoleSeed, permIDs map[string]int64) error {
	existing, err := s.roles.List(ctx, role.Filter{})
	if err != nil {
		return err
	}
	byName := make(map[string]role.Role, len(existing))
	for _, r := range existing {
		byName[r.Name] = r
	}

	for _, rs := range seeds {
		r, ok := byName[rs.Name]
		if !ok {
			r, err = s.roles.Create(ctx, deployActor{}, role.CreateParams{
				Name:           rs.Name,
				DisplayName:    rs.DisplayName,
				Description:    rs.Description,
				System:         true,
				Default:        rs.Default,
				HierarchyLevel: rs.HierarchyLevel,
			})
			if err != nil {
				return fmt.Errorf("seed: role %q: %w", rs.Name, err)
			}
			s.log.InfoContext(ctx, "system role seeded", "role", rs.Name)
		}

		if !ok && len(rs.Grants) > 0 {
			grantIDs, err := resolveKeys(rs.Grants, permIDs)
			if err != nil {
				return fmt.Errorf("seed: role %q: %w", rs.Name, err)
			}
			if _, err := s.roles.AssignPermissions(ctx, r.ID, grantIDs); err != nil {
				return fmt.Errorf("seed: role %q: %w", rs.Name, err)
			}
		}
	}
	return nil
}

func (s *Seeder) applyMenus(ctx context.Context, seeds []MenuSeed, permIDs map[string]int64) error {
	if len(seeds) == 0 {
		return nil
	}
	if s.menus == nil {
		return errors.New("seed: manifest declares menus but no menu service is configured")
	}

	for _, ms := range seeds {
		if _, err := s.menus.GetByKey(ctx, nil, ms.Key); err == nil {
			continue
		} else if !errors.Is(err, menu.ErrNotFound) {
			return err
		}

		requiredIDs, err := resolveKeys(ms.Permissions, permIDs)
		if err != nil {
			return fmt.Errorf("seed: menu %q: %w", ms.Key, err)
		}

		var parent *string
		if ms.Parent != "" {
			parent = &ms.Parent
		}
		match := menu.Match(ms.Match)
		if ms.Match == "" {
			match = menu.MatchAny
		}

		created, err := s.menus.Create(ctx, menu.CreateParams{
			Key:           ms.Key,
			ParentKey:     parent,
			DisplayName:   ms.DisplayName,
			Icon:          ms.Icon,
			Route:         ms.Route,
			DisplayOrder:  ms.DisplayOrder,
			Match:         match,
			PermissionIDs: requiredIDs,
		})
		if err != nil {
			return fmt.Errorf("seed: menu %q: %w", ms.Key, err)
		}
		if _, err := s.menus.Activate(ctx, created.ID); err != nil {
			return fmt.Errorf("seed: menu %q: %w", ms.Key, err)
		}
		s.log.InfoContext(ctx, "menu entry seeded", logger.MenuKey(ms.Key))
	}
	return nil
}

// resolveKeys maps permission keys declared in the manifest to their seeded
// or pre-existing catalog ids.
func resolveKeys(keys []string, permIDs map[string]int64) ([]int64, error) {
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		id, ok := permIDs[key]
		if !ok {
			return nil, fmt.Errorf("unknown permission key %q", key)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
