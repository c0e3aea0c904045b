package access

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lodgekit/lodgekit/pkg/menu"
	"github.com/lodgekit/lodgekit/pkg/permission"
	"github.com/lodgekit/lodgekit/pkg/role"
)

type permissionResponse struct {
	ID          int64     `json:"id"`
	Key         string    `json:"permission_key"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Category    string    `json:"category,omitempty"`
	Scope       string    `json:"scope"`
	System      bool      `json:"is_system"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toPermissionResponse(p permission.Permission) permissionResponse {
	return permissionResponse{
		ID:          p.ID,
		Key:         p.Key,
		Resource:    p.Resource,
		Action:      p.Action,
		Category:    p.Category,
		Scope:       string(p.Scope),
		System:      p.System,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toPermissionResponses(perms []permission.Permission) []permissionResponse {
	out := make([]permissionResponse, len(perms))
	for i, p := range perms {
		out[i] = toPermissionResponse(p)
	}
	return out
}

type effectivePermissionsRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (m *Module) handleEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	var req effectivePermissionsRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}
	if req.UserID == uuid.Nil {
		m.respondError(w, r, fmt.Errorf("%w: user_id is required", errValidation))
		return
	}

	user, err := m.users.User(r.Context(), req.UserID)
	if err != nil {
		m.respondError(w, r, err)
		return
	}

	perms, err := m.engine.EffectivePermissions(r.Context(), user)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, toPermissionResponses(perms))
}

type annotatedPermissionResponse struct {
	permissionResponse
	Granted  bool   `json:"granted"`
	Status   string `json:"status"`
	Entitled *bool  `json:"entitled,omitempty"`
}

type rolePermissionsListRequest struct {
	RoleID                         int64 `json:"role_id"`
	IncludeSubscriptionPermissions bool  `json:"include_subscription_permissions"`
}

// handleRolePermissionsList returns the full catalog annotated with the
// role's grant state, so assignment UIs render in one round trip. With
// include_subscription_permissions each row also reports whether the role's
// tenant is entitled to it.
func (m *Module) handleRolePermissionsList(w http.ResponseWriter, r *http.Request) {
	var req rolePermissionsListRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	annotated, err := m.roles.Permissions(r.Context(), req.RoleID)
	if err != nil {
		m.respondError(w, r, err)
		return
	}

	var entitled map[int64]struct{}
	if req.IncludeSubscriptionPermissions {
		stored, err := m.roles.Get(r.Context(), req.RoleID)
		if err != nil {
			m.respondError(w, r, err)
			return
		}
		if stored.TenantID != nil {
			ids, err := m.mapper.EntitledPermissionIDs(r.Context(), *stored.TenantID)
			if err != nil {
				m.respondError(w, r, err)
				return
			}
			entitled = make(map[int64]struct{}, len(ids))
			for _, id := range ids {
				entitled[id] = struct{}{}
			}
		}
	}

	out := make([]annotatedPermissionResponse, len(annotated))
	for i, ap := range annotated {
		resp := annotatedPermissionResponse{
			permissionResponse: toPermissionResponse(ap.Permission),
			Granted:            ap.Granted,
			Status:             string(ap.Status),
		}
		if entitled != nil {
			ok := false
			if _, in := entitled[ap.ID]; in {
				ok = true
			}
			resp.Entitled = &ok
		}
		out[i] = resp
	}
	m.respondJSON(w, http.StatusOK, out)
}

type assignPermissionsRequest struct {
	RoleID        int64   `json:"role_id"`
	PermissionIDs []int64 `json:"permission_ids"`
}

type assignPermissionsResponse struct {
	AssignedCount int `json:"assigned_count"`
}

func (m *Module) handleRolePermissionsAssign(w http.ResponseWriter, r *http.Request) {
	var req assignPermissionsRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	count, err := m.roles.AssignPermissions(r.Context(), req.RoleID, req.PermissionIDs)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, assignPermissionsResponse{AssignedCount: count})
}

type menuEntryResponse struct {
	ID            int64      `json:"id"`
	TenantID      *uuid.UUID `json:"tenant_id,omitempty"`
	Key           string     `json:"menu_key"`
	ParentKey     *string    `json:"parent_menu_key,omitempty"`
	DisplayName   string     `json:"display_name"`
	Icon          string     `json:"icon,omitempty"`
	Route         string     `json:"route,omitempty"`
	DisplayOrder  int        `json:"display_order"`
	Match         string     `json:"match_type"`
	PermissionIDs []int64    `json:"required_permission_ids,omitempty"`
	Status        string     `json:"status"`
	Active        bool       `json:"is_active"`
}

func toMenuEntryResponse(e menu.Entry) menuEntryResponse {
	return menuEntryResponse{
		ID:            e.ID,
		TenantID:      e.TenantID,
		Key:           e.Key,
		ParentKey:     e.ParentKey,
		DisplayName:   e.DisplayName,
		Icon:          e.Icon,
		Route:         e.Route,
		DisplayOrder:  e.DisplayOrder,
		Match:         string(e.Match),
		PermissionIDs: e.PermissionIDs,
		Status:        string(e.Status),
		Active:        e.Active,
	}
}

type menusForUserRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// handleMenusForUser returns the user's visible menu entries as a flat,
// parent-key-linked list; the caller assembles the tree.
func (m *Module) handleMenusForUser(w http.ResponseWriter, r *http.Request) {
	var req menusForUserRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}
	if req.UserID == uuid.Nil {
		m.respondError(w, r, fmt.Errorf("%w: user_id is required", errValidation))
		return
	}

	user, err := m.users.User(r.Context(), req.UserID)
	if err != nil {
		m.respondError(w, r, err)
		return
	}

	entries, err := m.menus.VisibleEntries(r.Context(), user)
	if err != nil {
		m.respondError(w, r, err)
		return
	}

	out := make([]menuEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toMenuEntryResponse(e)
	}
	m.respondJSON(w, http.StatusOK, out)
}

type roleResponse struct {
	ID             int64      `json:"id"`
	TenantID       *uuid.UUID `json:"tenant_id,omitempty"`
	Name           string     `json:"name"`
	DisplayName    string     `json:"display_name,omitempty"`
	Description    string     `json:"description,omitempty"`
	System         bool       `json:"is_system"`
	Default        bool       `json:"is_default"`
	HierarchyLevel int        `json:"hierarchy_level"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toRoleResponse(r role.Role) roleResponse {
	return roleResponse{
		ID:             r.ID,
		TenantID:       r.TenantID,
		Name:           r.Name,
		DisplayName:    r.DisplayName,
		Description:    r.Description,
		System:         r.System,
		Default:        r.Default,
		HierarchyLevel: r.HierarchyLevel,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type roleCreateRequest struct {
	TenantID       *uuid.UUID `json:"tenant_id"`
	Name           string     `json:"name"`
	DisplayName    string     `json:"display_name"`
	Description    string     `json:"description"`
	System         bool       `json:"is_system"`
	Default        bool       `json:"is_default"`
	HierarchyLevel int        `json:"hierarchy_level"`
}

func (m *Module) handleRoleCreate(w http.ResponseWriter, r *http.Request) {
	var req roleCreateRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	created, err := m.roles.Create(r.Context(), actor(r.Context()), role.CreateParams{
		TenantID:       req.TenantID,
		Name:           req.Name,
		DisplayName:    req.DisplayName,
		Description:    req.Description,
		System:         req.System,
		Default:        req.Default,
		HierarchyLevel: req.HierarchyLevel,
	})
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusCreated, toRoleResponse(created))
}

type roleUpdateRequest struct {
	RoleID         int64   `json:"role_id"`
	Name           *string `json:"name"`
	DisplayName    *string `json:"display_name"`
	Description    *string `json:"description"`
	System         *bool   `json:"is_system"`
	Default        *bool   `json:"is_default"`
	HierarchyLevel *int    `json:"hierarchy_level"`
}

func (m *Module) handleRoleUpdate(w http.ResponseWriter, r *http.Request) {
	var req roleUpdateRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	updated, err := m.roles.Update(r.Context(), actor(r.Context()), req.RoleID, role.UpdateParams{
		Name:           req.Name,
		DisplayName:    req.DisplayName,
		Description:    req.Description,
		System:         req.System,
		Default:        req.Default,
		HierarchyLevel: req.HierarchyLevel,
	})
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, toRoleResponse(updated))
}

type roleDeleteRequest struct {
	RoleID int64 `json:"role_id"`
}

func (m *Module) handleRoleDelete(w http.ResponseWriter, r *http.Request) {
	var req roleDeleteRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	if err := m.roles.Delete(r.Context(), actor(r.Context()), req.RoleID); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusNoContent, nil)
}

type roleCloneRequest struct {
	RoleID      int64      `json:"role_id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	TenantID    *uuid.UUID `json:"tenant_id"`
}

func (m *Module) handleRoleClone(w http.ResponseWriter, r *http.Request) {
	var req roleCloneRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	cloned, err := m.roles.Clone(r.Context(), actor(r.Context()), req.RoleID, role.CloneParams{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		TenantID:    req.TenantID,
	})
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusCreated, toRoleResponse(cloned))
}
