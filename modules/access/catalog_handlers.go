package access

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lodgekit/lodgekit/pkg/menu"
	"github.com/lodgekit/lodgekit/pkg/permission"
)

type permissionCreateRequest struct {
	Key         string `json:"permission_key"`
	Category    string `json:"category"`
	Scope       string `json:"scope"`
	System      bool   `json:"is_system"`
	Description string `json:"description"`
}

func (m *Module) handlePermissionCreate(w http.ResponseWriter, r *http.Request) {
	var req permissionCreateRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	created, err := m.permissions.Create(r.Context(), actor(r.Context()), permission.CreateParams{
		Key:         req.Key,
		Category:    req.Category,
		Scope:       permission.Scope(req.Scope),
		System:      req.System,
		Description: req.Description,
	})
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusCreated, toPermissionResponse(created))
}

type permissionUpdateRequest struct {
	PermissionID int64   `json:"permission_id"`
	Key          *string `json:"permission_key"`
	Category     *string `json:"category"`
	Scope        *string `json:"scope"`
	Description  *string `json:"description"`
}

func (m *Module) handlePermissionUpdate(w http.ResponseWriter, r *http.Request) {
	var req permissionUpdateRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	var scope *permission.Scope
	if req.Scope != nil {
		s := permission.Scope(*req.Scope)
		scope = &s
	}

	updated, err := m.permissions.Update(r.Context(), actor(r.Context()), req.PermissionID, permission.UpdateParams{
		Key:         req.Key,
		Category:    req.Category,
		Scope:       scope,
		Description: req.Description,
	})
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, toPermissionResponse(updated))
}

type permissionDeleteRequest struct {
	PermissionID int64 `json:"permission_id"`
}

func (m *Module) handlePermissionDelete(w http.ResponseWriter, r *http.Request) {
	var req permissionDeleteRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	if err := m.permissions.Delete(r.Context(), actor(r.Context()), req.PermissionID); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusNoContent, nil)
}

type menuCreateRequest struct {
	TenantID      *uuid.UUID `json:"tenant_id"`
	Key           string     `json:"menu_key"`
	ParentKey     *string    `json:"parent_menu_key"`
	DisplayName   string     `json:"display_name"`
	Icon          string     `json:"icon"`
	Route         string     `json:"route"`
	DisplayOrder  int        `json:"display_order"`
	Match         string     `json:"match_type"`
	PermissionIDs []int64    `json:"required_permission_ids"`
}

func (m *Module) handleMenuCreate(w http.ResponseWriter, r *http.Request) {
	var req menuCreateRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	created, err := m.menus.Create(r.Context(), menu.CreateParams{
		TenantID:      req.TenantID,
		Key:           req.Key,
		ParentKey:     req.ParentKey,
		DisplayName:   req.DisplayName,
		Icon:          req.Icon,
		Route:         req.Route,
		DisplayOrder:  req.DisplayOrder,
		Match:         menu.Match(req.Match),
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusCreated, toMenuEntryResponse(created))
}

type menuUpdateRequest struct {
	MenuID        int64    `json:"menu_id"`
	ParentKey     *string  `json:"parent_menu_key"`
	ClearParent   bool     `json:"clear_parent"`
	DisplayName   *string  `json:"display_name"`
	Icon          *string  `json:"icon"`
	Route         *string  `json:"route"`
	DisplayOrder  *int     `json:"display_order"`
	Match         *string  `json:"match_type"`
	PermissionIDs *[]int64 `json:"required_permission_ids"`
}

func (m *Module) handleMenuUpdate(w http.ResponseWriter, r *http.Request) {
	var req menuUpdateRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	params := menu.UpdateParams{
		DisplayName:   req.DisplayName,
		Icon:          req.Icon,
		Route:         req.Route,
		DisplayOrder:  req.DisplayOrder,
		PermissionIDs: req.PermissionIDs,
	}
	if req.Match != nil {
		match := menu.Match(*req.Match)
		params.Match = &match
	}
	switch {
	case req.ClearParent:
		var noParent *string
		params.ParentKey = &noParent
	case req.ParentKey != nil:
		params.ParentKey = &req.ParentKey
	}

	updated, err := m.menus.Update(r.Context(), req.MenuID, params)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, toMenuEntryResponse(updated))
}

type menuIDRequest struct {
	MenuID int64 `json:"menu_id"`
}

func (m *Module) handleMenuDelete(w http.ResponseWriter, r *http.Request) {
	var req menuIDRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	if err := m.menus.Delete(r.Context(), req.MenuID); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusNoContent, nil)
}

func (m *Module) handleMenuActivate(w http.ResponseWriter, r *http.Request) {
	var req menuIDRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	updated, err := m.menus.Activate(r.Context(), req.MenuID)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, toMenuEntryResponse(updated))
}

func (m *Module) handleMenuDeactivate(w http.ResponseWriter, r *http.Request) {
	var req menuIDRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	updated, err := m.menus.Deactivate(r.Context(), req.MenuID)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, toMenuEntryResponse(updated))
}
