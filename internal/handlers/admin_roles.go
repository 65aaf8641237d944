package handlers

import (
	"net/http"

	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/services"
)

// AdminRoleHandler manages roles and the permissions attached to them.
// Permission changes drop every cached profile.
type AdminRoleHandler struct {
	svc *services.RoleService
}

func NewAdminRoleHandler(svc *services.RoleService) *AdminRoleHandler {
	return &AdminRoleHandler{svc: svc}
}

func (h *AdminRoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.ListRoles(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, roles)
}

func (h *AdminRoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.RoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	role, err := h.svc.CreateRole(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

// SetPermissions replaces the role's permissions with permission_ids.
func (h *AdminRoleHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in struct {
		PermissionIDs []uint `json:"permission_ids"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	role, err := h.svc.SetPermissions(r.Context(), id, in.PermissionIDs)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *AdminRoleHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.svc.ListPermissions(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, perms)
}
