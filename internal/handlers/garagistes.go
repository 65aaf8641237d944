package handlers

import (
	"net/http"

	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/services"
)

// GaragisteHandler lets garage admins manage their staff, roles and grants.
type GaragisteHandler struct {
	svc *services.GaragisteService
}

func NewGaragisteHandler(svc *services.GaragisteService) *GaragisteHandler {
	return &GaragisteHandler{svc: svc}
}

func (h *GaragisteHandler) List(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	limit, offset := httpx.Page(r)
	list, err := h.svc.List(r.Context(), scope, limit, offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, list)
}

func (h *GaragisteHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in services.GaragisteInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	g, err := h.svc.Create(r.Context(), scope, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *GaragisteHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	g, err := h.svc.Get(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *GaragisteHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in services.GaragisteInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	g, err := h.svc.Update(r.Context(), scope, id, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *GaragisteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), scope, p, id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetActive is the super-admin switch on a garagiste account.
func (h *GaragisteHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	active, err := decodeActive(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	g, err := h.svc.SetActive(r.Context(), id, active)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *GaragisteHandler) Role(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	role, err := h.svc.Role(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

// AssignRole accepts a role name in any accepted spelling ("Mécanicien",
// "garage_admin", ...).
func (h *GaragisteHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in struct {
		Role string `json:"role"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	role, err := h.svc.AssignRole(r.Context(), scope, id, in.Role)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *GaragisteHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	perms, err := h.svc.Permissions(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, perms)
}

func (h *GaragisteHandler) Grant(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in struct {
		PermissionID uint `json:"permission_id"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if in.PermissionID == 0 {
		httpx.Error(w, r, requiredField("permission_id"))
		return
	}
	grant, err := h.svc.Grant(r.Context(), scope, id, in.PermissionID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grant)
}

func (h *GaragisteHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	permID, err := httpx.PathID(r, "permissionId")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.Revoke(r.Context(), scope, id, permID); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
