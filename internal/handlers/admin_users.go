package handlers

import (
	"net/http"

	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/services"
)

// AdminUserHandler manages platform users and the super-admin flag.
type AdminUserHandler struct {
	svc *services.AdminService
}

func NewAdminUserHandler(svc *services.AdminService) *AdminUserHandler {
	return &AdminUserHandler{svc: svc}
}

func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	users, err := h.svc.ListUsers(r.Context(), limit, offset)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, users)
}

func (h *AdminUserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.UserInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	u, err := h.svc.CreateUser(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *AdminUserHandler) flag(fn func(*http.Request, uint) (*models.User, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.PathID(r, "id")
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		u, err := fn(r, id)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, u)
	}
}

func (h *AdminUserHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.flag(func(r *http.Request, id uint) (*models.User, error) {
		return h.svc.Promote(r.Context(), id)
	})(w, r)
}

// Demote refuses to remove the last super-admin.
func (h *AdminUserHandler) Demote(w http.ResponseWriter, r *http.Request) {
	h.flag(func(r *http.Request, id uint) (*models.User, error) {
		return h.svc.Demote(r.Context(), id)
	})(w, r)
}
