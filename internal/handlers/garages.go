package handlers

import (
	"net/http"

	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/services"
)

// GarageHandler serves the super-admin garage management and the garage
// settings page of the staff.
type GarageHandler struct {
	svc *services.GarageService
}

func NewGarageHandler(svc *services.GarageService) *GarageHandler {
	return &GarageHandler{svc: svc}
}

func (h *GarageHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	f := services.GarageFilter{Search: r.URL.Query().Get("q"), Limit: limit, Offset: offset}
	switch r.URL.Query().Get("active") {
	case "true", "1":
		on := true
		f.Active = &on
	case "false", "0":
		off := false
		f.Active = &off
	}
	garages, err := h.svc.List(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, garages)
}

// Create registers a garage together with its founding admin.
func (h *GarageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateGarageInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	garage, admin, err := h.svc.CreateWithAdmin(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"garage": garage, "admin": admin})
}

// Get serves both /api/admin/garages/{id} and /api/garages/{garageId}; the
// latter is protected by the same-garage guard.
func (h *GarageHandler) Get(param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.PathID(r, param)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		garage, err := h.svc.Get(r.Context(), id)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, garage)
	}
}

func (h *GarageHandler) Update(param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.PathID(r, param)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		var in services.GarageInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.Error(w, r, err)
			return
		}
		garage, err := h.svc.Update(r.Context(), id, in)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, garage)
	}
}

type activeInput struct {
	Active *bool `json:"active"`
}

func decodeActive(r *http.Request) (bool, error) {
	var in activeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		return false, err
	}
	if in.Active == nil {
		return false, requiredField("active")
	}
	return *in.Active, nil
}

func (h *GarageHandler) SetActive(w http.ResponseWriter, r *http.Request) {
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
	garage, err := h.svc.SetActive(r.Context(), id, active)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, garage)
}

func (h *GarageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
