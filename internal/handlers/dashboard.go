package handlers

import (
	"net/http"

	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/services"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	svc *services.DashboardService
}

func NewDashboardHandler(svc *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.svc.Stats(r.Context(), scope)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

// Health reports whether the database answers.
func Health(gdb *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(gdb.WithContext(r.Context())); err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
