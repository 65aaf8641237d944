package handlers

import (
	"net/http"

	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/services"
)

type FactureHandler struct {
	svc *services.FactureService
}

func NewFactureHandler(svc *services.FactureService) *FactureHandler {
	return &FactureHandler{svc: svc}
}

func (h *FactureHandler) List(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	clientID, err := httpx.QueryID(r, "client_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	limit, offset := httpx.Page(r)
	list, err := h.svc.List(r.Context(), scope, services.FactureFilter{
		Status:   models.FactureStatus(r.URL.Query().Get("status")),
		ClientID: clientID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, list)
}

func (h *FactureHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	f, err := h.svc.Get(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

func (h *FactureHandler) Pay(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	f, err := h.svc.Pay(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

func (h *FactureHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	f, err := h.svc.Cancel(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

// ClientList returns the invoices of the authenticated client.
func (h *FactureHandler) ClientList(w http.ResponseWriter, r *http.Request) {
	p, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	limit, offset := httpx.Page(r)
	list, err := h.svc.List(r.Context(), scope, services.FactureFilter{ClientID: p.ID, Limit: limit, Offset: offset})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, list)
}
