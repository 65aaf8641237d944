package handlers

import (
	"net/http"

	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/services"
)

// DevisHandler serves quotes to staff and to the client they are addressed to.
type DevisHandler struct {
	svc *services.DevisService
}

func NewDevisHandler(svc *services.DevisService) *DevisHandler {
	return &DevisHandler{svc: svc}
}

func (h *DevisHandler) List(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.svc.List(r.Context(), scope, services.DevisFilter{
		Status:   models.DevisStatus(r.URL.Query().Get("status")),
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

func (h *DevisHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.svc.Get(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *DevisHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in services.DevisInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.svc.Create(r.Context(), scope, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *DevisHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in services.DevisInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.svc.Update(r.Context(), scope, id, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *DevisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), scope, id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DevisHandler) Send(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.svc.Send(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *DevisHandler) Accept(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.svc.Accept(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *DevisHandler) Refuse(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.svc.Refuse(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

// ─────────────────────────────────────────────────────────────────────────────
// Client self-service
// ─────────────────────────────────────────────────────────────────────────────

func (h *DevisHandler) ClientList(w http.ResponseWriter, r *http.Request) {
	p, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	list, err := h.svc.ListForClient(r.Context(), scope, p.ID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, list)
}

func (h *DevisHandler) ClientAccept(w http.ResponseWriter, r *http.Request) {
	p, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.svc.AcceptForClient(r.Context(), scope, p.ID, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *DevisHandler) ClientRefuse(w http.ResponseWriter, r *http.Request) {
	p, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.svc.RefuseForClient(r.Context(), scope, p.ID, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}
