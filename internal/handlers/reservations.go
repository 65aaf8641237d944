package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/services"
	"github.com/diewo77/garage-manager/internal/tenancy"
)

type ReservationHandler struct {
	svc *services.ReservationService
}

func NewReservationHandler(svc *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
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
	from, err := queryTime(r, "from")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	limit, offset := httpx.Page(r)
	list, err := h.svc.List(r.Context(), scope, services.ReservationFilter{
		Status:   models.ReservationStatus(r.URL.Query().Get("status")),
		ClientID: clientID,
		From:     from,
		To:       to,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, list)
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.svc.Get(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in services.ReservationInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.svc.Create(r.Context(), scope, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Confirm)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

func (h *ReservationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Complete)
}

type reservationTransition = func(ctx context.Context, scope tenancy.Scope, id uint) (*models.Reservation, error)

func (h *ReservationHandler) transition(w http.ResponseWriter, r *http.Request, fn reservationTransition) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := fn(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// ─────────────────────────────────────────────────────────────────────────────
// Client self-service
// ─────────────────────────────────────────────────────────────────────────────

func (h *ReservationHandler) ClientList(w http.ResponseWriter, r *http.Request) {
	p, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	list, err := h.svc.List(r.Context(), scope, services.ReservationFilter{ClientID: p.ID})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, list)
}

func (h *ReservationHandler) ClientCreate(w http.ResponseWriter, r *http.Request) {
	p, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in services.ReservationInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	res, err := h.svc.CreateForClient(r.Context(), scope, p.ID, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}
