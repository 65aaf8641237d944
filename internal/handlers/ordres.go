package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/services"
)

// defaultCalendarSpan is used when the calendar request has no "to".
const defaultCalendarSpan = 7 * 24 * time.Hour

type OrdreHandler struct {
	svc *services.OrdreService
}

func NewOrdreHandler(svc *services.OrdreService) *OrdreHandler {
	return &OrdreHandler{svc: svc}
}

func (h *OrdreHandler) List(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	atelierID, err := httpx.QueryID(r, "atelier_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	mecanicienID, err := httpx.QueryID(r, "mecanicien_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	limit, offset := httpx.Page(r)
	list, err := h.svc.List(r.Context(), scope, services.OrdreFilter{
		Status:       models.OrdreStatus(r.URL.Query().Get("status")),
		AtelierID:    atelierID,
		MecanicienID: mecanicienID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, list)
}

func (h *OrdreHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.svc.Get(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrdreHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in services.OrdreInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.svc.Create(r.Context(), scope, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *OrdreHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in services.OrdreInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.svc.Update(r.Context(), scope, id, in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

// Delete moves the order to the supprime status; the row is kept.
func (h *OrdreHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *OrdreHandler) Start(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.svc.Start(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrdreHandler) Finish(w http.ResponseWriter, r *http.Request) {
	_, scope, id, err := target(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.svc.Finish(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrdreHandler) Stats(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	st, err := h.svc.Stats(r.Context(), scope)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

// Calendar returns the atelier charge per day between from and to. from
// defaults to today and to to one week later.
func (h *OrdreHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
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
	start := time.Now()
	if from != nil {
		start = *from
	}
	end := start.Add(defaultCalendarSpan)
	if to != nil {
		end = *to
	}
	days, err := h.svc.Calendar(r.Context(), scope, start, end)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writeList(w, days)
}
