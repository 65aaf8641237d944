package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/garage-manager/gate"
	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/policy"
	"github.com/diewo77/garage-manager/internal/tenancy"
	"github.com/diewo77/garage-manager/validation"
	"gorm.io/gorm"
)

// Resource is a tenant-scoped CRUD handler. Request bodies are decoded into
// a scratch record and only the editable fields are copied by apply, so ids,
// garage ids and associations are never taken from the client.
type Resource[T any, PT interface {
	*T
	models.Tenanted
}] struct {
	db       *gorm.DB
	repo     *tenancy.Repo[T, PT]
	apply    func(dst, src PT)
	check    func(ctx context.Context, tx *gorm.DB, v PT) error
	filters  func(r *http.Request) ([]tenancy.Query, error)
	defaults func(PT)

	ag           *policy.AuthGate
	resourceType string
}

// Guarded checks every loaded record against the gate's ownership policy
// before it is returned, changed or deleted.
func (h *Resource[T, PT]) Guarded(ag *policy.AuthGate, resourceType string) *Resource[T, PT] {
	h.ag = ag
	h.resourceType = resourceType
	return h
}

func (h *Resource[T, PT]) authorize(ctx context.Context, action gate.Action, v PT) error {
	if h.ag == nil {
		return nil
	}
	return h.ag.Authorize(ctx, action, h.resourceType, v)
}

func (h *Resource[T, PT]) List(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var opts []tenancy.Query
	if h.filters != nil {
		if opts, err = h.filters(r); err != nil {
			httpx.Error(w, r, err)
			return
		}
	}
	total, err := h.repo.Count(r.Context(), scope, opts...)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	limit, offset := httpx.Page(r)
	items, err := h.repo.List(r.Context(), scope, append(opts, tenancy.Paginate(limit, offset))...)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	writePage(w, items, total)
}

func (h *Resource[T, PT]) Get(w http.ResponseWriter, r *http.Request) {
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
	v, err := h.repo.Get(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.authorize(r.Context(), gate.ActionView, v); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Resource[T, PT]) Create(w http.ResponseWriter, r *http.Request) {
	_, scope, err := scopeFor(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	gid, err := scope.WriteGarage()
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	src := PT(new(T))
	if h.defaults != nil {
		h.defaults(src)
	}
	if err := httpx.DecodeJSON(r, src); err != nil {
		httpx.Error(w, r, err)
		return
	}
	v := PT(new(T))
	h.apply(v, src)
	v.SetGarageID(gid)
	if err := h.check(r.Context(), h.db.WithContext(r.Context()), v); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.repo.Create(r.Context(), scope, v); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Resource[T, PT]) Update(w http.ResponseWriter, r *http.Request) {
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
	src := PT(new(T))
	if err := httpx.DecodeJSON(r, src); err != nil {
		httpx.Error(w, r, err)
		return
	}
	v, err := h.repo.Update(r.Context(), scope, id, func(dst PT) error {
		if err := h.authorize(r.Context(), gate.ActionUpdate, dst); err != nil {
			return err
		}
		h.apply(dst, src)
		return h.check(r.Context(), h.db.WithContext(r.Context()), dst)
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Resource[T, PT]) Delete(w http.ResponseWriter, r *http.Request) {
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
	v, err := h.repo.Get(r.Context(), scope, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.authorize(r.Context(), gate.ActionDelete, v); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.repo.Delete(r.Context(), scope, id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func search(r *http.Request, columns ...string) []tenancy.Query {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		return nil
	}
	like := "%" + strings.ToLower(q) + "%"
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		conds[i] = "LOWER(" + c + ") LIKE ?"
		args[i] = like
	}
	return []tenancy.Query{tenancy.Where("("+strings.Join(conds, " OR ")+")", args...)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Clients
// ─────────────────────────────────────────────────────────────────────────────

type ClientHandler = Resource[models.Client, *models.Client]

func NewClientHandler(gdb *gorm.DB) *ClientHandler {
	return &ClientHandler{
		db:   gdb,
		repo: tenancy.NewRepo[models.Client](gdb, "client").WithConflictCode("email_taken"),
		apply: func(dst, src *models.Client) {
			dst.FirstName = strings.TrimSpace(src.FirstName)
			dst.LastName = strings.TrimSpace(src.LastName)
			dst.Email = nil
			if e := strings.ToLower(strings.TrimSpace(src.EmailValue())); e != "" {
				dst.Email = &e
			}
			dst.Phone = src.Phone
			dst.Address = src.Address
			dst.City = src.City
			dst.PostalCode = src.PostalCode
		},
		check: func(_ context.Context, _ *gorm.DB, c *models.Client) error {
			v := make(validation.Violations)
			validation.Required("first_name", c.FirstName, v)
			validation.Email("email", c.EmailValue(), v)
			validation.Phone("phone", c.Phone, v)
			return v.Err()
		},
		filters: func(r *http.Request) ([]tenancy.Query, error) {
			return search(r, "first_name", "last_name", "email", "phone"), nil
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Vehicules
// ─────────────────────────────────────────────────────────────────────────────

type VehiculeHandler = Resource[models.Vehicule, *models.Vehicule]

func NewVehiculeHandler(gdb *gorm.DB) *VehiculeHandler {
	return &VehiculeHandler{
		db:   gdb,
		repo: tenancy.NewRepo[models.Vehicule](gdb, "vehicule").WithConflictCode("immatriculation_taken"),
		apply: func(dst, src *models.Vehicule) {
			dst.ClientID = src.ClientID
			dst.Immatriculation = models.NormalizeImmatriculation(src.Immatriculation)
			dst.Marque = strings.TrimSpace(src.Marque)
			dst.Modele = strings.TrimSpace(src.Modele)
			dst.Annee = src.Annee
			dst.Kilometrage = src.Kilometrage
			dst.VIN = strings.ToUpper(strings.TrimSpace(src.VIN))
		},
		check: func(_ context.Context, tx *gorm.DB, veh *models.Vehicule) error {
			v := make(validation.Violations)
			validation.RequiredID("client_id", veh.ClientID, v)
			validation.Required("immatriculation", veh.Immatriculation, v)
			validation.Required("marque", veh.Marque, v)
			if veh.Annee != 0 && (veh.Annee < 1900 || veh.Annee > time.Now().Year()+1) {
				v.Add("annee", "out_of_range")
			}
			if veh.Kilometrage < 0 {
				v.Add("kilometrage", "out_of_range")
			}
			if veh.ClientID != 0 {
				var n int64
				err := tx.Model(&models.Client{}).
					Where("id = ? AND garage_id = ?", veh.ClientID, veh.GarageID).
					Count(&n).Error
				if err != nil {
					return db.Translate(err, "", "check client")
				}
				if n == 0 {
					v.Add("client_id", "not_found")
				}
			}
			return v.Err()
		},
		filters: func(r *http.Request) ([]tenancy.Query, error) {
			opts := search(r, "immatriculation", "marque", "modele")
			clientID, err := httpx.QueryID(r, "client_id")
			if err != nil {
				return nil, err
			}
			if clientID != 0 {
				opts = append(opts, tenancy.Where("client_id = ?", clientID))
			}
			return opts, nil
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Services (catalogue)
// ─────────────────────────────────────────────────────────────────────────────

type ServiceHandler = Resource[models.Service, *models.Service]

func NewServiceHandler(gdb *gorm.DB) *ServiceHandler {
	return &ServiceHandler{
		db:   gdb,
		repo: tenancy.NewRepo[models.Service](gdb, "service"),
		// A service is active unless the request says otherwise.
		defaults: func(s *models.Service) { s.IsActive = true },
		apply: func(dst, src *models.Service) {
			dst.Name = strings.TrimSpace(src.Name)
			dst.Description = src.Description
			dst.Prix = src.Prix
			// Rates may be sent as percentages (19 for 19%).
			dst.TauxTVA = src.TauxTVA
			if dst.TauxTVA > 1 {
				dst.TauxTVA = dst.TauxTVA / 100
			}
			dst.DureeEstimee = src.DureeEstimee
			dst.IsActive = src.IsActive
		},
		check: func(_ context.Context, _ *gorm.DB, s *models.Service) error {
			v := make(validation.Violations)
			validation.Required("name", s.Name, v)
			validation.NonNegativeFloat("prix", s.Prix, v)
			validation.RangeFloat("taux_tva", s.TauxTVA, 0, 1, v)
			validation.NonNegativeFloat("duree_estimee", s.DureeEstimee, v)
			return v.Err()
		},
		filters: func(r *http.Request) ([]tenancy.Query, error) {
			opts := search(r, "name")
			if r.URL.Query().Get("active") == "true" {
				opts = append(opts, tenancy.Where("is_active = ?", true))
			}
			return opts, nil
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Ateliers
// ─────────────────────────────────────────────────────────────────────────────

type AtelierHandler = Resource[models.Atelier, *models.Atelier]

func NewAtelierHandler(gdb *gorm.DB) *AtelierHandler {
	return &AtelierHandler{
		db:   gdb,
		repo: tenancy.NewRepo[models.Atelier](gdb, "atelier"),
		apply: func(dst, src *models.Atelier) {
			dst.Name = strings.TrimSpace(src.Name)
			dst.Description = src.Description
			dst.Capacite = src.Capacite
			if dst.Capacite == 0 {
				dst.Capacite = 1
			}
			dst.HeuresJour = src.HeuresJour
			if dst.HeuresJour == 0 {
				dst.HeuresJour = 8
			}
		},
		check: func(_ context.Context, _ *gorm.DB, a *models.Atelier) error {
			v := make(validation.Violations)
			validation.Required("name", a.Name, v)
			if a.Capacite < 1 {
				v.Add("capacite", "out_of_range")
			}
			validation.RangeFloat("heures_jour", a.HeuresJour, 0.5, 24, v)
			return v.Err()
		},
	}
}
