package services

import (
	"context"
	"sort"
	"time"

	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/tenancy"
	"github.com/diewo77/garage-manager/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxCalendarDays = 92

type OrdreInput struct {
	DevisID        *uint      `json:"devis_id,omitempty"`
	VehiculeID     *uint      `json:"vehicule_id,omitempty"`
	AtelierID      *uint      `json:"atelier_id,omitempty"`
	MecanicienID   *uint      `json:"mecanicien_id,omitempty"`
	Description    string     `json:"description"`
	DatePrevue     *time.Time `json:"date_prevue,omitempty"`
	HeuresEstimees float64    `json:"heures_estimees"`
}

type OrdreFilter struct {
	Status       models.OrdreStatus
	AtelierID    uint
	MecanicienID uint
	Limit        int
	Offset       int
}

// OrdreStats counts work orders per status.
type OrdreStats struct {
	Total    int64                        `json:"total"`
	ByStatus map[models.OrdreStatus]int64 `json:"by_status"`
}

// AtelierLoad is the planned charge of one atelier on one day.
type AtelierLoad struct {
	AtelierID uint    `json:"atelier_id"`
	Name      string  `json:"name"`
	Ordres    int     `json:"ordres"`
	Heures    float64 `json:"heures"`
	Capacite  float64 `json:"capacite"`
}

// CalendarDay is the charge of every atelier on a given date.
type CalendarDay struct {
	Date     string        `json:"date"`
	Ateliers []AtelierLoad `json:"ateliers"`
}

type OrdreService struct {
	db  *gorm.DB
	now Clock
}

func NewOrdreService(gdb *gorm.DB) *OrdreService {
	return &OrdreService{db: gdb, now: time.Now}
}

// List returns the work orders in scope. Deleted (supprime) orders are only
// listed when explicitly filtered on.
func (s *OrdreService) List(ctx context.Context, scope tenancy.Scope, f OrdreFilter) ([]models.OrdreTravail, error) {
	tx := scope.Apply(s.db.WithContext(ctx).Model(&models.OrdreTravail{})).
		Preload("Vehicule").Preload("Atelier").Preload("Mecanicien")
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	} else {
		tx = tx.Where("status <> ?", models.OrdreSupprime)
	}
	if f.AtelierID != 0 {
		tx = tx.Where("atelier_id = ?", f.AtelierID)
	}
	if f.MecanicienID != 0 {
		tx = tx.Where("mecanicien_id = ?", f.MecanicienID)
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit).Offset(f.Offset)
	}
	var out []models.OrdreTravail
	if err := tx.Order("id ASC").Find(&out).Error; err != nil {
		return nil, db.Translate(err, "", "list ordres")
	}
	return out, nil
}

func (s *OrdreService) Get(ctx context.Context, scope tenancy.Scope, id uint) (*models.OrdreTravail, error) {
	var o models.OrdreTravail
	err := scope.Apply(s.db.WithContext(ctx)).
		Preload("Devis").Preload("Vehicule").Preload("Atelier").Preload("Mecanicien").
		Where("id = ?", id).First(&o).Error
	if err != nil {
		return nil, db.Translate(err, "", "load ordre")
	}
	return &o, nil
}

func (in OrdreInput) check(tx *gorm.DB, garageID uint) error {
	v := make(validation.Violations)
	validation.Required("description", in.Description, v)
	validation.NonNegativeFloat("heures_estimees", in.HeuresEstimees, v)
	refs := []struct {
		field string
		id    *uint
		model any
	}{
		{"devis_id", in.DevisID, &models.Devis{}},
		{"vehicule_id", in.VehiculeID, &models.Vehicule{}},
		{"atelier_id", in.AtelierID, &models.Atelier{}},
		{"mecanicien_id", in.MecanicienID, &models.Garagiste{}},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		if err := requireInGarage(tx, ref.model, ref.field, *ref.id, garageID, v); err != nil {
			return err
		}
	}
	return v.Err()
}

func (s *OrdreService) Create(ctx context.Context, scope tenancy.Scope, in OrdreInput) (*models.OrdreTravail, error) {
	gid, err := scope.WriteGarage()
	if err != nil {
		return nil, err
	}
	if err := in.check(s.db.WithContext(ctx), gid); err != nil {
		return nil, err
	}
	o := &models.OrdreTravail{
		GarageID:       gid,
		DevisID:        in.DevisID,
		VehiculeID:     in.VehiculeID,
		AtelierID:      in.AtelierID,
		MecanicienID:   in.MecanicienID,
		Description:    in.Description,
		Status:         models.OrdreEnAttente,
		DatePrevue:     in.DatePrevue,
		HeuresEstimees: in.HeuresEstimees,
	}
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, db.Translate(err, "", "create ordre")
	}
	logrus.WithFields(logrus.Fields{"garage_id": gid, "ordre_id": o.ID}).Info("ordre created")
	return s.Get(ctx, scope, o.ID)
}

// Update changes the planning details of an order that is not terminal.
func (s *OrdreService) Update(ctx context.Context, scope tenancy.Scope, id uint, in OrdreInput) (*models.OrdreTravail, error) {
	o, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !o.CanEdit() {
		return nil, apperr.Conflict("ordre_terminal")
	}
	if err := in.check(s.db.WithContext(ctx), o.GarageID); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&models.OrdreTravail{}).Where("id = ?", o.ID).Updates(map[string]any{
		"devis_id":        in.DevisID,
		"vehicule_id":     in.VehiculeID,
		"atelier_id":      in.AtelierID,
		"mecanicien_id":   in.MecanicienID,
		"description":     in.Description,
		"date_prevue":     in.DatePrevue,
		"heures_estimees": in.HeuresEstimees,
	}).Error
	if err != nil {
		return nil, db.Translate(err, "", "update ordre")
	}
	return s.Get(ctx, scope, id)
}

// transition moves the order to next when the state machine allows it. The
// update is conditional on the status read, so racing transitions cannot
// both win.
func (s *OrdreService) transition(ctx context.Context, scope tenancy.Scope, id uint, next models.OrdreStatus) (*models.OrdreTravail, error) {
	o, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !o.CanTransition(next) {
		return nil, transitionError(o.Status, next)
	}
	updates := map[string]any{"status": next}
	now := s.now()
	switch next {
	case models.OrdreEnCours:
		updates["date_debut"] = now
		o.DateDebut = &now
	case models.OrdreTermine:
		updates["date_fin"] = now
		o.DateFin = &now
	}
	res := s.db.WithContext(ctx).Model(&models.OrdreTravail{}).
		Where("id = ? AND status = ?", o.ID, o.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, db.Translate(res.Error, "", "update ordre status")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict("invalid_transition")
	}
	logrus.WithFields(logrus.Fields{"garage_id": o.GarageID, "ordre_id": o.ID, "from": o.Status, "to": next}).Info("ordre status changed")
	o.Status = next
	return o, nil
}

func transitionError(from, to models.OrdreStatus) error {
	switch {
	case to == models.OrdreSupprime && from == models.OrdreEnCours:
		return apperr.Conflict("ordre_in_progress")
	case from.IsTerminal():
		return apperr.Conflict("ordre_terminal")
	default:
		return apperr.Conflict("invalid_transition")
	}
}

// Start moves en_attente to en_cours and records the start time.
func (s *OrdreService) Start(ctx context.Context, scope tenancy.Scope, id uint) (*models.OrdreTravail, error) {
	return s.transition(ctx, scope, id, models.OrdreEnCours)
}

// Finish moves en_cours to termine and records the end time.
func (s *OrdreService) Finish(ctx context.Context, scope tenancy.Scope, id uint) (*models.OrdreTravail, error) {
	return s.transition(ctx, scope, id, models.OrdreTermine)
}

// Delete marks a waiting order supprime. Orders in progress cannot be
// deleted.
func (s *OrdreService) Delete(ctx context.Context, scope tenancy.Scope, id uint) error {
	_, err := s.transition(ctx, scope, id, models.OrdreSupprime)
	return err
}

func (s *OrdreService) Stats(ctx context.Context, scope tenancy.Scope) (*OrdreStats, error) {
	var rows []struct {
		Status models.OrdreStatus
		N      int64
	}
	err := scope.Apply(s.db.WithContext(ctx).Model(&models.OrdreTravail{})).
		Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, db.Translate(err, "", "ordre stats")
	}
	out := &OrdreStats{ByStatus: make(map[models.OrdreStatus]int64, len(models.OrdreStatuses))}
	for _, st := range models.OrdreStatuses {
		out.ByStatus[st] = 0
	}
	for _, r := range rows {
		out.ByStatus[r.Status] = r.N
		out.Total += r.N
	}
	return out, nil
}

// Calendar aggregates the estimated hours of planned orders per day and
// atelier between from and to inclusive. Deleted orders are ignored and
// orders without an atelier are grouped under atelier 0.
func (s *OrdreService) Calendar(ctx context.Context, scope tenancy.Scope, from, to time.Time) ([]CalendarDay, error) {
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) || to.Sub(from) > maxCalendarDays*24*time.Hour {
		return nil, apperr.Validation("validation_failed", validation.Violations{"to": "out_of_range"})
	}
	var ordres []models.OrdreTravail
	err := scope.Apply(s.db.WithContext(ctx)).Preload("Atelier").
		Where("status <> ? AND date_prevue >= ? AND date_prevue < ?", models.OrdreSupprime, from, to.AddDate(0, 0, 1)).
		Order("date_prevue ASC, id ASC").
		Find(&ordres).Error
	if err != nil {
		return nil, db.Translate(err, "", "load calendar")
	}

	days := make(map[string]map[uint]*AtelierLoad)
	for _, o := range ordres {
		if o.DatePrevue == nil {
			continue
		}
		day := o.DatePrevue.Format(time.DateOnly)
		loads, ok := days[day]
		if !ok {
			loads = make(map[uint]*AtelierLoad)
			days[day] = loads
		}
		var key uint
		if o.AtelierID != nil {
			key = *o.AtelierID
		}
		l, ok := loads[key]
		if !ok {
			l = &AtelierLoad{AtelierID: key}
			if o.Atelier != nil {
				l.Name = o.Atelier.Name
				l.Capacite = o.Atelier.CapaciteJour()
			}
			loads[key] = l
		}
		l.Ordres++
		l.Heures += o.HeuresEstimees
	}

	out := make([]CalendarDay, 0, len(days))
	for day, loads := range days {
		cd := CalendarDay{Date: day, Ateliers: make([]AtelierLoad, 0, len(loads))}
		for _, l := range loads {
			cd.Ateliers = append(cd.Ateliers, *l)
		}
		sort.Slice(cd.Ateliers, func(i, j int) bool { return cd.Ateliers[i].AtelierID < cd.Ateliers[j].AtelierID })
		out = append(out, cd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
