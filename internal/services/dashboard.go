package services

import (
	"context"
	"time"

	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/tenancy"
	"gorm.io/gorm"
)

// Dashboard summarises a garage's activity.
type Dashboard struct {
	Clients             int64       `json:"clients"`
	Vehicules           int64       `json:"vehicules"`
	Garagistes          int64       `json:"garagistes"`
	DevisEnAttente      int64       `json:"devis_en_attente"`
	FacturesImpayees    int64       `json:"factures_impayees"`
	FacturesEnRetard    int64       `json:"factures_en_retard"`
	ChiffreAffaires     float64     `json:"chiffre_affaires"`
	ChiffreAffairesMois float64     `json:"chiffre_affaires_mois"`
	ReservationsAVenir  int64       `json:"reservations_a_venir"`
	Ordres              *OrdreStats `json:"ordres"`
}

type DashboardService struct {
	db     *gorm.DB
	ordres *OrdreService
	now    Clock
}

func NewDashboardService(gdb *gorm.DB) *DashboardService {
	return &DashboardService{db: gdb, ordres: NewOrdreService(gdb), now: time.Now}
}

func (s *DashboardService) Stats(ctx context.Context, scope tenancy.Scope) (*Dashboard, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	q := func(model any) *gorm.DB {
		return scope.Apply(s.db.WithContext(ctx).Model(model))
	}
	var d Dashboard
	counts := []struct {
		dst *int64
		tx  *gorm.DB
	}{
		{&d.Clients, q(&models.Client{})},
		{&d.Vehicules, q(&models.Vehicule{})},
		{&d.Garagistes, q(&models.Garagiste{})},
		{&d.DevisEnAttente, q(&models.Devis{}).Where("status IN ?", []models.DevisStatus{models.DevisBrouillon, models.DevisEnvoye})},
		{&d.FacturesImpayees, q(&models.Facture{}).Where("status = ?", models.FactureImpayee)},
		{&d.FacturesEnRetard, q(&models.Facture{}).Where("status = ? AND due_date < ?", models.FactureImpayee, now)},
		{&d.ReservationsAVenir, q(&models.Reservation{}).Where("status IN ? AND date_reservation >= ?",
			[]models.ReservationStatus{models.ReservationEnAttente, models.ReservationConfirmee}, now)},
	}
	for _, c := range counts {
		if err := c.tx.Count(c.dst).Error; err != nil {
			return nil, db.Translate(err, "", "dashboard count")
		}
	}
	sums := []struct {
		dst *float64
		tx  *gorm.DB
	}{
		{&d.ChiffreAffaires, q(&models.Facture{}).Where("status = ?", models.FacturePayee)},
		{&d.ChiffreAffairesMois, q(&models.Facture{}).Where("status = ? AND paid_date >= ?", models.FacturePayee, monthStart)},
	}
	for _, sm := range sums {
		if err := sm.tx.Select("COALESCE(SUM(total_ttc), 0)").Scan(sm.dst).Error; err != nil {
			return nil, db.Translate(err, "", "dashboard revenue")
		}
	}
	stats, err := s.ordres.Stats(ctx, scope)
	if err != nil {
		return nil, err
	}
	d.Ordres = stats
	return &d, nil
}
