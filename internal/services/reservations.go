package services

import (
	"context"
	"time"

	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/tenancy"
	"github.com/diewo77/garage-manager/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ReservationInput struct {
	ClientID        uint      `json:"client_id"`
	VehiculeID      *uint     `json:"vehicule_id,omitempty"`
	ServiceID       *uint     `json:"service_id,omitempty"`
	DateReservation time.Time `json:"date_reservation"`
	Message         string    `json:"message"`
}

type ReservationFilter struct {
	Status   models.ReservationStatus
	ClientID uint
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

type ReservationService struct {
	db  *gorm.DB
	now Clock
}

func NewReservationService(gdb *gorm.DB) *ReservationService {
	return &ReservationService{db: gdb, now: time.Now}
}

func (s *ReservationService) List(ctx context.Context, scope tenancy.Scope, f ReservationFilter) ([]models.Reservation, error) {
	tx := scope.Apply(s.db.WithContext(ctx).Model(&models.Reservation{})).
		Preload("Client").Preload("Vehicule").Preload("Service")
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		tx = tx.Where("client_id = ?", f.ClientID)
	}
	if f.From != nil {
		tx = tx.Where("date_reservation >= ?", *f.From)
	}
	if f.To != nil {
		tx = tx.Where("date_reservation <= ?", *f.To)
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit).Offset(f.Offset)
	}
	var out []models.Reservation
	if err := tx.Order("date_reservation ASC, id ASC").Find(&out).Error; err != nil {
		return nil, db.Translate(err, "", "list reservations")
	}
	return out, nil
}

func (s *ReservationService) Get(ctx context.Context, scope tenancy.Scope, id uint) (*models.Reservation, error) {
	var r models.Reservation
	err := scope.Apply(s.db.WithContext(ctx)).
		Preload("Client").Preload("Vehicule").Preload("Service").
		Where("id = ?", id).First(&r).Error
	if err != nil {
		return nil, db.Translate(err, "", "load reservation")
	}
	return &r, nil
}

// Create books an appointment in the scope's garage. Staff name the client,
// clients book for themselves through CreateForClient.
func (s *ReservationService) Create(ctx context.Context, scope tenancy.Scope, in ReservationInput) (*models.Reservation, error) {
	gid, err := scope.WriteGarage()
	if err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx)
	v := make(validation.Violations)
	validation.RequiredID("client_id", in.ClientID, v)
	if in.DateReservation.IsZero() {
		v.Add("date_reservation", "required")
	} else if in.DateReservation.Before(s.now()) {
		v.Add("date_reservation", "out_of_range")
	}
	if in.ClientID != 0 {
		if err := requireInGarage(tx, &models.Client{}, "client_id", in.ClientID, gid, v); err != nil {
			return nil, err
		}
	}
	if in.VehiculeID != nil {
		var n int64
		err := tx.Model(&models.Vehicule{}).
			Where("id = ? AND garage_id = ? AND client_id = ?", *in.VehiculeID, gid, in.ClientID).
			Count(&n).Error
		if err != nil {
			return nil, db.Translate(err, "", "check vehicule")
		}
		if n == 0 {
			v.Add("vehicule_id", "not_found")
		}
	}
	if in.ServiceID != nil {
		if err := requireInGarage(tx, &models.Service{}, "service_id", *in.ServiceID, gid, v); err != nil {
			return nil, err
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	r := &models.Reservation{
		GarageID:        gid,
		ClientID:        in.ClientID,
		VehiculeID:      in.VehiculeID,
		ServiceID:       in.ServiceID,
		DateReservation: in.DateReservation,
		Status:          models.ReservationEnAttente,
		Message:         in.Message,
	}
	if err := tx.Create(r).Error; err != nil {
		return nil, db.Translate(err, "", "create reservation")
	}
	logrus.WithFields(logrus.Fields{"garage_id": gid, "reservation_id": r.ID}).Info("reservation created")
	return s.Get(ctx, scope, r.ID)
}

// CreateForClient books an appointment for the authenticated client.
func (s *ReservationService) CreateForClient(ctx context.Context, scope tenancy.Scope, clientID uint, in ReservationInput) (*models.Reservation, error) {
	in.ClientID = clientID
	return s.Create(ctx, scope, in)
}

func (s *ReservationService) transition(ctx context.Context, scope tenancy.Scope, id uint, next models.ReservationStatus) (*models.Reservation, error) {
	r, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !r.CanTransition(next) {
		return nil, apperr.Conflict("reservation_not_editable")
	}
	res := s.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("id = ? AND status = ?", r.ID, r.Status).
		Update("status", next)
	if res.Error != nil {
		return nil, db.Translate(res.Error, "", "update reservation")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict("reservation_not_editable")
	}
	logrus.WithFields(logrus.Fields{"garage_id": r.GarageID, "reservation_id": r.ID, "from": r.Status, "to": next}).Info("reservation status changed")
	r.Status = next
	return r, nil
}

func (s *ReservationService) Confirm(ctx context.Context, scope tenancy.Scope, id uint) (*models.Reservation, error) {
	return s.transition(ctx, scope, id, models.ReservationConfirmee)
}

func (s *ReservationService) Cancel(ctx context.Context, scope tenancy.Scope, id uint) (*models.Reservation, error) {
	return s.transition(ctx, scope, id, models.ReservationAnnulee)
}

func (s *ReservationService) Complete(ctx context.Context, scope tenancy.Scope, id uint) (*models.Reservation, error) {
	return s.transition(ctx, scope, id, models.ReservationTerminee)
}
