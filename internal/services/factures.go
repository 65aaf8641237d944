package services

import (
	"context"
	"time"

	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/tenancy"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type FactureFilter struct {
	Status   models.FactureStatus
	ClientID uint
	Limit    int
	Offset   int
}

type FactureService struct {
	db  *gorm.DB
	now Clock
}

func NewFactureService(gdb *gorm.DB) *FactureService {
	return &FactureService{db: gdb, now: time.Now}
}

func (s *FactureService) List(ctx context.Context, scope tenancy.Scope, f FactureFilter) ([]models.Facture, error) {
	tx := scope.Apply(s.db.WithContext(ctx).Model(&models.Facture{})).Preload("Client")
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		tx = tx.Where("client_id = ?", f.ClientID)
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit).Offset(f.Offset)
	}
	var out []models.Facture
	if err := tx.Order("id DESC").Find(&out).Error; err != nil {
		return nil, db.Translate(err, "", "list factures")
	}
	return out, nil
}

func (s *FactureService) Get(ctx context.Context, scope tenancy.Scope, id uint) (*models.Facture, error) {
	var f models.Facture
	err := scope.Apply(s.db.WithContext(ctx)).
		Preload("Client").Preload("Devis.Items").
		Where("id = ?", id).First(&f).Error
	if err != nil {
		return nil, db.Translate(err, "", "load facture")
	}
	return &f, nil
}

// setStatus moves an unpaid invoice to status. The conditional update keeps
// two concurrent calls from both succeeding.
func (s *FactureService) setStatus(ctx context.Context, scope tenancy.Scope, id uint, status models.FactureStatus) (*models.Facture, error) {
	f, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !f.IsOpen() {
		return nil, apperr.Conflict("facture_not_editable")
	}
	updates := map[string]any{"status": status}
	if status == models.FacturePayee {
		now := s.now()
		updates["paid_date"] = now
		f.PaidDate = &now
	}
	res := s.db.WithContext(ctx).Model(&models.Facture{}).
		Where("id = ? AND status = ?", f.ID, models.FactureImpayee).
		Updates(updates)
	if res.Error != nil {
		return nil, db.Translate(res.Error, "", "update facture")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict("facture_not_editable")
	}
	f.Status = status
	logrus.WithFields(logrus.Fields{"garage_id": f.GarageID, "facture": f.Numero, "status": status}).Info("facture status changed")
	return f, nil
}

func (s *FactureService) Pay(ctx context.Context, scope tenancy.Scope, id uint) (*models.Facture, error) {
	return s.setStatus(ctx, scope, id, models.FacturePayee)
}

func (s *FactureService) Cancel(ctx context.Context, scope tenancy.Scope, id uint) (*models.Facture, error) {
	return s.setStatus(ctx, scope, id, models.FactureAnnulee)
}
