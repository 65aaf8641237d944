package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/tenancy"
	"github.com/diewo77/garage-manager/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const factureDueDelay = 30 * 24 * time.Hour

type DevisItemInput struct {
	ServiceID   *uint    `json:"service_id,omitempty"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	VATRate     *float64 `json:"vat_rate,omitempty"`
}

type DevisInput struct {
	ClientID     uint             `json:"client_id"`
	VehiculeID   *uint            `json:"vehicule_id,omitempty"`
	DateValidite *time.Time       `json:"date_validite,omitempty"`
	Notes        string           `json:"notes"`
	Items        []DevisItemInput `json:"items"`
}

type DevisFilter struct {
	Status   models.DevisStatus
	ClientID uint
	Limit    int
	Offset   int
}

// Acceptance is what accepting a devis produces.
type Acceptance struct {
	Devis   *models.Devis        `json:"devis"`
	Facture *models.Facture      `json:"facture"`
	Ordre   *models.OrdreTravail `json:"ordre"`
}

// DevisService handles quotes from draft to acceptance.
type DevisService struct {
	db          *gorm.DB
	notifier    Notifier
	frontendURL string
	now         Clock
}

func NewDevisService(gdb *gorm.DB, notifier Notifier, frontendURL string) *DevisService {
	return &DevisService{db: gdb, notifier: notifier, frontendURL: frontendURL, now: time.Now}
}

func (s *DevisService) List(ctx context.Context, scope tenancy.Scope, f DevisFilter) ([]models.Devis, error) {
	tx := scope.Apply(s.db.WithContext(ctx).Model(&models.Devis{})).Preload("Client").Preload("Vehicule")
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		tx = tx.Where("client_id = ?", f.ClientID)
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit).Offset(f.Offset)
	}
	var out []models.Devis
	if err := tx.Order("id DESC").Find(&out).Error; err != nil {
		return nil, db.Translate(err, "", "list devis")
	}
	return out, nil
}

// ListForClient returns the quotes a client may see: every non-draft quote
// addressed to them.
func (s *DevisService) ListForClient(ctx context.Context, scope tenancy.Scope, clientID uint) ([]models.Devis, error) {
	var out []models.Devis
	err := scope.Apply(s.db.WithContext(ctx)).
		Preload("Items").Preload("Vehicule").
		Where("client_id = ? AND status <> ?", clientID, models.DevisBrouillon).
		Order("id DESC").Find(&out).Error
	if err != nil {
		return nil, db.Translate(err, "", "list client devis")
	}
	return out, nil
}

func (s *DevisService) load(tx *gorm.DB, scope tenancy.Scope, id uint, lock bool) (*models.Devis, error) {
	q := scope.Apply(tx).Preload("Items", func(q *gorm.DB) *gorm.DB {
		return q.Order("position ASC, id ASC")
	}).Preload("Items.Service").Preload("Client").Preload("Vehicule")
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var d models.Devis
	if err := q.Where("id = ?", id).First(&d).Error; err != nil {
		return nil, db.Translate(err, "", "load devis")
	}
	return &d, nil
}

func (s *DevisService) Get(ctx context.Context, scope tenancy.Scope, id uint) (*models.Devis, error) {
	return s.load(s.db.WithContext(ctx), scope, id, false)
}

// requireInGarage checks that the record with id belongs to garageID. A
// record of another garage is reported as missing.
func requireInGarage(tx *gorm.DB, model any, field string, id, garageID uint, v validation.Violations) error {
	var n int64
	if err := tx.Model(model).Where("id = ? AND garage_id = ?", id, garageID).Count(&n).Error; err != nil {
		return db.Translate(err, "", "check "+field)
	}
	if n == 0 {
		v.Add(field, "not_found")
	}
	return nil
}

func (in DevisInput) check(tx *gorm.DB, garageID uint) error {
	v := make(validation.Violations)
	validation.RequiredID("client_id", in.ClientID, v)
	if len(in.Items) == 0 {
		v.Add("items", "required")
	}
	if in.ClientID != 0 {
		if err := requireInGarage(tx, &models.Client{}, "client_id", in.ClientID, garageID, v); err != nil {
			return err
		}
	}
	if in.VehiculeID != nil {
		var veh models.Vehicule
		err := tx.Where("id = ? AND garage_id = ?", *in.VehiculeID, garageID).First(&veh).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			v.Add("vehicule_id", "not_found")
		case err != nil:
			return db.Translate(err, "", "check vehicule")
		case veh.ClientID != in.ClientID:
			v.Add("vehicule_id", "invalid_value")
		}
	}
	return v.Err()
}

// buildItems turns the inputs into items. Service-backed lines default their
// description, price and VAT rate to the catalogue entry.
func buildItems(tx *gorm.DB, garageID uint, inputs []DevisItemInput) ([]models.DevisItem, error) {
	v := make(validation.Violations)
	items := make([]models.DevisItem, 0, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("items[%d]", i)
		it := models.DevisItem{
			ServiceID:   in.ServiceID,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			Position:    i,
		}
		if it.Quantity == 0 {
			it.Quantity = 1
		}
		validation.PositiveFloat(field+".quantity", it.Quantity, v)
		if in.ServiceID != nil {
			var svc models.Service
			err := tx.Where("id = ? AND garage_id = ?", *in.ServiceID, garageID).First(&svc).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				v.Add(field+".service_id", "not_found")
				continue
			}
			if err != nil {
				return nil, db.Translate(err, "", "load service")
			}
			it.Service = &svc
			if it.Description == "" {
				it.Description = svc.Name
			}
			it.UnitPrice = svc.Prix
			it.VATRate = svc.TauxTVA
		}
		if in.UnitPrice != nil {
			it.UnitPrice = *in.UnitPrice
		} else if in.ServiceID == nil {
			v.Add(field+".unit_price", "required")
		}
		if in.VATRate != nil {
			it.VATRate = *in.VATRate
		} else if in.ServiceID == nil {
			v.Add(field+".vat_rate", "required")
		}
		validation.Required(field+".description", it.Description, v)
		validation.NonNegativeFloat(field+".unit_price", it.UnitPrice, v)
		validation.RangeFloat(field+".vat_rate", it.VATRate, 0, 1, v)
		items = append(items, it)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Create stores a draft quote with its items and numbers it DEV-YYYY-NNNN.
func (s *DevisService) Create(ctx context.Context, scope tenancy.Scope, in DevisInput) (*models.Devis, error) {
	gid, err := scope.WriteGarage()
	if err != nil {
		return nil, err
	}
	now := s.now()
	d := &models.Devis{
		GarageID:     gid,
		ClientID:     in.ClientID,
		VehiculeID:   in.VehiculeID,
		Status:       models.DevisBrouillon,
		DateDevis:    now,
		DateValidite: in.DateValidite,
		Notes:        in.Notes,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := in.check(tx, gid); err != nil {
			return err
		}
		items, err := buildItems(tx, gid, in.Items)
		if err != nil {
			return err
		}
		d.Items = items
		d.ComputeTotals()
		for i := range d.Items {
			d.Items[i].Service = nil
		}
		if d.Numero, err = models.NextNumero(tx, &models.Devis{}, "DEV", gid, now.Year()); err != nil {
			return db.Translate(err, "", "number devis")
		}
		return db.Translate(tx.Create(d).Error, "numero_taken", "create devis")
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"garage_id": gid, "devis": d.Numero}).Info("devis created")
	return s.Get(ctx, scope, d.ID)
}

// Update rewrites a draft quote, replacing all of its items.
func (s *DevisService) Update(ctx context.Context, scope tenancy.Scope, id uint, in DevisInput) (*models.Devis, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.load(tx, scope, id, true)
		if err != nil {
			return err
		}
		if !d.CanEdit() {
			return apperr.Conflict("devis_not_editable")
		}
		if err := in.check(tx, d.GarageID); err != nil {
			return err
		}
		items, err := buildItems(tx, d.GarageID, in.Items)
		if err != nil {
			return err
		}
		if err := tx.Where("devis_id = ?", d.ID).Delete(&models.DevisItem{}).Error; err != nil {
			return db.Translate(err, "", "drop devis items")
		}
		for i := range items {
			items[i].DevisID = d.ID
		}
		d.Items = items
		d.ComputeTotals()
		if err := tx.Omit("Service").Create(&items).Error; err != nil {
			return db.Translate(err, "", "create devis items")
		}
		return db.Translate(tx.Model(d).Updates(map[string]any{
			"client_id":     in.ClientID,
			"vehicule_id":   in.VehiculeID,
			"date_validite": in.DateValidite,
			"notes":         in.Notes,
			"total_ht":      d.TotalHT,
			"total_tva":     d.TotalTVA,
			"total_ttc":     d.TotalTTC,
		}).Error, "", "update devis")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

// Delete removes a draft quote.
func (s *DevisService) Delete(ctx context.Context, scope tenancy.Scope, id uint) error {
	d, err := s.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	if !d.CanEdit() {
		return apperr.Conflict("devis_not_editable")
	}
	if err := s.db.WithContext(ctx).Delete(d).Error; err != nil {
		return db.Translate(err, "", "delete devis")
	}
	logrus.WithFields(logrus.Fields{"garage_id": d.GarageID, "devis": d.Numero}).Info("devis deleted")
	return nil
}

// Send marks a draft as sent and notifies the client when it has an email.
func (s *DevisService) Send(ctx context.Context, scope tenancy.Scope, id uint) (*models.Devis, error) {
	d, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !d.CanEdit() {
		return nil, apperr.Conflict("devis_not_editable")
	}
	res := s.db.WithContext(ctx).Model(&models.Devis{}).
		Where("id = ? AND status = ?", d.ID, models.DevisBrouillon).
		Update("status", models.DevisEnvoye)
	if res.Error != nil {
		return nil, db.Translate(res.Error, "", "send devis")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict("devis_not_editable")
	}
	d.Status = models.DevisEnvoye
	if d.Client != nil && d.Client.EmailValue() != "" {
		url := fmt.Sprintf("%s/client/devis/%d", strings.TrimRight(s.frontendURL, "/"), d.ID)
		notify("devis", logrus.Fields{"devis": d.Numero}, func() error {
			return s.notifier.SendDevis(ctx, d.Client.EmailValue(), d.Numero, url)
		})
	}
	logrus.WithFields(logrus.Fields{"garage_id": d.GarageID, "devis": d.Numero}).Info("devis sent")
	return d, nil
}

// Accept accepts the quote on behalf of the garage.
func (s *DevisService) Accept(ctx context.Context, scope tenancy.Scope, id uint) (*Acceptance, error) {
	return s.accept(ctx, scope, 0, id)
}

// AcceptForClient accepts a sent quote addressed to clientID.
func (s *DevisService) AcceptForClient(ctx context.Context, scope tenancy.Scope, clientID, id uint) (*Acceptance, error) {
	return s.accept(ctx, scope, clientID, id)
}

// accept marks the quote accepted and generates the invoice and the work
// order in the same transaction.
func (s *DevisService) accept(ctx context.Context, scope tenancy.Scope, clientID, id uint) (*Acceptance, error) {
	var out Acceptance
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.decidable(tx, scope, clientID, id)
		if err != nil {
			return err
		}
		if err := tx.Model(d).Update("status", models.DevisAccepte).Error; err != nil {
			return db.Translate(err, "", "accept devis")
		}
		d.Status = models.DevisAccepte

		numero, err := models.NextNumero(tx, &models.Facture{}, "FAC", d.GarageID, now.Year())
		if err != nil {
			return db.Translate(err, "", "number facture")
		}
		f := &models.Facture{
			GarageID:  d.GarageID,
			Numero:    numero,
			DevisID:   d.ID,
			ClientID:  d.ClientID,
			Status:    models.FactureImpayee,
			IssueDate: now,
			DueDate:   now.Add(factureDueDelay),
			TotalHT:   d.TotalHT,
			TotalTVA:  d.TotalTVA,
			TotalTTC:  d.TotalTTC,
		}
		if err := tx.Create(f).Error; err != nil {
			return db.Translate(err, "numero_taken", "create facture")
		}

		o := &models.OrdreTravail{
			GarageID:       d.GarageID,
			DevisID:        &d.ID,
			VehiculeID:     d.VehiculeID,
			Description:    ordreDescription(d),
			Status:         models.OrdreEnAttente,
			HeuresEstimees: d.EstimatedHours(),
		}
		if err := tx.Create(o).Error; err != nil {
			return db.Translate(err, "", "create ordre")
		}
		out = Acceptance{Devis: d, Facture: f, Ordre: o}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"garage_id": out.Devis.GarageID,
		"devis":     out.Devis.Numero,
		"facture":   out.Facture.Numero,
		"ordre_id":  out.Ordre.ID,
	}).Info("devis accepted")
	return &out, nil
}

func ordreDescription(d *models.Devis) string {
	lines := make([]string, 0, len(d.Items)+1)
	lines = append(lines, "Devis "+d.Numero)
	for _, it := range d.Items {
		lines = append(lines, "- "+it.Description)
	}
	return strings.Join(lines, "\n")
}

// Refuse refuses the quote on behalf of the garage.
func (s *DevisService) Refuse(ctx context.Context, scope tenancy.Scope, id uint) (*models.Devis, error) {
	return s.refuse(ctx, scope, 0, id)
}

// RefuseForClient refuses a sent quote addressed to clientID.
func (s *DevisService) RefuseForClient(ctx context.Context, scope tenancy.Scope, clientID, id uint) (*models.Devis, error) {
	return s.refuse(ctx, scope, clientID, id)
}

func (s *DevisService) refuse(ctx context.Context, scope tenancy.Scope, clientID, id uint) (*models.Devis, error) {
	var d *models.Devis
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if d, err = s.decidable(tx, scope, clientID, id); err != nil {
			return err
		}
		d.Status = models.DevisRefuse
		return db.Translate(tx.Model(d).Update("status", models.DevisRefuse).Error, "", "refuse devis")
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"garage_id": d.GarageID, "devis": d.Numero}).Info("devis refused")
	return d, nil
}

// decidable locks the quote and checks it can still be accepted or refused.
// Clients only see sent quotes addressed to them.
func (s *DevisService) decidable(tx *gorm.DB, scope tenancy.Scope, clientID, id uint) (*models.Devis, error) {
	d, err := s.load(tx, scope, id, true)
	if err != nil {
		return nil, err
	}
	if clientID != 0 {
		if d.ClientID != clientID || d.Status == models.DevisBrouillon {
			return nil, apperr.NotFound("not_found")
		}
	}
	if !d.CanDecide() {
		return nil, apperr.Conflict("devis_not_editable")
	}
	return d, nil
}
