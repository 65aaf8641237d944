package models

import (
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
)

// DevisStatus represents the status of a quote.
type DevisStatus string

const (
	DevisBrouillon DevisStatus = "brouillon"
	DevisEnvoye    DevisStatus = "envoye"
	DevisAccepte   DevisStatus = "accepte"
	DevisRefuse    DevisStatus = "refuse"
)

// Devis is a quote sent to a client. Accepting it produces a Facture and an
// OrdreTravail.
type Devis struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GarageID uint   `gorm:"not null;uniqueIndex:idx_devis_garage_numero" json:"garage_id"`
	Numero   string `gorm:"size:20;not null;uniqueIndex:idx_devis_garage_numero" json:"numero"`

	ClientID   uint      `gorm:"index;not null" json:"client_id"`
	Client     *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	VehiculeID *uint     `gorm:"index" json:"vehicule_id,omitempty"`
	Vehicule   *Vehicule `gorm:"foreignKey:VehiculeID" json:"vehicule,omitempty"`

	Status       DevisStatus `gorm:"size:20;not null;default:'brouillon'" json:"status"`
	DateDevis    time.Time   `gorm:"not null" json:"date_devis"`
	DateValidite *time.Time  `json:"date_validite,omitempty"`
	Notes        string      `gorm:"type:text" json:"notes,omitempty"`

	// Frozen totals, recomputed whenever items change.
	TotalHT  float64 `gorm:"type:decimal(12,2);not null;default:0" json:"total_ht"`
	TotalTVA float64 `gorm:"type:decimal(12,2);not null;default:0" json:"total_tva"`
	TotalTTC float64 `gorm:"type:decimal(12,2);not null;default:0" json:"total_ttc"`

	Items []DevisItem `gorm:"foreignKey:DevisID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (d *Devis) GetGarageID() uint   { return d.GarageID }
func (d *Devis) SetGarageID(id uint) { d.GarageID = id }

// CanEdit returns true while the quote has not been sent.
func (d *Devis) CanEdit() bool { return d.Status == DevisBrouillon }

// CanDecide reports whether the quote can still be accepted or refused.
func (d *Devis) CanDecide() bool {
	return d.Status == DevisBrouillon || d.Status == DevisEnvoye
}

// ComputeTotals recomputes the frozen totals from the items.
func (d *Devis) ComputeTotals() {
	var ht, tva float64
	for i := range d.Items {
		ht += d.Items[i].TotalHT()
		tva += d.Items[i].TotalVAT()
	}
	d.TotalHT = round2(ht)
	d.TotalTVA = round2(tva)
	d.TotalTTC = round2(ht + tva)
}

// EstimatedHours sums the estimated duration of the items backed by a service.
func (d *Devis) EstimatedHours() float64 {
	var h float64
	for _, it := range d.Items {
		if it.Service != nil {
			h += it.Service.DureeEstimee * it.Quantity
		}
	}
	return h
}

// DevisItem is a line of a quote.
type DevisItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DevisID   uint     `gorm:"index;not null" json:"devis_id"`
	ServiceID *uint    `gorm:"index" json:"service_id,omitempty"`
	Service   *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`

	Description string  `gorm:"size:500;not null" json:"description"`
	Quantity    float64 `gorm:"type:decimal(10,3);not null;default:1" json:"quantity"`
	UnitPrice   float64 `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	VATRate     float64 `gorm:"type:decimal(5,4);not null" json:"vat_rate"`
	Position    int     `gorm:"default:0" json:"position"`
}

// TotalHT calculates the line total excluding VAT.
func (item *DevisItem) TotalHT() float64 {
	return item.Quantity * item.UnitPrice
}

// TotalVAT calculates the VAT amount for this line.
func (item *DevisItem) TotalVAT() float64 {
	return item.TotalHT() * item.VATRate
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NextNumero returns the next "<prefix>-YYYY-NNNN" number for a garage.
// Soft-deleted rows are counted so numbers are never reused.
func NextNumero(tx *gorm.DB, model any, prefix string, garageID uint, year int) (string, error) {
	stem := fmt.Sprintf("%s-%d-", prefix, year)
	var count int64
	err := tx.Unscoped().Model(model).
		Where("garage_id = ? AND numero LIKE ?", garageID, stem+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", stem, count+1), nil
}

func (Devis) TableName() string { return "devis" }
