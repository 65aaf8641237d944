package models

import (
	"time"

	"gorm.io/gorm"
)

// FactureStatus represents the payment status of an invoice.
type FactureStatus string

const (
	FactureImpayee FactureStatus = "impayee"
	FacturePayee   FactureStatus = "payee"
	FactureAnnulee FactureStatus = "annulee"
)

// Facture is the invoice generated when a devis is accepted. Totals are
// copied from the devis at generation time.
type Facture struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GarageID uint   `gorm:"not null;uniqueIndex:idx_facture_garage_numero" json:"garage_id"`
	Numero   string `gorm:"size:20;not null;uniqueIndex:idx_facture_garage_numero" json:"numero"`

	DevisID  uint    `gorm:"uniqueIndex;not null" json:"devis_id"`
	Devis    *Devis  `gorm:"foreignKey:DevisID" json:"devis,omitempty"`
	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Status    FactureStatus `gorm:"size:20;not null;default:'impayee'" json:"status"`
	IssueDate time.Time     `gorm:"not null" json:"issue_date"`
	DueDate   time.Time     `gorm:"not null" json:"due_date"`
	PaidDate  *time.Time    `json:"paid_date,omitempty"`

	TotalHT  float64 `gorm:"type:decimal(12,2);not null" json:"total_ht"`
	TotalTVA float64 `gorm:"type:decimal(12,2);not null" json:"total_tva"`
	TotalTTC float64 `gorm:"type:decimal(12,2);not null" json:"total_ttc"`
}

func (f *Facture) GetGarageID() uint   { return f.GarageID }
func (f *Facture) SetGarageID(id uint) { f.GarageID = id }

// IsOpen reports whether the invoice can still be paid or cancelled.
func (f *Facture) IsOpen() bool { return f.Status == FactureImpayee }

// IsOverdue reports whether an unpaid invoice is past its due date.
func (f *Facture) IsOverdue(now time.Time) bool {
	return f.Status == FactureImpayee && now.After(f.DueDate)
}
