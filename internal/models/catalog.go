package models

import (
	"time"

	"gorm.io/gorm"
)

// Service is a catalogue entry of the garage (prestation).
type Service struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GarageID uint `gorm:"index;not null" json:"garage_id"`

	Name         string  `gorm:"size:255;not null" json:"name"`
	Description  string  `gorm:"type:text" json:"description,omitempty"`
	Prix         float64 `gorm:"type:decimal(10,2);not null" json:"prix"`
	TauxTVA      float64 `gorm:"type:decimal(5,4);not null" json:"taux_tva"`
	DureeEstimee float64 `gorm:"type:decimal(6,2)" json:"duree_estimee"` // hours
	IsActive     bool    `json:"is_active"`
}

func (s *Service) GetGarageID() uint   { return s.GarageID }
func (s *Service) SetGarageID(id uint) { s.GarageID = id }

// PrixTTC returns the price including VAT.
func (s *Service) PrixTTC() float64 {
	return s.Prix * (1 + s.TauxTVA)
}

// Atelier is a workshop bay where work orders are scheduled.
type Atelier struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GarageID uint `gorm:"index;not null" json:"garage_id"`

	Name        string  `gorm:"size:255;not null" json:"name"`
	Description string  `gorm:"size:500" json:"description,omitempty"`
	Capacite    int     `gorm:"not null;default:1" json:"capacite"`
	HeuresJour  float64 `gorm:"type:decimal(4,2);not null;default:8" json:"heures_jour"`
}

func (a *Atelier) GetGarageID() uint   { return a.GarageID }
func (a *Atelier) SetGarageID(id uint) { a.GarageID = id }

// CapaciteJour is the number of work hours the atelier can absorb per day.
func (a *Atelier) CapaciteJour() float64 {
	return float64(a.Capacite) * a.HeuresJour
}
