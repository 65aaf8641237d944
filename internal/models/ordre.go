package models

import (
	"time"

	"gorm.io/gorm"
)

// OrdreStatus is the work order lifecycle state.
type OrdreStatus string

const (
	OrdreEnAttente OrdreStatus = "en_attente"
	OrdreEnCours   OrdreStatus = "en_cours"
	OrdreTermine   OrdreStatus = "termine"
	OrdreSupprime  OrdreStatus = "supprime"
)

// OrdreStatuses lists every status in lifecycle order.
var OrdreStatuses = []OrdreStatus{OrdreEnAttente, OrdreEnCours, OrdreTermine, OrdreSupprime}

// IsTerminal reports whether no transition leaves the status.
func (s OrdreStatus) IsTerminal() bool {
	return s == OrdreTermine || s == OrdreSupprime
}

// OrdreTravail is a work order. Deletion only marks it supprime.
type OrdreTravail struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GarageID uint `gorm:"index;not null" json:"garage_id"`

	DevisID      *uint      `gorm:"index" json:"devis_id,omitempty"`
	Devis        *Devis     `gorm:"foreignKey:DevisID" json:"devis,omitempty"`
	VehiculeID   *uint      `gorm:"index" json:"vehicule_id,omitempty"`
	Vehicule     *Vehicule  `gorm:"foreignKey:VehiculeID" json:"vehicule,omitempty"`
	AtelierID    *uint      `gorm:"index" json:"atelier_id,omitempty"`
	Atelier      *Atelier   `gorm:"foreignKey:AtelierID" json:"atelier,omitempty"`
	MecanicienID *uint      `gorm:"index" json:"mecanicien_id,omitempty"`
	Mecanicien   *Garagiste `gorm:"foreignKey:MecanicienID" json:"mecanicien,omitempty"`

	Description    string      `gorm:"type:text;not null" json:"description"`
	Status         OrdreStatus `gorm:"size:20;not null;default:'en_attente';index" json:"status"`
	DatePrevue     *time.Time  `gorm:"index" json:"date_prevue,omitempty"`
	HeuresEstimees float64     `gorm:"type:decimal(6,2);not null;default:0" json:"heures_estimees"`
	DateDebut      *time.Time  `json:"date_debut,omitempty"`
	DateFin        *time.Time  `json:"date_fin,omitempty"`
}

func (o *OrdreTravail) GetGarageID() uint   { return o.GarageID }
func (o *OrdreTravail) SetGarageID(id uint) { o.GarageID = id }

// CanEdit reports whether the order's details may still change.
func (o *OrdreTravail) CanEdit() bool { return !o.Status.IsTerminal() }

// ordreTransitions is the work order state machine. en_cours cannot be
// deleted; termine and supprime are terminal.
var ordreTransitions = map[OrdreStatus][]OrdreStatus{
	OrdreEnAttente: {OrdreEnCours, OrdreSupprime},
	OrdreEnCours:   {OrdreTermine},
}

// CanTransition reports whether the order may move to next.
func (o *OrdreTravail) CanTransition(next OrdreStatus) bool {
	for _, s := range ordreTransitions[o.Status] {
		if s == next {
			return true
		}
	}
	return false
}

func (OrdreTravail) TableName() string { return "ordres_travail" }
