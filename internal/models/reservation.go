package models

import (
	"time"

	"gorm.io/gorm"
)

// ReservationStatus is the booking lifecycle state.
type ReservationStatus string

const (
	ReservationEnAttente ReservationStatus = "en_attente"
	ReservationConfirmee ReservationStatus = "confirmee"
	ReservationAnnulee   ReservationStatus = "annulee"
	ReservationTerminee  ReservationStatus = "terminee"
)

// Reservation is an appointment request made by or for a client.
type Reservation struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GarageID uint `gorm:"index;not null" json:"garage_id"`

	ClientID   uint      `gorm:"index;not null" json:"client_id"`
	Client     *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	VehiculeID *uint     `gorm:"index" json:"vehicule_id,omitempty"`
	Vehicule   *Vehicule `gorm:"foreignKey:VehiculeID" json:"vehicule,omitempty"`
	ServiceID  *uint     `gorm:"index" json:"service_id,omitempty"`
	Service    *Service  `gorm:"foreignKey:ServiceID" json:"service,omitempty"`

	DateReservation time.Time         `gorm:"not null;index" json:"date_reservation"`
	Status          ReservationStatus `gorm:"size:20;not null;default:'en_attente'" json:"status"`
	Message         string            `gorm:"type:text" json:"message,omitempty"`
}

func (r *Reservation) GetGarageID() uint   { return r.GarageID }
func (r *Reservation) SetGarageID(id uint) { r.GarageID = id }

// reservationTransitions lists the allowed target statuses per status.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationEnAttente: {ReservationConfirmee, ReservationAnnulee},
	ReservationConfirmee: {ReservationTerminee, ReservationAnnulee},
}

// CanTransition reports whether the reservation may move to next.
func (r *Reservation) CanTransition(next ReservationStatus) bool {
	for _, s := range reservationTransitions[r.Status] {
		if s == next {
			return true
		}
	}
	return false
}
