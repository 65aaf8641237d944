package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Client is a garage customer. A client with a password may log in to the
// self-service API.
type Client struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GarageID uint `gorm:"index;not null" json:"garage_id"`

	FirstName  string  `gorm:"size:100;not null" json:"first_name"`
	LastName   string  `gorm:"size:100" json:"last_name,omitempty"`
	Email      *string `gorm:"uniqueIndex;size:255" json:"email,omitempty"`
	Phone      string  `gorm:"size:50" json:"phone,omitempty"`
	Address    string  `gorm:"size:500" json:"address,omitempty"`
	City       string  `gorm:"size:100" json:"city,omitempty"`
	PostalCode string  `gorm:"size:20" json:"postal_code,omitempty"`
	Password   string  `gorm:"size:255" json:"-"`
	IsActive   bool    `gorm:"default:true" json:"is_active"`

	Vehicules []Vehicule `gorm:"foreignKey:ClientID" json:"vehicules,omitempty"`
}

func (c *Client) GetGarageID() uint   { return c.GarageID }
func (c *Client) SetGarageID(id uint) { c.GarageID = id }

func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// EmailValue returns the email or an empty string.
func (c *Client) EmailValue() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// Vehicule belongs to a client of the same garage.
type Vehicule struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GarageID uint    `gorm:"not null;uniqueIndex:idx_vehicule_garage_immat" json:"garage_id"`
	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Immatriculation string `gorm:"size:20;not null;uniqueIndex:idx_vehicule_garage_immat" json:"immatriculation"`
	Marque          string `gorm:"size:100;not null" json:"marque"`
	Modele          string `gorm:"size:100" json:"modele,omitempty"`
	Annee           int    `json:"annee,omitempty"`
	Kilometrage     int    `json:"kilometrage,omitempty"`
	VIN             string `gorm:"size:17" json:"vin,omitempty"`
}

func (v *Vehicule) GetGarageID() uint   { return v.GarageID }
func (v *Vehicule) SetGarageID(id uint) { v.GarageID = id }

// NormalizeImmatriculation upper-cases and strips spaces and dashes.
func NormalizeImmatriculation(s string) string {
	r := strings.NewReplacer(" ", "", "-", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(s)))
}
