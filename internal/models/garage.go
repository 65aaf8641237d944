package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Garage is the tenant boundary. Deactivating it blocks every staff login.
type Garage struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"-"`
	Name            string            `gorm:"size:255;not null" json:"name"`
	Address         string            `gorm:"size:500" json:"address,omitempty"`
	City            string            `gorm:"size:100" json:"city,omitempty"`
	Phone           string            `gorm:"size:50" json:"phone,omitempty"`
	Email           string            `gorm:"size:255" json:"email,omitempty"`
	MatriculeFiscal string            `gorm:"size:50;uniqueIndex;not null" json:"matricule_fiscal"`
	Horaires        datatypes.JSONMap `json:"horaires,omitempty"`
	IsActive        bool              `gorm:"default:true" json:"is_active"`

	// AdminID is the founding admin created together with the garage.
	// Current admins are the garagistes holding the garage_admin role.
	AdminID *uint      `gorm:"index" json:"admin_id,omitempty"`
	Admin   *Garagiste `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
}

// Garagiste is a staff member of a garage.
type Garagiste struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	FirstName        string         `gorm:"size:100;not null" json:"first_name"`
	LastName         string         `gorm:"size:100;not null" json:"last_name"`
	Email            string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone            string         `gorm:"size:50" json:"phone,omitempty"`
	Password         string         `gorm:"size:255;not null" json:"-"`
	GarageID         *uint          `gorm:"index" json:"garage_id"`
	Garage           *Garage        `gorm:"foreignKey:GarageID" json:"garage,omitempty"`
	IsVerified       bool           `gorm:"default:false" json:"is_verified"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	VerifyToken      string         `gorm:"size:64;index" json:"-"`
	ResetToken       string         `gorm:"size:64;index" json:"-"`
	ResetTokenExpiry *time.Time     `json:"-"`
}

func (g *Garagiste) FullName() string {
	if g.LastName == "" {
		return g.FirstName
	}
	return g.FirstName + " " + g.LastName
}
