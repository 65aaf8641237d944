package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a platform account. Users with IsSuperAdmin manage every garage.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string         `gorm:"size:255" json:"name,omitempty"`
	Password     string         `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	IsSuperAdmin bool           `gorm:"default:false;index" json:"is_super_admin"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
}
