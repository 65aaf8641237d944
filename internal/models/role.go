package models

import (
	"time"

	"gorm.io/gorm"
)

// RoleCode identifies a role. The constants below are the built-in kinds;
// administrators may add roles with other codes.
type RoleCode string

const (
	RoleSuperAdmin  RoleCode = "super_admin"
	RoleGarageAdmin RoleCode = "garage_admin"
	RoleEmployee    RoleCode = "employee"
	RoleMechanic    RoleCode = "mechanic"
)

// RoleCodes lists every role kind in display order.
var RoleCodes = []RoleCode{RoleSuperAdmin, RoleGarageAdmin, RoleEmployee, RoleMechanic}

// Valid reports whether c is one of the built-in kinds.
func (c RoleCode) Valid() bool {
	for _, k := range RoleCodes {
		if k == c {
			return true
		}
	}
	return false
}

// Role groups permissions. Garagistes hold at most one role.
type Role struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Code        RoleCode       `gorm:"uniqueIndex;size:50;not null" json:"code"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Description string         `gorm:"size:500" json:"description,omitempty"`
	IsSystem    bool           `gorm:"default:false" json:"is_system"`
	// Permissions is backed by the role_permissions join table (RolePermission).
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// Permission represents a single action allowed on a resource type.
// Format: "resource:action" (e.g., "devis:create", "ordre:update").
type Permission struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	ResourceType string         `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"resource_type"`
	Action       string         `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"action"`
	Description  string         `gorm:"size:200" json:"description,omitempty"`
}

// Code returns the permission in "resource:action" format for matching.
func (p Permission) Code() string {
	return p.ResourceType + ":" + p.Action
}

// RolePermission is the custom join table between roles and permissions.
type RolePermission struct {
	RoleID       uint `gorm:"primaryKey"`
	PermissionID uint `gorm:"primaryKey"`
	CreatedAt    time.Time
}

// GaragisteRole assigns a single role to a garagiste.
type GaragisteRole struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	GaragisteID uint      `gorm:"uniqueIndex;not null" json:"garagiste_id"`
	RoleID      uint      `gorm:"index;not null" json:"role_id"`
	Role        *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// GaragistePermission is an individual grant, additive to the role's permissions.
type GaragistePermission struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time   `json:"created_at"`
	GaragisteID  uint        `gorm:"not null;uniqueIndex:idx_garagiste_permission" json:"garagiste_id"`
	PermissionID uint        `gorm:"not null;uniqueIndex:idx_garagiste_permission" json:"permission_id"`
	Permission   *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
}
