package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/garage-manager/internal/models"
	"gorm.io/gorm"
)

var actionDescriptions = map[string]string{
	"*":      "All %s actions",
	"list":   "List %s",
	"view":   "View %s details",
	"create": "Create %s",
	"update": "Edit %s",
	"delete": "Delete %s",
}

var crudActions = []string{"*", "list", "view", "create", "update", "delete"}

// Seed initializes the database with required seed data.
// Should be called after Migrate. It is idempotent.
func Seed(gdb *gorm.DB) error {
	return SeedRoles(gdb)
}

// SeedPermissions creates the core permissions for the application.
func SeedPermissions(gdb *gorm.DB) error {
	type def struct{ resource, action, description string }
	defs := []def{{"*", "*", "Full system access"}}
	for _, res := range models.Resources {
		for _, act := range crudActions {
			defs = append(defs, def{res, act, fmt.Sprintf(actionDescriptions[act], res)})
		}
	}

	for _, p := range defs {
		perm := models.Permission{
			ResourceType: p.resource,
			Action:       p.action,
			Description:  p.description,
		}
		// Use FirstOrCreate to avoid duplicates
		result := gdb.Where("resource_type = ? AND action = ?", p.resource, p.action).
			FirstOrCreate(&perm)
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// SeedRoles creates the default system roles with their permissions. Roles
// that already exist are left untouched so edited permissions survive a
// restart.
func SeedRoles(gdb *gorm.DB) error {
	// First ensure permissions exist
	if err := SeedPermissions(gdb); err != nil {
		return err
	}

	for _, def := range models.DefaultRoles {
		var role models.Role
		err := gdb.Where("code = ?", def.Code).First(&role).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var perms []models.Permission
		for _, code := range def.Permissions {
			resource, action, ok := strings.Cut(code, ":")
			if !ok {
				continue
			}
			var perm models.Permission
			if err := gdb.Where("resource_type = ? AND action = ?", resource, action).First(&perm).Error; err == nil {
				perms = append(perms, perm)
			}
		}
		role = models.Role{
			Code:        def.Code,
			Name:        def.Name,
			Description: def.Description,
			IsSystem:    true,
			Permissions: perms,
		}
		if err := gdb.Create(&role).Error; err != nil {
			return err
		}
	}
	return nil
}
