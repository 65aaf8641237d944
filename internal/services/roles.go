package services

import (
	"context"

	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/policy"
	"github.com/diewo77/garage-manager/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RoleInput struct {
	Code          models.RoleCode `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	PermissionIDs []uint          `json:"permission_ids"`
}

// RoleService manages roles and their permissions.
type RoleService struct {
	db    *gorm.DB
	cache PermissionCache
}

func NewRoleService(gdb *gorm.DB, cache PermissionCache) *RoleService {
	if cache == nil {
		cache = noopCache{}
	}
	return &RoleService{db: gdb, cache: cache}
}

func (s *RoleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("id ASC").Find(&out).Error; err != nil {
		return nil, db.Translate(err, "", "list roles")
	}
	return out, nil
}

func (s *RoleService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var out []models.Permission
	if err := s.db.WithContext(ctx).Order("resource_type ASC, action ASC").Find(&out).Error; err != nil {
		return nil, db.Translate(err, "", "list permissions")
	}
	return out, nil
}

func (s *RoleService) loadPermissions(tx *gorm.DB, ids []uint) ([]models.Permission, error) {
	if len(ids) == 0 {
		return []models.Permission{}, nil
	}
	var perms []models.Permission
	if err := tx.Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return nil, db.Translate(err, "", "load permissions")
	}
	if len(perms) != len(dedupe(ids)) {
		return nil, apperr.NotFound("permission_not_found")
	}
	return perms, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// CreateRole adds a custom role. The code is normalised to a lowercase slug
// and must not be taken, built-in kinds included.
func (s *RoleService) CreateRole(ctx context.Context, in RoleInput) (*models.Role, error) {
	v := make(validation.Violations)
	code, ok := policy.RoleCodeFor(string(in.Code))
	if !ok {
		v.Add("code", "invalid_value")
	}
	in.Code = code
	validation.Required("name", in.Name, v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	role := &models.Role{Code: in.Code, Name: in.Name, Description: in.Description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms, err := s.loadPermissions(tx, in.PermissionIDs)
		if err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Role{}).Where("code = ?", in.Code).Count(&n).Error; err != nil {
			return db.Translate(err, "", "check role code")
		}
		if n > 0 {
			return apperr.Conflict("role_code_taken")
		}
		role.Permissions = perms
		return db.Translate(tx.Create(role).Error, "role_code_taken", "create role")
	})
	if err != nil {
		return nil, err
	}
	logrus.WithField("role", role.Code).Info("role created")
	return role, nil
}

// SetPermissions replaces the permissions of a role and drops every cached
// profile.
func (s *RoleService) SetPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*models.Role, error) {
	var role models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, roleID).Error; err != nil {
			return db.Translate(err, "", "load role")
		}
		perms, err := s.loadPermissions(tx, permissionIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return db.Translate(err, "", "replace role permissions")
		}
		role.Permissions = perms
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateAll()
	logrus.WithFields(logrus.Fields{"role": role.Code, "permissions": len(role.Permissions)}).Info("role permissions replaced")
	return &role, nil
}
