package policy

import (
	"context"
	"errors"
	"sort"

	"github.com/diewo77/garage-manager/gate"
	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"gorm.io/gorm"
)

// PermissionResolver computes a garagiste's effective permissions: its role's
// permissions merged with its individual grants.
// It implements gate.ProfileResolver for garagiste ids.
type PermissionResolver struct {
	DB *gorm.DB
}

func NewPermissionResolver(gdb *gorm.DB) *PermissionResolver {
	return &PermissionResolver{DB: gdb}
}

// Role returns the garagiste's role, NotFound("role_not_found") when none.
func (r *PermissionResolver) Role(ctx context.Context, garagisteID uint) (*models.Role, error) {
	var gr models.GaragisteRole
	err := r.DB.WithContext(ctx).Preload("Role").Where("garagiste_id = ?", garagisteID).First(&gr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && gr.Role == nil) {
		return nil, apperr.NotFound("role_not_found")
	}
	if err != nil {
		return nil, db.Translate(err, "", "load garagiste role")
	}
	return gr.Role, nil
}

// Effective returns the de-duplicated permissions sorted by id. A garagiste
// without a role has no permissions.
func (r *PermissionResolver) Effective(ctx context.Context, garagisteID uint) ([]models.Permission, error) {
	_, perms, err := r.effective(ctx, garagisteID)
	return perms, err
}

func (r *PermissionResolver) effective(ctx context.Context, garagisteID uint) (*models.Role, []models.Permission, error) {
	role, err := r.Role(ctx, garagisteID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, []models.Permission{}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	tx := r.DB.WithContext(ctx)
	var fromRole []models.Permission
	if err := tx.Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", role.ID).
		Find(&fromRole).Error; err != nil {
		return nil, nil, db.Translate(err, "", "load role permissions")
	}
	var granted []models.Permission
	if err := tx.Joins("JOIN garagiste_permissions ON garagiste_permissions.permission_id = permissions.id").
		Where("garagiste_permissions.garagiste_id = ?", garagisteID).
		Find(&granted).Error; err != nil {
		return nil, nil, db.Translate(err, "", "load individual permissions")
	}

	byID := make(map[uint]models.Permission, len(fromRole)+len(granted))
	for _, p := range append(fromRole, granted...) {
		byID[p.ID] = p
	}
	out := make([]models.Permission, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return role, out, nil
}

// Resolve builds the gate profile of a garagiste, named after its role code.
func (r *PermissionResolver) Resolve(ctx context.Context, garagisteID uint) (gate.Profile, error) {
	role, perms, err := r.effective(ctx, garagisteID)
	if err != nil {
		return nil, err
	}
	name := ""
	if role != nil {
		name = string(role.Code)
	}
	codes := make([]gate.Permission, len(perms))
	for i, p := range perms {
		codes[i] = gate.NewPermission(p.ResourceType, gate.Action(p.Action))
	}
	return gate.NewStaticProfile(name, codes...), nil
}
