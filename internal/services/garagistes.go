package services

import (
	"context"
	"errors"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/policy"
	"github.com/diewo77/garage-manager/internal/tenancy"
	"github.com/diewo77/garage-manager/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type GaragisteInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password,omitempty"`
	Role      string `json:"role,omitempty"`
}

func (in GaragisteInput) validate(v validation.Violations, creating bool) {
	validation.Required("first_name", in.FirstName, v)
	validation.Required("last_name", in.LastName, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Phone("phone", in.Phone, v)
	if creating && len(in.Password) < 8 {
		v.Add("password", "out_of_range")
	}
}

// GaragisteService manages a garage's staff, their role and individual grants.
type GaragisteService struct {
	db          *gorm.DB
	resolver    *policy.PermissionResolver
	cache       PermissionCache
	notifier    Notifier
	frontendURL string
}

func NewGaragisteService(gdb *gorm.DB, cache PermissionCache, notifier Notifier, frontendURL string) *GaragisteService {
	if cache == nil {
		cache = noopCache{}
	}
	return &GaragisteService{
		db:          gdb,
		resolver:    policy.NewPermissionResolver(gdb),
		cache:       cache,
		notifier:    notifier,
		frontendURL: frontendURL,
	}
}

func (s *GaragisteService) List(ctx context.Context, scope tenancy.Scope, limit, offset int) ([]models.Garagiste, error) {
	tx := scope.Apply(s.db.WithContext(ctx).Model(&models.Garagiste{}))
	if limit > 0 {
		tx = tx.Limit(limit).Offset(offset)
	}
	var out []models.Garagiste
	if err := tx.Order("id ASC").Find(&out).Error; err != nil {
		return nil, db.Translate(err, "", "list garagistes")
	}
	return out, nil
}

// Get loads a garagiste visible in scope; other garages' staff are NotFound.
func (s *GaragisteService) Get(ctx context.Context, scope tenancy.Scope, id uint) (*models.Garagiste, error) {
	var g models.Garagiste
	err := scope.Apply(s.db.WithContext(ctx)).Where("id = ?", id).First(&g).Error
	if err != nil {
		return nil, db.Translate(err, "", "load garagiste")
	}
	return &g, nil
}

// Create adds a garagiste to the scope's garage. The account must verify its
// email before logging in.
func (s *GaragisteService) Create(ctx context.Context, scope tenancy.Scope, in GaragisteInput) (*models.Garagiste, error) {
	gid, err := scope.WriteGarage()
	if err != nil {
		return nil, err
	}
	v := make(validation.Violations)
	in.validate(v, true)
	var code models.RoleCode
	if in.Role != "" {
		var ok bool
		if code, ok = policy.RoleCodeFor(in.Role); !ok || code == models.RoleSuperAdmin {
			v.Add("role", "invalid_value")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}
	g := &models.Garagiste{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       normalizeEmail(in.Email),
		Phone:       in.Phone,
		Password:    hash,
		GarageID:    &gid,
		IsActive:    true,
		VerifyToken: newToken(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkGaragisteEmail(tx, g.Email, 0); err != nil {
			return err
		}
		if err := tx.Omit("Garage").Create(g).Error; err != nil {
			return db.Translate(err, "email_taken", "create garagiste")
		}
		if code == "" {
			return nil
		}
		role, err := roleByCode(tx, code)
		if err != nil {
			return err
		}
		return db.Translate(tx.Create(&models.GaragisteRole{GaragisteID: g.ID, RoleID: role.ID}).Error, "", "assign role")
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"garage_id": gid, "garagiste_id": g.ID}).Info("garagiste created")
	notify("verification", logrus.Fields{"garagiste_id": g.ID}, func() error {
		return s.notifier.SendVerification(ctx, g.Email, g.FullName(), link(s.frontendURL, "/verify-email", g.VerifyToken))
	})
	return g, nil
}

// Update changes the garagiste's identity fields. The garage cannot change.
func (s *GaragisteService) Update(ctx context.Context, scope tenancy.Scope, id uint, in GaragisteInput) (*models.Garagiste, error) {
	v := make(validation.Violations)
	in.validate(v, false)
	if in.Password != "" && len(in.Password) < 8 {
		v.Add("password", "out_of_range")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	g, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	if err := checkGaragisteEmail(s.db.WithContext(ctx), email, g.ID); err != nil {
		return nil, err
	}
	updates := map[string]any{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"email":      email,
		"phone":      in.Phone,
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, apperr.Internal(err, "hash password")
		}
		updates["password"] = hash
	}
	if err := s.db.WithContext(ctx).Model(g).Updates(updates).Error; err != nil {
		return nil, db.Translate(err, "email_taken", "update garagiste")
	}
	return s.Get(ctx, scope, id)
}

// Delete soft-deletes a garagiste and drops its role and grants. Nobody can
// delete their own account.
func (s *GaragisteService) Delete(ctx context.Context, scope tenancy.Scope, actor auth.Principal, id uint) error {
	if actor.Kind == auth.KindGaragiste && actor.ID == id {
		return apperr.Conflict("cannot_delete_self")
	}
	g, err := s.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("garagiste_id = ?", g.ID).Delete(&models.GaragisteRole{}).Error; err != nil {
			return db.Translate(err, "", "drop role")
		}
		if err := tx.Where("garagiste_id = ?", g.ID).Delete(&models.GaragistePermission{}).Error; err != nil {
			return db.Translate(err, "", "drop grants")
		}
		return db.Translate(tx.Delete(g).Error, "", "delete garagiste")
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(g.ID)
	logrus.WithField("garagiste_id", g.ID).Info("garagiste deleted")
	return nil
}

// SetActive toggles a garagiste account across every garage.
func (s *GaragisteService) SetActive(ctx context.Context, id uint, active bool) (*models.Garagiste, error) {
	g, err := s.Get(ctx, tenancy.AllGarages(), id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(g).Update("is_active", active).Error; err != nil {
		return nil, db.Translate(err, "", "toggle garagiste")
	}
	g.IsActive = active
	s.cache.Invalidate(g.ID)
	logrus.WithFields(logrus.Fields{"garagiste_id": id, "active": active}).Info("garagiste activation changed")
	return g, nil
}

// Role returns the garagiste's role, NotFound("role_not_found") when it has none.
func (s *GaragisteService) Role(ctx context.Context, scope tenancy.Scope, id uint) (*models.Role, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	return s.resolver.Role(ctx, id)
}

// AssignRole gives the garagiste the role named by name, replacing any
// previous one. name may be a built-in kind, an alias or a custom role code.
// The super-admin role cannot be assigned to staff.
func (s *GaragisteService) AssignRole(ctx context.Context, scope tenancy.Scope, id uint, name string) (*models.Role, error) {
	code, ok := policy.RoleCodeFor(name)
	if !ok || code == models.RoleSuperAdmin {
		return nil, apperr.Validation("validation_failed", validation.Violations{"role": "invalid_value"})
	}
	g, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	var role *models.Role
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := roleByCode(tx, code)
		if err != nil {
			return err
		}
		role = r
		var gr models.GaragisteRole
		err = tx.Where("garagiste_id = ?", g.ID).First(&gr).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return db.Translate(tx.Create(&models.GaragisteRole{GaragisteID: g.ID, RoleID: role.ID}).Error, "", "assign role")
		case err != nil:
			return db.Translate(err, "", "load garagiste role")
		default:
			return db.Translate(tx.Model(&gr).Update("role_id", role.ID).Error, "", "change role")
		}
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(g.ID)
	logrus.WithFields(logrus.Fields{"garagiste_id": g.ID, "role": code}).Info("role assigned")
	return role, nil
}

// Permissions returns the effective permission set of a garagiste.
func (s *GaragisteService) Permissions(ctx context.Context, scope tenancy.Scope, id uint) ([]models.Permission, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	return s.resolver.Effective(ctx, id)
}

// Grant adds an individual permission on top of the garagiste's role.
func (s *GaragisteService) Grant(ctx context.Context, scope tenancy.Scope, id, permissionID uint) (*models.GaragistePermission, error) {
	g, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	var perm models.Permission
	if err := s.db.WithContext(ctx).First(&perm, permissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("permission_not_found")
		}
		return nil, db.Translate(err, "", "load permission")
	}
	grant := &models.GaragistePermission{GaragisteID: g.ID, PermissionID: perm.ID}
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		return nil, db.Translate(err, "permission_already_granted", "grant permission")
	}
	grant.Permission = &perm
	s.cache.Invalidate(g.ID)
	logrus.WithFields(logrus.Fields{"garagiste_id": g.ID, "permission": perm.Code()}).Info("permission granted")
	return grant, nil
}

// Revoke removes an individual grant. Role permissions are unaffected.
func (s *GaragisteService) Revoke(ctx context.Context, scope tenancy.Scope, id, permissionID uint) error {
	g, err := s.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("garagiste_id = ? AND permission_id = ?", g.ID, permissionID).
		Delete(&models.GaragistePermission{})
	if res.Error != nil {
		return db.Translate(res.Error, "", "revoke permission")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("grant_not_found")
	}
	s.cache.Invalidate(g.ID)
	logrus.WithFields(logrus.Fields{"garagiste_id": g.ID, "permission_id": permissionID}).Info("permission revoked")
	return nil
}
