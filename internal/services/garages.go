package services

import (
	"context"
	"errors"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GarageInput struct {
	Name            string            `json:"name"`
	Address         string            `json:"address"`
	City            string            `json:"city"`
	Phone           string            `json:"phone"`
	Email           string            `json:"email"`
	MatriculeFiscal string            `json:"matricule_fiscal"`
	Horaires        datatypes.JSONMap `json:"horaires"`
}

func (in GarageInput) validate(v validation.Violations) {
	validation.Required("name", in.Name, v)
	validation.Required("matricule_fiscal", in.MatriculeFiscal, v)
	validation.Email("email", in.Email, v)
	validation.Phone("phone", in.Phone, v)
}

type AdminInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// CreateGarageInput creates a garage together with its founding admin.
type CreateGarageInput struct {
	Garage GarageInput `json:"garage"`
	Admin  AdminInput  `json:"admin"`
}

type GarageService struct {
	db          *gorm.DB
	notifier    Notifier
	frontendURL string
}

func NewGarageService(gdb *gorm.DB, notifier Notifier, frontendURL string) *GarageService {
	return &GarageService{db: gdb, notifier: notifier, frontendURL: frontendURL}
}

type GarageFilter struct {
	Search string
	Active *bool
	Limit  int
	Offset int
}

func (s *GarageService) List(ctx context.Context, f GarageFilter) ([]models.Garage, error) {
	tx := s.db.WithContext(ctx).Model(&models.Garage{})
	if f.Search != "" {
		like := "%" + f.Search + "%"
		tx = tx.Where("name LIKE ? OR city LIKE ?", like, like)
	}
	if f.Active != nil {
		tx = tx.Where("is_active = ?", *f.Active)
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit).Offset(f.Offset)
	}
	var out []models.Garage
	if err := tx.Order("id ASC").Find(&out).Error; err != nil {
		return nil, db.Translate(err, "", "list garages")
	}
	return out, nil
}

func (s *GarageService) Get(ctx context.Context, id uint) (*models.Garage, error) {
	var g models.Garage
	if err := s.db.WithContext(ctx).Preload("Admin").First(&g, id).Error; err != nil {
		return nil, db.Translate(err, "", "load garage")
	}
	return &g, nil
}

func checkFiscalID(tx *gorm.DB, matricule string, exceptID uint) error {
	var n int64
	q := tx.Model(&models.Garage{}).Where("matricule_fiscal = ?", matricule)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return db.Translate(err, "", "check matricule fiscal")
	}
	if n > 0 {
		return apperr.Conflict("fiscal_id_taken")
	}
	return nil
}

func checkGaragisteEmail(tx *gorm.DB, email string, exceptID uint) error {
	var n int64
	q := tx.Model(&models.Garagiste{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return db.Translate(err, "", "check garagiste email")
	}
	if n > 0 {
		return apperr.Conflict("email_taken")
	}
	return nil
}

func roleByCode(tx *gorm.DB, code models.RoleCode) (*models.Role, error) {
	var r models.Role
	if err := tx.Where("code = ?", code).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("role_not_found")
		}
		return nil, db.Translate(err, "", "load role")
	}
	return &r, nil
}

// CreateWithAdmin creates the admin garagiste, the garage, links them and
// assigns the garage_admin role in one transaction. The verification email
// is sent after commit; its failure is only logged.
func (s *GarageService) CreateWithAdmin(ctx context.Context, in CreateGarageInput) (*models.Garage, *models.Garagiste, error) {
	v := make(validation.Violations)
	in.Garage.validate(v)
	validation.Required("admin.first_name", in.Admin.FirstName, v)
	validation.Required("admin.last_name", in.Admin.LastName, v)
	validation.Required("admin.email", in.Admin.Email, v)
	validation.Email("admin.email", in.Admin.Email, v)
	validation.Phone("admin.phone", in.Admin.Phone, v)
	if len(in.Admin.Password) < 8 {
		v.Add("admin.password", "out_of_range")
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}
	hash, err := auth.HashPassword(in.Admin.Password)
	if err != nil {
		return nil, nil, apperr.Internal(err, "hash password")
	}

	email := normalizeEmail(in.Admin.Email)
	admin := &models.Garagiste{
		FirstName:   in.Admin.FirstName,
		LastName:    in.Admin.LastName,
		Email:       email,
		Phone:       in.Admin.Phone,
		Password:    hash,
		IsActive:    true,
		VerifyToken: newToken(),
	}
	garage := &models.Garage{
		Name:            in.Garage.Name,
		Address:         in.Garage.Address,
		City:            in.Garage.City,
		Phone:           in.Garage.Phone,
		Email:           in.Garage.Email,
		MatriculeFiscal: in.Garage.MatriculeFiscal,
		Horaires:        in.Garage.Horaires,
		IsActive:        true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkGaragisteEmail(tx, email, 0); err != nil {
			return err
		}
		if err := checkFiscalID(tx, garage.MatriculeFiscal, 0); err != nil {
			return err
		}
		if err := tx.Create(admin).Error; err != nil {
			return db.Translate(err, "email_taken", "create garage admin")
		}
		garage.AdminID = &admin.ID
		if err := tx.Omit("Admin").Create(garage).Error; err != nil {
			return db.Translate(err, "fiscal_id_taken", "create garage")
		}
		if err := tx.Model(admin).Update("garage_id", garage.ID).Error; err != nil {
			return db.Translate(err, "", "link admin to garage")
		}
		admin.GarageID = &garage.ID
		role, err := roleByCode(tx, models.RoleGarageAdmin)
		if err != nil {
			return err
		}
		if err := tx.Create(&models.GaragisteRole{GaragisteID: admin.ID, RoleID: role.ID}).Error; err != nil {
			return db.Translate(err, "", "assign garage admin role")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{"garage_id": garage.ID, "garagiste_id": admin.ID}).Info("garage created")
	notify("verification", logrus.Fields{"garagiste_id": admin.ID}, func() error {
		return s.notifier.SendVerification(ctx, admin.Email, admin.FullName(), link(s.frontendURL, "/verify-email", admin.VerifyToken))
	})
	return garage, admin, nil
}

// Update changes the garage details.
func (s *GarageService) Update(ctx context.Context, id uint, in GarageInput) (*models.Garage, error) {
	v := make(validation.Violations)
	in.validate(v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkFiscalID(s.db.WithContext(ctx), in.MatriculeFiscal, id); err != nil {
		return nil, err
	}
	updates := map[string]any{
		"name":             in.Name,
		"address":          in.Address,
		"city":             in.City,
		"phone":            in.Phone,
		"email":            in.Email,
		"matricule_fiscal": in.MatriculeFiscal,
	}
	if in.Horaires != nil {
		updates["horaires"] = in.Horaires
	}
	if err := s.db.WithContext(ctx).Model(g).Updates(updates).Error; err != nil {
		return nil, db.Translate(err, "fiscal_id_taken", "update garage")
	}
	return s.Get(ctx, id)
}

// SetActive toggles a garage. Deactivation blocks every staff login.
func (s *GarageService) SetActive(ctx context.Context, id uint, active bool) (*models.Garage, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(g).Update("is_active", active).Error; err != nil {
		return nil, db.Translate(err, "", "toggle garage")
	}
	g.IsActive = active
	logrus.WithFields(logrus.Fields{"garage_id": id, "active": active}).Info("garage activation changed")
	return g, nil
}

// Delete soft-deletes the garage; its staff can no longer log in.
func (s *GarageService) Delete(ctx context.Context, id uint) error {
	g, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(g).Error; err != nil {
		return db.Translate(err, "", "delete garage")
	}
	logrus.WithField("garage_id", id).Info("garage deleted")
	return nil
}
