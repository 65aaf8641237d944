package services

import (
	"context"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserInput struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Password     string `json:"password"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// AdminService manages the platform users and the super-admin flag.
type AdminService struct {
	db *gorm.DB
}

func NewAdminService(gdb *gorm.DB) *AdminService {
	return &AdminService{db: gdb}
}

func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	tx := s.db.WithContext(ctx).Order("id ASC")
	if limit > 0 {
		tx = tx.Limit(limit).Offset(offset)
	}
	var out []models.User
	if err := tx.Find(&out).Error; err != nil {
		return nil, db.Translate(err, "", "list users")
	}
	return out, nil
}

func (s *AdminService) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	v := make(validation.Violations)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("name", in.Name, v)
	if len(in.Password) < 8 {
		v.Add("password", "out_of_range")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}
	u := &models.User{
		Email:        normalizeEmail(in.Email),
		Name:         in.Name,
		Password:     hash,
		IsSuperAdmin: in.IsSuperAdmin,
		IsActive:     true,
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
		return nil, db.Translate(err, "", "check user email")
	}
	if n > 0 {
		return nil, apperr.Conflict("email_taken")
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, db.Translate(err, "email_taken", "create user")
	}
	logrus.WithFields(logrus.Fields{"user_id": u.ID, "super_admin": u.IsSuperAdmin}).Info("user created")
	return u, nil
}

// CreateSuperAdmin bootstraps a super-admin account.
func (s *AdminService) CreateSuperAdmin(ctx context.Context, email, name, password string) (*models.User, error) {
	return s.CreateUser(ctx, UserInput{Email: email, Name: name, Password: password, IsSuperAdmin: true})
}

func (s *AdminService) setSuperAdmin(ctx context.Context, id uint, on bool) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Demotions lock all super-admin rows in id order before the target.
		var admins []models.User
		if !on {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("is_super_admin = ?", true).Order("id ASC").Find(&admins).Error; err != nil {
				return db.Translate(err, "", "lock super admins")
			}
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error; err != nil {
			return db.Translate(err, "", "load user")
		}
		if u.IsSuperAdmin == on {
			return nil
		}
		if !on && len(admins) <= 1 {
			return apperr.Conflict("last_super_admin")
		}
		if err := tx.Model(&u).Update("is_super_admin", on).Error; err != nil {
			return db.Translate(err, "", "update super admin flag")
		}
		u.IsSuperAdmin = on
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": id, "super_admin": on}).Info("super admin flag changed")
	return &u, nil
}

// Promote grants the super-admin flag.
func (s *AdminService) Promote(ctx context.Context, id uint) (*models.User, error) {
	return s.setSuperAdmin(ctx, id, true)
}

// Demote removes the super-admin flag. The last super-admin cannot be
// demoted.
func (s *AdminService) Demote(ctx context.Context, id uint) (*models.User, error) {
	return s.setSuperAdmin(ctx, id, false)
}
