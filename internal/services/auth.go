package services

import (
	"context"
	"errors"
	"time"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/policy"
	"github.com/diewo77/garage-manager/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

// Token is returned by every login.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Kind      auth.Kind `json:"kind"`
}

type AuthService struct {
	db          *gorm.DB
	issuer      *auth.Issuer
	notifier    Notifier
	frontendURL string
	now         Clock
}

func NewAuthService(gdb *gorm.DB, issuer *auth.Issuer, notifier Notifier, frontendURL string) *AuthService {
	return &AuthService{db: gdb, issuer: issuer, notifier: notifier, frontendURL: frontendURL, now: time.Now}
}

func (s *AuthService) token(kind auth.Kind, id uint, garageID *uint) (*Token, error) {
	tok, exp, err := s.issuer.Issue(kind, id, garageID)
	if err != nil {
		return nil, apperr.Internal(err, "issue %s token", kind)
	}
	return &Token{Token: tok, ExpiresAt: exp, Kind: kind}, nil
}

func invalidCredentials() error { return apperr.Unauthorized("invalid_credentials") }

// LoginSuperAdmin authenticates a platform super-admin.
func (s *AuthService) LoginSuperAdmin(ctx context.Context, email, password string) (*Token, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, db.Translate(err, "", "load user")
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, invalidCredentials()
	}
	if !u.IsActive {
		return nil, apperr.Forbidden("account_inactive")
	}
	if !u.IsSuperAdmin {
		return nil, apperr.Forbidden("super_admin_required")
	}
	return s.token(auth.KindSuperAdmin, u.ID, nil)
}

// LoginGaragiste authenticates staff. A deactivated garage blocks every one
// of its garagistes even when their own account is active.
func (s *AuthService) LoginGaragiste(ctx context.Context, email, password string) (*Token, error) {
	var g models.Garagiste
	err := s.db.WithContext(ctx).Preload("Garage").Where("email = ?", normalizeEmail(email)).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, db.Translate(err, "", "load garagiste")
	}
	if !auth.CheckPassword(g.Password, password) {
		return nil, invalidCredentials()
	}
	if err := policy.CheckGaragisteAccess(&g); err != nil {
		logrus.WithFields(logrus.Fields{"garagiste_id": g.ID, "reason": apperr.As(err).Code}).Info("garagiste login refused")
		return nil, err
	}
	return s.token(auth.KindGaragiste, g.ID, g.GarageID)
}

// LoginClient authenticates a client having a self-service password.
func (s *AuthService) LoginClient(ctx context.Context, email, password string) (*Token, error) {
	var c models.Client
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, db.Translate(err, "", "load client")
	}
	if !auth.CheckPassword(c.Password, password) {
		return nil, invalidCredentials()
	}
	if !c.IsActive {
		return nil, apperr.Forbidden("account_inactive")
	}
	gid := c.GarageID
	return s.token(auth.KindClient, c.ID, &gid)
}

type RegisterClientInput struct {
	GarageID  uint   `json:"garage_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// RegisterClient creates a self-service client account in an active garage.
func (s *AuthService) RegisterClient(ctx context.Context, in RegisterClientInput) (*models.Client, *Token, error) {
	v := make(validation.Violations)
	validation.RequiredID("garage_id", in.GarageID, v)
	validation.Required("first_name", in.FirstName, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Phone("phone", in.Phone, v)
	if len(in.Password) < 8 {
		v.Add("password", "out_of_range")
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	var garage models.Garage
	if err := s.db.WithContext(ctx).First(&garage, in.GarageID).Error; err != nil {
		return nil, nil, db.Translate(err, "", "load garage")
	}
	if !garage.IsActive {
		return nil, nil, apperr.Forbidden("garage_inactive")
	}

	email := normalizeEmail(in.Email)
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, nil, db.Translate(err, "", "check client email")
	}
	if n > 0 {
		return nil, nil, apperr.Conflict("email_taken")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, nil, apperr.Internal(err, "hash password")
	}
	c := &models.Client{
		GarageID:  garage.ID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     &email,
		Phone:     in.Phone,
		Password:  hash,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, nil, db.Translate(err, "email_taken", "create client")
	}
	tok, err := s.token(auth.KindClient, c.ID, &c.GarageID)
	if err != nil {
		return nil, nil, err
	}
	return c, tok, nil
}

// VerifyEmail marks the garagiste owning token as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperr.Validation("validation_failed", validation.Violations{"token": "required"})
	}
	var g models.Garagiste
	if err := s.db.WithContext(ctx).Where("verify_token = ?", token).First(&g).Error; err != nil {
		return db.Translate(err, "", "load garagiste by token")
	}
	err := s.db.WithContext(ctx).Model(&g).Updates(map[string]any{"is_verified": true, "verify_token": ""}).Error
	if err != nil {
		return db.Translate(err, "", "verify garagiste")
	}
	logrus.WithField("garagiste_id", g.ID).Info("garagiste email verified")
	return nil
}

// ForgotPassword issues a reset token. Unknown emails succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	var g models.Garagiste
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return db.Translate(err, "", "load garagiste")
	}
	token := newToken()
	expiry := s.now().Add(resetTokenTTL)
	if err := s.db.WithContext(ctx).Model(&g).Updates(map[string]any{"reset_token": token, "reset_token_expiry": expiry}).Error; err != nil {
		return db.Translate(err, "", "store reset token")
	}
	notify("password reset", logrus.Fields{"garagiste_id": g.ID}, func() error {
		return s.notifier.SendPasswordReset(ctx, g.Email, g.FullName(), link(s.frontendURL, "/reset-password", token))
	})
	return nil
}

// ResetPassword sets a new password when token is valid and not expired.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	v := make(validation.Violations)
	validation.Required("token", token, v)
	if len(password) < 8 {
		v.Add("password", "out_of_range")
	}
	if err := v.Err(); err != nil {
		return err
	}
	var g models.Garagiste
	err := s.db.WithContext(ctx).Where("reset_token = ?", token).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Validation("reset_token_expired", nil)
	}
	if err != nil {
		return db.Translate(err, "", "load garagiste by reset token")
	}
	if g.ResetTokenExpiry == nil || s.now().After(*g.ResetTokenExpiry) {
		return apperr.Validation("reset_token_expired", nil)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Internal(err, "hash password")
	}
	err = s.db.WithContext(ctx).Model(&g).Updates(map[string]any{
		"password":           hash,
		"reset_token":        "",
		"reset_token_expiry": nil,
	}).Error
	if err != nil {
		return db.Translate(err, "", "reset password")
	}
	logrus.WithField("garagiste_id", g.ID).Info("password reset")
	return nil
}
