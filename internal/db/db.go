// Package db opens the database, applies migrations and seeds reference data.
package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/config"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func gormConfig(debug bool) *gorm.Config {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		// garages.admin_id and garagistes.garage_id reference each other.
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// Open connects using the configured driver, retrying while postgres starts.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Driver == "sqlite" {
		logrus.WithField("path", cfg.SQLitePath).Info("opening sqlite database")
		return OpenSQLite(cfg.SQLitePath, cfg.Debug)
	}

	logrus.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"port":   cfg.Port,
		"dbname": cfg.DBName,
		"user":   cfg.User,
	}).Info("connecting to database")

	var gdb *gorm.DB
	var err error
	for i := 0; i < 5; i++ {
		gdb, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig(cfg.Debug))
		if err == nil {
			break
		}
		logrus.WithError(err).Warnf("database connection attempt %d/5 failed, retrying", i+1)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := setupJoinTables(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// OpenSQLite opens a sqlite database (file path or DSN).
func OpenSQLite(dsn string, debug bool) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), gormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := setupJoinTables(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

func setupJoinTables(gdb *gorm.DB) error {
	if err := gdb.SetupJoinTable(&models.Role{}, "Permissions", &models.RolePermission{}); err != nil {
		return fmt.Errorf("setup role_permissions: %w", err)
	}
	return nil
}

// Ping runs a trivial query.
func Ping(gdb *gorm.DB) error {
	return gdb.Exec("SELECT 1").Error
}

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// Translate maps a gorm error to the application taxonomy: missing records
// become NotFound, unique violations Conflict(conflictCode), anything else
// Internal.
func Translate(err error, conflictCode, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("not_found")
	case IsUniqueViolation(err):
		if conflictCode == "" {
			conflictCode = "already_exists"
		}
		return apperr.Conflict(conflictCode)
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err, "%s", op)
}
