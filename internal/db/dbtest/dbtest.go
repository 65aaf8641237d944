// Package dbtest provides a migrated and seeded in-memory sqlite database
// plus fixture helpers for tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password is the clear-text password of every fixture account.
const Password = "password123"

var passwordHash string

func init() {
	h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	passwordHash = string(h)
}

// Open returns a fresh database private to the test. A single connection is
// used so concurrent tests exercise serialized writes against one database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := db.OpenSQLite(dsn, false)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Seed(gdb); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return gdb
}

func mustCreate(t testing.TB, gdb *gorm.DB, v any) {
	t.Helper()
	if err := gdb.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

// Garage creates an active garage.
func Garage(t testing.TB, gdb *gorm.DB, name string) *models.Garage {
	t.Helper()
	g := &models.Garage{Name: name, City: "Tunis", MatriculeFiscal: "MF-" + uuid.NewString()[:8], IsActive: true}
	mustCreate(t, gdb, g)
	return g
}

// Role loads a seeded role by code.
func Role(t testing.TB, gdb *gorm.DB, code models.RoleCode) *models.Role {
	t.Helper()
	var r models.Role
	if err := gdb.Where("code = ?", code).First(&r).Error; err != nil {
		t.Fatalf("role %s: %v", code, err)
	}
	return &r
}

// Permission loads a seeded permission by resource and action.
func Permission(t testing.TB, gdb *gorm.DB, resource, action string) *models.Permission {
	t.Helper()
	var p models.Permission
	if err := gdb.Where("resource_type = ? AND action = ?", resource, action).First(&p).Error; err != nil {
		t.Fatalf("permission %s:%s: %v", resource, action, err)
	}
	return &p
}

// Garagiste creates a verified, active garagiste. garageID may be nil and
// role may be empty for no role.
func Garagiste(t testing.TB, gdb *gorm.DB, garageID *uint, email string, role models.RoleCode) *models.Garagiste {
	t.Helper()
	g := &models.Garagiste{
		FirstName:  "Test",
		LastName:   email,
		Email:      email,
		Password:   passwordHash,
		GarageID:   garageID,
		IsVerified: true,
		IsActive:   true,
	}
	mustCreate(t, gdb, g)
	if role != "" {
		r := Role(t, gdb, role)
		mustCreate(t, gdb, &models.GaragisteRole{GaragisteID: g.ID, RoleID: r.ID})
	}
	return g
}

// SuperAdmin creates a super-admin user.
func SuperAdmin(t testing.TB, gdb *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: "Admin", Password: passwordHash, IsSuperAdmin: true, IsActive: true}
	mustCreate(t, gdb, u)
	return u
}

// Client creates a client of the garage able to log in.
func Client(t testing.TB, gdb *gorm.DB, garageID uint, email string) *models.Client {
	t.Helper()
	c := &models.Client{GarageID: garageID, FirstName: "Client", LastName: email, Password: passwordHash, IsActive: true}
	if email != "" {
		c.Email = &email
	}
	mustCreate(t, gdb, c)
	return c
}

// Vehicule creates a vehicle for the client.
func Vehicule(t testing.TB, gdb *gorm.DB, garageID, clientID uint, immat string) *models.Vehicule {
	t.Helper()
	v := &models.Vehicule{GarageID: garageID, ClientID: clientID, Immatriculation: immat, Marque: "Peugeot", Modele: "208"}
	mustCreate(t, gdb, v)
	return v
}

// Atelier creates a workshop.
func Atelier(t testing.TB, gdb *gorm.DB, garageID uint, name string) *models.Atelier {
	t.Helper()
	a := &models.Atelier{GarageID: garageID, Name: name, Capacite: 2, HeuresJour: 8}
	mustCreate(t, gdb, a)
	return a
}

// Ordre creates a work order in the given status.
func Ordre(t testing.TB, gdb *gorm.DB, garageID uint, status models.OrdreStatus) *models.OrdreTravail {
	t.Helper()
	o := &models.OrdreTravail{GarageID: garageID, Description: "Révision", Status: status, HeuresEstimees: 2}
	mustCreate(t, gdb, o)
	return o
}
