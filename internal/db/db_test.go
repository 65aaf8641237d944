package db_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/db/dbtest"
	"github.com/diewo77/garage-manager/internal/models"
	"gorm.io/gorm"
)

func TestSeedIdempotent(t *testing.T) {
	gdb := dbtest.Open(t)
	var before int64
	gdb.Model(&models.Permission{}).Count(&before)
	if err := db.Seed(gdb); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	var after, roles int64
	gdb.Model(&models.Permission{}).Count(&after)
	gdb.Model(&models.Role{}).Count(&roles)
	if before != after {
		t.Fatalf("permissions duplicated: %d -> %d", before, after)
	}
	if roles != int64(len(models.DefaultRoles)) {
		t.Fatalf("expected %d roles got %d", len(models.DefaultRoles), roles)
	}
	// 1 global wildcard + 6 actions per resource
	if want := int64(1 + 6*len(models.Resources)); after != want {
		t.Fatalf("expected %d permissions got %d", want, after)
	}
}

func TestSeedRolePermissions(t *testing.T) {
	gdb := dbtest.Open(t)
	for _, def := range models.DefaultRoles {
		var role models.Role
		if err := gdb.Preload("Permissions").Where("code = ?", def.Code).First(&role).Error; err != nil {
			t.Fatalf("load role %s: %v", def.Code, err)
		}
		if len(role.Permissions) != len(def.Permissions) {
			t.Errorf("%s: expected %d permissions got %d", def.Code, len(def.Permissions), len(role.Permissions))
		}
		if !role.IsSystem {
			t.Errorf("%s should be a system role", def.Code)
		}
	}
	var joins int64
	gdb.Model(&models.RolePermission{}).Count(&joins)
	if joins == 0 {
		t.Fatal("role_permissions join table is empty")
	}
}

func TestSeedKeepsEditedRolePermissions(t *testing.T) {
	gdb := dbtest.Open(t)
	mech := dbtest.Role(t, gdb, models.RoleMechanic)
	view := dbtest.Permission(t, gdb, models.ResourceFacture, "view")
	if err := gdb.Model(mech).Association("Permissions").Replace([]models.Permission{*view}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := db.Seed(gdb); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	var role models.Role
	if err := gdb.Preload("Permissions").First(&role, mech.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(role.Permissions) != 1 || role.Permissions[0].ID != view.ID {
		t.Fatalf("edited permissions overwritten: %+v", role.Permissions)
	}
}

func TestTranslate(t *testing.T) {
	gdb := dbtest.Open(t)
	g := dbtest.Garage(t, gdb, "A")

	dup := &models.Garage{Name: "B", MatriculeFiscal: g.MatriculeFiscal}
	err := db.Translate(gdb.Create(dup).Error, "fiscal_id_taken", "create garage")
	if !errors.Is(err, apperr.Conflict("fiscal_id_taken")) {
		t.Fatalf("expected fiscal_id_taken conflict, got %v", err)
	}

	var missing models.Garage
	err = db.Translate(gdb.First(&missing, 9999).Error, "", "load garage")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	err = db.Translate(errors.New("connection reset"), "", "load garage")
	if apperr.KindOf(err) != apperr.KindInternal || !strings.Contains(err.Error(), "load garage") {
		t.Fatalf("expected internal error, got %v", err)
	}

	passthrough := apperr.Forbidden("garage_inactive")
	if got := db.Translate(passthrough, "", "x"); got != error(passthrough) {
		t.Fatalf("apperr values must pass through, got %v", got)
	}
	if db.Translate(nil, "", "x") != nil {
		t.Fatal("nil should stay nil")
	}
	if !db.IsUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Fatal("ErrDuplicatedKey is a unique violation")
	}
}

func TestMigrationFilesEmbedded(t *testing.T) {
	names, err := db.MigrationFiles()
	if err != nil {
		t.Fatal(err)
	}
	var up, down bool
	for _, n := range names {
		up = up || strings.HasSuffix(n, ".up.sql")
		down = down || strings.HasSuffix(n, ".down.sql")
	}
	if !up || !down {
		t.Fatalf("expected up and down migrations, got %v", names)
	}
}
