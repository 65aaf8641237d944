package policy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/gate"
	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db/dbtest"
	"github.com/diewo77/garage-manager/internal/models"
	"gorm.io/gorm"
)

func ptr(v uint) *uint { return &v }

func TestParseRoleKind(t *testing.T) {
	cases := []struct {
		in   string
		want models.RoleCode
		ok   bool
	}{
		{"Admin Garage", models.RoleGarageAdmin, true},
		{"  admin   GARAGE ", models.RoleGarageAdmin, true},
		{"garage_admin", models.RoleGarageAdmin, true},
		{"Super Admin", models.RoleSuperAdmin, true},
		{"super-admin", models.RoleSuperAdmin, true},
		{"Employé Garage", models.RoleEmployee, true},
		{"EMPLOYE", models.RoleEmployee, true},
		{"Mécanicien", models.RoleMechanic, true},
		{"mecanicien", models.RoleMechanic, true},
		{"admin", "", false},
		{"Administrateur du garage principal", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseRoleKind(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ParseRoleKind(%q) = %q,%v want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestRoleCodeFor(t *testing.T) {
	cases := []struct {
		in   string
		want models.RoleCode
		ok   bool
	}{
		{"Mécanicien", models.RoleMechanic, true},
		{"Chef d'atelier", "chef_d'atelier", false},
		{"Chef Atelier", "chef_atelier", true},
		{"carrossier-2", "carrossier_2", true},
		{"x", "x", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := RoleCodeFor(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("RoleCodeFor(%q) = %q,%v want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func setRolePermissions(t *testing.T, gdb *gorm.DB, role *models.Role, perms ...*models.Permission) {
	t.Helper()
	list := make([]models.Permission, len(perms))
	for i, p := range perms {
		list[i] = *p
	}
	if err := gdb.Model(role).Association("Permissions").Replace(list); err != nil {
		t.Fatalf("replace permissions: %v", err)
	}
}

func TestEffectivePermissionsUnion(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	g := dbtest.Garage(t, gdb, "A")
	mech := dbtest.Garagiste(t, gdb, &g.ID, "m@example.com", models.RoleMechanic)

	p1 := dbtest.Permission(t, gdb, "ordre", "list")
	p2 := dbtest.Permission(t, gdb, "ordre", "view")
	p3 := dbtest.Permission(t, gdb, "devis", "create")
	setRolePermissions(t, gdb, dbtest.Role(t, gdb, models.RoleMechanic), p1, p2)
	// duplicate of a role permission must not appear twice
	for _, p := range []*models.Permission{p3, p2} {
		if err := gdb.Create(&models.GaragistePermission{GaragisteID: mech.ID, PermissionID: p.ID}).Error; err != nil {
			t.Fatal(err)
		}
	}

	got, err := NewPermissionResolver(gdb).Effective(ctx, mech.ID)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	want := []uint{p1.ID, p2.ID, p3.ID}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	if len(got) != len(want) {
		t.Fatalf("expected %d permissions got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("expected ids %v in order, got %+v", want, got)
		}
	}
}

func TestEffectivePermissionsWithoutRole(t *testing.T) {
	gdb := dbtest.Open(t)
	g := dbtest.Garage(t, gdb, "A")
	nobody := dbtest.Garagiste(t, gdb, &g.ID, "n@example.com", "")
	r := NewPermissionResolver(gdb)

	perms, err := r.Effective(context.Background(), nobody.ID)
	if err != nil || len(perms) != 0 {
		t.Fatalf("expected empty set, got %v (%v)", perms, err)
	}
	if _, err := r.Role(context.Background(), nobody.ID); !errors.Is(err, apperr.NotFound("role_not_found")) {
		t.Fatalf("expected role_not_found, got %v", err)
	}
	profile, err := r.Resolve(context.Background(), nobody.ID)
	if err != nil || profile.Name() != "" || profile.Permissions().Len() != 0 {
		t.Fatalf("unexpected profile %+v (%v)", profile, err)
	}
}

func newIssuer() *auth.Issuer { return auth.NewIssuer("test-secret", time.Hour) }

func TestAuthenticate(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	iss := newIssuer()
	a := NewAuthenticator(gdb, iss, NewAuthGate(gdb, time.Minute))

	g := dbtest.Garage(t, gdb, "A")
	other := dbtest.Garage(t, gdb, "B")
	staff := dbtest.Garagiste(t, gdb, &g.ID, "s@example.com", models.RoleGarageAdmin)

	// token claims a different garage; the stored record wins
	tok, _, _ := iss.Issue(auth.KindGaragiste, staff.ID, &other.ID)
	p, err := a.Authenticate(ctx, tok)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.Garage() != g.ID || p.Role != string(models.RoleGarageAdmin) {
		t.Fatalf("unexpected principal %+v", p)
	}
	if !p.Can(gate.NewPermission("devis", gate.ActionCreate)) {
		t.Fatal("garage admin should create devis")
	}

	gdb.Model(&models.Garage{}).Where("id = ?", g.ID).Update("is_active", false)
	if _, err := a.Authenticate(ctx, tok); !errors.Is(err, apperr.Forbidden("garage_inactive")) {
		t.Fatalf("expected garage_inactive, got %v", err)
	}

	gone, _, _ := iss.Issue(auth.KindGaragiste, 9999, nil)
	if _, err := a.Authenticate(ctx, gone); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("unknown subject must be 401, got %v", err)
	}
	if _, err := a.Authenticate(ctx, "garbage"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("garbage token must be 401, got %v", err)
	}

	admin := dbtest.SuperAdmin(t, gdb, "root@example.com")
	tok, _, _ = iss.Issue(auth.KindSuperAdmin, admin.ID, nil)
	if p, err := a.Authenticate(ctx, tok); err != nil || !p.IsSuperAdmin() {
		t.Fatalf("super-admin: %+v %v", p, err)
	}
	gdb.Model(&models.User{}).Where("id = ?", admin.ID).Update("is_super_admin", false)
	if _, err := a.Authenticate(ctx, tok); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("demoted user must be forbidden, got %v", err)
	}

	c := dbtest.Client(t, gdb, other.ID, "c@example.com")
	tok, _, _ = iss.Issue(auth.KindClient, c.ID, nil)
	if p, err := a.Authenticate(ctx, tok); err != nil || p.Kind != auth.KindClient || p.Garage() != other.ID {
		t.Fatalf("client: %+v %v", p, err)
	}
}

func TestCheckGaragisteAccess(t *testing.T) {
	active := &models.Garage{ID: 1, IsActive: true}
	inactive := &models.Garage{ID: 1, IsActive: false}
	cases := []struct {
		name string
		g    models.Garagiste
		code string
	}{
		{"ok", models.Garagiste{IsActive: true, IsVerified: true, GarageID: ptr(1), Garage: active}, ""},
		{"no garage yet", models.Garagiste{IsActive: true, IsVerified: true}, ""},
		{"inactive account", models.Garagiste{IsActive: false, IsVerified: true, GarageID: ptr(1), Garage: active}, "account_inactive"},
		{"unverified", models.Garagiste{IsActive: true, GarageID: ptr(1), Garage: active}, "account_not_verified"},
		{"garage off", models.Garagiste{IsActive: true, IsVerified: true, GarageID: ptr(1), Garage: inactive}, "garage_inactive"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := CheckGaragisteAccess(&c.g)
			if c.code == "" {
				if err != nil {
					t.Fatalf("unexpected %v", err)
				}
				return
			}
			if !errors.Is(err, apperr.Forbidden(c.code)) {
				t.Fatalf("expected %s, got %v", c.code, err)
			}
		})
	}
}

func serve(h http.Handler, p *auth.Principal, target string, pattern string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle(pattern, h)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestChainShortCircuits(t *testing.T) {
	var second, reached bool
	h := Chain(
		SuperAdmin(),
		func(*http.Request, auth.Principal) error { second = true; return nil },
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }))

	staff := auth.Principal{Kind: auth.KindGaragiste, ID: 1, GarageID: ptr(1)}
	rr := serve(h, &staff, "/x", "GET /x")
	if rr.Code != http.StatusForbidden || second || reached {
		t.Fatalf("expected 403 and no later guard, got %d second=%v reached=%v", rr.Code, second, reached)
	}

	if rr := serve(h, nil, "/x", "GET /x"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing principal must be 401, got %d", rr.Code)
	}

	admin := auth.Principal{Kind: auth.KindSuperAdmin, ID: 1}
	if rr := serve(h, &admin, "/x", "GET /x"); rr.Code != http.StatusOK || !second || !reached {
		t.Fatalf("super-admin should pass, got %d", rr.Code)
	}
}

func TestGuards(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/garages/5", nil)
	req.SetPathValue("garageId", "5")

	admin := auth.Principal{Kind: auth.KindGaragiste, ID: 1, GarageID: ptr(5), Role: string(models.RoleGarageAdmin)}
	mech := auth.Principal{Kind: auth.KindGaragiste, ID: 2, GarageID: ptr(6), Role: string(models.RoleMechanic)}
	client := auth.Principal{Kind: auth.KindClient, ID: 3, GarageID: ptr(5)}
	root := auth.Principal{Kind: auth.KindSuperAdmin, ID: 1}

	if GarageAdmin()(req, admin) != nil || GarageAdmin()(req, mech) == nil {
		t.Error("GarageAdmin mismatch")
	}
	if HasRole(models.RoleMechanic)(req, mech) != nil || HasRole(models.RoleMechanic)(req, admin) == nil {
		t.Error("HasRole mismatch")
	}
	if SameGarage("garageId")(req, admin) != nil {
		t.Error("same garage should pass")
	}
	if err := SameGarage("garageId")(req, mech); !errors.Is(err, apperr.Forbidden("garage_mismatch")) {
		t.Errorf("other garage should be garage_mismatch, got %v", err)
	}
	if SameGarage("garageId")(req, root) != nil {
		t.Error("super-admin passes same-garage")
	}
	if Kind(auth.KindClient)(req, client) != nil || Kind(auth.KindClient)(req, admin) == nil {
		t.Error("Kind mismatch")
	}
	if StaffOrSuperAdmin()(req, client) == nil {
		t.Error("clients are not staff")
	}
	adminOrRoot := Any(SuperAdmin(), GarageAdmin())
	if adminOrRoot(req, root) != nil || adminOrRoot(req, admin) != nil {
		t.Error("Any should pass when one guard passes")
	}
	if err := adminOrRoot(req, mech); !errors.Is(err, apperr.Forbidden("garage_admin_required")) {
		t.Errorf("Any should return the last failure, got %v", err)
	}
}

func TestPermissionGuardAndOwnership(t *testing.T) {
	gdb := dbtest.Open(t)
	g := dbtest.Garage(t, gdb, "A")
	other := dbtest.Garage(t, gdb, "B")
	mech := dbtest.Garagiste(t, gdb, &g.ID, "m@example.com", models.RoleMechanic)
	ag := NewAuthGate(gdb, time.Minute)

	p := auth.Principal{Kind: auth.KindGaragiste, ID: mech.ID, GarageID: &g.ID, Role: string(models.RoleMechanic)}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))

	if err := Permission(ag, models.ResourceOrdre, gate.ActionList)(req, p); err != nil {
		t.Fatalf("mechanic can list orders: %v", err)
	}
	if err := Permission(ag, models.ResourceDevis, gate.ActionDelete)(req, p); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("mechanic cannot delete devis, got %v", err)
	}

	own := &models.OrdreTravail{GarageID: g.ID}
	foreign := &models.OrdreTravail{GarageID: other.ID}
	if err := ag.Authorize(req.Context(), gate.ActionView, models.ResourceOrdre, own); err != nil {
		t.Fatalf("own order: %v", err)
	}
	if err := ag.Authorize(req.Context(), gate.ActionView, models.ResourceOrdre, foreign); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("foreign order must be forbidden, got %v", err)
	}

	// grants are cached until invalidated
	devisDelete := dbtest.Permission(t, gdb, "devis", "delete")
	gdb.Create(&models.GaragistePermission{GaragisteID: mech.ID, PermissionID: devisDelete.ID})
	if ag.Authorize(req.Context(), gate.ActionDelete, models.ResourceDevis, nil) == nil {
		t.Fatal("cache should still hold the old profile")
	}
	ag.Invalidate(mech.ID)
	if err := ag.Authorize(req.Context(), gate.ActionDelete, models.ResourceDevis, nil); err != nil {
		t.Fatal("grant should apply after invalidation")
	}
}
