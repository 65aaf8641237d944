package main

import (
	"net/http"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/gate"
	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/config"
	"github.com/diewo77/garage-manager/internal/handlers"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/policy"
	"github.com/diewo77/garage-manager/internal/services"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *policy.RouterConfig
	issuer    *auth.Issuer
	notifier  services.Notifier
	frontend  string
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, routerCfg *policy.RouterConfig, issuer *auth.Issuer, notifier services.Notifier, appCfg config.AppConfig) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		routerCfg: routerCfg,
		issuer:    issuer,
		notifier:  notifier,
		frontend:  appCfg.FrontendURL,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := httpx.WithRecover(httpx.WithLogging(httpx.WithLang(a.mux)))
	handler.ServeHTTP(w, r)
}

// staff guards a tenant route: garagistes and super-admins holding
// resource:action.
func (a *App) staff(h http.HandlerFunc, resource string, action gate.Action) http.Handler {
	return a.routerCfg.ProtectFunc(h, policy.StaffOrSuperAdmin(), a.routerCfg.Can(resource, action))
}

func (a *App) superAdmin(h http.HandlerFunc) http.Handler {
	return a.routerCfg.ProtectFunc(h, policy.SuperAdmin())
}

func (a *App) garageAdmin(h http.HandlerFunc) http.Handler {
	return a.routerCfg.ProtectFunc(h, policy.Any(policy.SuperAdmin(), policy.GarageAdmin()))
}

func (a *App) client(h http.HandlerFunc) http.Handler {
	return a.routerCfg.ProtectFunc(h, policy.Kind(auth.KindClient))
}

// crud mounts the five standard routes of a tenant resource under prefix.
func (a *App) crud(prefix, resource string, list, create, get, update, del http.HandlerFunc) {
	a.mux.Handle("GET "+prefix, a.staff(list, resource, gate.ActionList))
	a.mux.Handle("POST "+prefix, a.staff(create, resource, gate.ActionCreate))
	a.mux.Handle("GET "+prefix+"/{id}", a.staff(get, resource, gate.ActionView))
	a.mux.Handle("PUT "+prefix+"/{id}", a.staff(update, resource, gate.ActionUpdate))
	a.mux.Handle("DELETE "+prefix+"/{id}", a.staff(del, resource, gate.ActionDelete))
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	gdb := a.db
	cache := a.routerCfg.AuthGate

	authSvc := services.NewAuthService(gdb, a.issuer, a.notifier, a.frontend)
	garageSvc := services.NewGarageService(gdb, a.notifier, a.frontend)
	garagisteSvc := services.NewGaragisteService(gdb, cache, a.notifier, a.frontend)
	ordreSvc := services.NewOrdreService(gdb)

	ah := handlers.NewAuthHandler(gdb, authSvc)
	gh := handlers.NewGarageHandler(garageSvc)
	sh := handlers.NewGaragisteHandler(garagisteSvc)
	rh := handlers.NewAdminRoleHandler(services.NewRoleService(gdb, cache))
	uh := handlers.NewAdminUserHandler(services.NewAdminService(gdb))
	dh := handlers.NewDevisHandler(services.NewDevisService(gdb, a.notifier, a.frontend))
	fh := handlers.NewFactureHandler(services.NewFactureService(gdb))
	oh := handlers.NewOrdreHandler(ordreSvc)
	bh := handlers.NewReservationHandler(services.NewReservationService(gdb))
	kh := handlers.NewDashboardHandler(services.NewDashboardService(gdb))

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /health", handlers.Health(gdb))
	a.mux.HandleFunc("GET /healthz", handlers.Health(gdb))

	a.mux.HandleFunc("POST /api/auth/admin/login", ah.AdminLogin)
	a.mux.HandleFunc("POST /api/auth/garagiste/login", ah.GaragisteLogin)
	a.mux.HandleFunc("POST /api/auth/client/login", ah.ClientLogin)
	a.mux.HandleFunc("POST /api/auth/client/register", ah.Register)
	a.mux.HandleFunc("GET /api/auth/verify", ah.Verify)
	a.mux.HandleFunc("POST /api/auth/password/forgot", ah.ForgotPassword)
	a.mux.HandleFunc("POST /api/auth/password/reset", ah.ResetPassword)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes (any principal)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /api/me", a.routerCfg.ProtectFunc(ah.Me))

	// ─────────────────────────────────────────────────────────────────────────
	// Super-admin routes
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /api/admin/garages", a.superAdmin(gh.List))
	a.mux.Handle("POST /api/admin/garages", a.superAdmin(gh.Create))
	a.mux.Handle("GET /api/admin/garages/{id}", a.superAdmin(gh.Get("id")))
	a.mux.Handle("PUT /api/admin/garages/{id}", a.superAdmin(gh.Update("id")))
	a.mux.Handle("DELETE /api/admin/garages/{id}", a.superAdmin(gh.Delete))
	a.mux.Handle("PUT /api/admin/garages/{id}/active", a.superAdmin(gh.SetActive))
	a.mux.Handle("PUT /api/admin/garagistes/{id}/active", a.superAdmin(sh.SetActive))

	a.mux.Handle("GET /api/admin/users", a.superAdmin(uh.List))
	a.mux.Handle("POST /api/admin/users", a.superAdmin(uh.Create))
	a.mux.Handle("POST /api/admin/users/{id}/promote", a.superAdmin(uh.Promote))
	a.mux.Handle("POST /api/admin/users/{id}/demote", a.superAdmin(uh.Demote))

	a.mux.Handle("GET /api/admin/permissions", a.superAdmin(rh.ListPermissions))
	a.mux.Handle("GET /api/admin/roles", a.superAdmin(rh.List))
	a.mux.Handle("POST /api/admin/roles", a.superAdmin(rh.Create))
	a.mux.Handle("PUT /api/admin/roles/{id}/permissions", a.superAdmin(rh.SetPermissions))

	// ─────────────────────────────────────────────────────────────────────────
	// Garage staff routes (auth + garage scope + permissions)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /api/garages/{garageId}", a.routerCfg.ProtectFunc(gh.Get("garageId"),
		policy.StaffOrSuperAdmin(), policy.SameGarage("garageId"),
		a.routerCfg.Can(models.ResourceGarage, gate.ActionView)))
	a.mux.Handle("PUT /api/garages/{garageId}", a.routerCfg.ProtectFunc(gh.Update("garageId"),
		policy.StaffOrSuperAdmin(), policy.SameGarage("garageId"),
		a.routerCfg.Can(models.ResourceGarage, gate.ActionUpdate)))

	// Staff management is reserved to garage admins (and super-admins).
	a.mux.Handle("GET /api/garagistes", a.garageAdmin(sh.List))
	a.mux.Handle("POST /api/garagistes", a.garageAdmin(sh.Create))
	a.mux.Handle("GET /api/garagistes/{id}", a.garageAdmin(sh.Get))
	a.mux.Handle("PUT /api/garagistes/{id}", a.garageAdmin(sh.Update))
	a.mux.Handle("DELETE /api/garagistes/{id}", a.garageAdmin(sh.Delete))
	a.mux.Handle("GET /api/garagistes/{id}/role", a.garageAdmin(sh.Role))
	a.mux.Handle("PUT /api/garagistes/{id}/role", a.garageAdmin(sh.AssignRole))
	a.mux.Handle("GET /api/garagistes/{id}/permissions", a.garageAdmin(sh.Permissions))
	a.mux.Handle("POST /api/garagistes/{id}/permissions", a.garageAdmin(sh.Grant))
	a.mux.Handle("DELETE /api/garagistes/{id}/permissions/{permissionId}", a.garageAdmin(sh.Revoke))

	// Catalogue resources
	ag := a.routerCfg.AuthGate
	ch := handlers.NewClientHandler(gdb).Guarded(ag, models.ResourceClient)
	a.crud("/api/clients", models.ResourceClient, ch.List, ch.Create, ch.Get, ch.Update, ch.Delete)
	vh := handlers.NewVehiculeHandler(gdb).Guarded(ag, models.ResourceVehicule)
	a.crud("/api/vehicules", models.ResourceVehicule, vh.List, vh.Create, vh.Get, vh.Update, vh.Delete)
	ph := handlers.NewServiceHandler(gdb).Guarded(ag, models.ResourceService)
	a.crud("/api/services", models.ResourceService, ph.List, ph.Create, ph.Get, ph.Update, ph.Delete)
	th := handlers.NewAtelierHandler(gdb).Guarded(ag, models.ResourceAtelier)
	a.crud("/api/ateliers", models.ResourceAtelier, th.List, th.Create, th.Get, th.Update, th.Delete)

	// Devis - transitions need devis:update
	a.crud("/api/devis", models.ResourceDevis, dh.List, dh.Create, dh.Get, dh.Update, dh.Delete)
	a.mux.Handle("POST /api/devis/{id}/send", a.staff(dh.Send, models.ResourceDevis, gate.ActionUpdate))
	a.mux.Handle("POST /api/devis/{id}/accept", a.staff(dh.Accept, models.ResourceDevis, gate.ActionUpdate))
	a.mux.Handle("POST /api/devis/{id}/refuse", a.staff(dh.Refuse, models.ResourceDevis, gate.ActionUpdate))

	// Factures
	a.mux.Handle("GET /api/factures", a.staff(fh.List, models.ResourceFacture, gate.ActionList))
	a.mux.Handle("GET /api/factures/{id}", a.staff(fh.Get, models.ResourceFacture, gate.ActionView))
	a.mux.Handle("POST /api/factures/{id}/pay", a.staff(fh.Pay, models.ResourceFacture, gate.ActionUpdate))
	a.mux.Handle("POST /api/factures/{id}/cancel", a.staff(fh.Cancel, models.ResourceFacture, gate.ActionUpdate))

	// Ordres de travail - literal segments win over {id}
	a.mux.Handle("GET /api/ordres-travail/stats", a.staff(oh.Stats, models.ResourceOrdre, gate.ActionList))
	a.mux.Handle("GET /api/ordres-travail/calendar", a.staff(oh.Calendar, models.ResourceOrdre, gate.ActionList))
	a.crud("/api/ordres-travail", models.ResourceOrdre, oh.List, oh.Create, oh.Get, oh.Update, oh.Delete)
	a.mux.Handle("POST /api/ordres-travail/{id}/start", a.staff(oh.Start, models.ResourceOrdre, gate.ActionUpdate))
	a.mux.Handle("POST /api/ordres-travail/{id}/finish", a.staff(oh.Finish, models.ResourceOrdre, gate.ActionUpdate))

	// Reservations
	a.mux.Handle("GET /api/reservations", a.staff(bh.List, models.ResourceReservation, gate.ActionList))
	a.mux.Handle("POST /api/reservations", a.staff(bh.Create, models.ResourceReservation, gate.ActionCreate))
	a.mux.Handle("GET /api/reservations/{id}", a.staff(bh.Get, models.ResourceReservation, gate.ActionView))
	a.mux.Handle("POST /api/reservations/{id}/confirm", a.staff(bh.Confirm, models.ResourceReservation, gate.ActionUpdate))
	a.mux.Handle("POST /api/reservations/{id}/cancel", a.staff(bh.Cancel, models.ResourceReservation, gate.ActionUpdate))
	a.mux.Handle("POST /api/reservations/{id}/complete", a.staff(bh.Complete, models.ResourceReservation, gate.ActionUpdate))

	a.mux.Handle("GET /api/dashboard", a.staff(kh.Stats, models.ResourceDashboard, gate.ActionView))

	// ─────────────────────────────────────────────────────────────────────────
	// Client self-service routes
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /api/client/reservations", a.client(bh.ClientList))
	a.mux.Handle("POST /api/client/reservations", a.client(bh.ClientCreate))
	a.mux.Handle("GET /api/client/devis", a.client(dh.ClientList))
	a.mux.Handle("POST /api/client/devis/{id}/accept", a.client(dh.ClientAccept))
	a.mux.Handle("POST /api/client/devis/{id}/refuse", a.client(dh.ClientRefuse))
	a.mux.Handle("GET /api/client/factures", a.client(fh.ClientList))
}
