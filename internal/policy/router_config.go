package policy

import (
	"net/http"
	"time"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/gate"
	"gorm.io/gorm"
)

// RouterConfig holds the authorization pieces shared by every route.
type RouterConfig struct {
	AuthGate      *AuthGate
	Authenticator *Authenticator
}

// NewRouterConfig wires the cached permission gate and the authenticator.
func NewRouterConfig(gdb *gorm.DB, issuer *auth.Issuer, cacheTTL time.Duration) *RouterConfig {
	ag := NewAuthGate(gdb, cacheTTL)
	return &RouterConfig{
		AuthGate:      ag,
		Authenticator: NewAuthenticator(gdb, issuer, ag),
	}
}

// Protect authenticates the request then runs the guards before h.
//
//	mux.Handle("GET /api/devis", cfg.Protect(http.HandlerFunc(h.List),
//		policy.StaffOrSuperAdmin(), cfg.Can("devis", gate.ActionList)))
func (c *RouterConfig) Protect(h http.Handler, guards ...Guard) http.Handler {
	return c.Authenticator.Middleware(Chain(guards...)(h))
}

// ProtectFunc is Protect for handler functions.
func (c *RouterConfig) ProtectFunc(h http.HandlerFunc, guards ...Guard) http.Handler {
	return c.Protect(h, guards...)
}

// Can is the Permission guard bound to the config's gate.
func (c *RouterConfig) Can(resource string, action gate.Action) Guard {
	return Permission(c.AuthGate, resource, action)
}
