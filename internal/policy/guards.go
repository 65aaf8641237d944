package policy

import (
	"net/http"
	"strconv"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/gate"
	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/models"
)

// Guard is a predicate over the request and its principal. A non-nil error
// stops the chain and becomes the response.
type Guard func(r *http.Request, p auth.Principal) error

// Chain runs guards in order; the first failure writes the response and no
// later guard runs. A request without principal gets 401.
func Chain(guards ...Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Error(w, r, apperr.Unauthorized("unauthorized"))
				return
			}
			for _, g := range guards {
				if err := g(r, p); err != nil {
					httpx.Error(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Any passes when at least one guard passes; otherwise the last error wins.
func Any(guards ...Guard) Guard {
	return func(r *http.Request, p auth.Principal) error {
		var err error = apperr.Forbidden("forbidden")
		for _, g := range guards {
			if err = g(r, p); err == nil {
				return nil
			}
		}
		return err
	}
}

// SuperAdmin allows only platform super-admins.
func SuperAdmin() Guard {
	return func(_ *http.Request, p auth.Principal) error {
		if !p.IsSuperAdmin() {
			return apperr.Forbidden("super_admin_required")
		}
		return nil
	}
}

// Kind allows the listed principal kinds.
func Kind(kinds ...auth.Kind) Guard {
	return func(_ *http.Request, p auth.Principal) error {
		for _, k := range kinds {
			if p.Kind == k {
				return nil
			}
		}
		return apperr.Forbidden("forbidden")
	}
}

// HasRole requires the principal's resolved role to be exactly code.
func HasRole(code models.RoleCode) Guard {
	return func(_ *http.Request, p auth.Principal) error {
		if p.Role != string(code) {
			return apperr.Forbidden("role_required")
		}
		return nil
	}
}

// GarageAdmin requires a garagiste holding the garage admin role.
func GarageAdmin() Guard {
	return func(_ *http.Request, p auth.Principal) error {
		if p.Kind != auth.KindGaragiste || p.Role != string(models.RoleGarageAdmin) {
			return apperr.Forbidden("garage_admin_required")
		}
		return nil
	}
}

// StaffOrSuperAdmin allows super-admins and garagistes.
func StaffOrSuperAdmin() Guard {
	return Kind(auth.KindSuperAdmin, auth.KindGaragiste)
}

// SameGarage requires the garage id named by the path value (or query
// parameter) param to be the principal's own garage. Super-admins pass.
func SameGarage(param string) Guard {
	return func(r *http.Request, p auth.Principal) error {
		if p.IsSuperAdmin() {
			return nil
		}
		raw := r.PathValue(param)
		if raw == "" {
			raw = r.URL.Query().Get(param)
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return apperr.Validation("invalid_id", map[string]string{param: "invalid_value"})
		}
		if p.GarageID == nil || uint(id) != *p.GarageID {
			return apperr.Forbidden("garage_mismatch")
		}
		return nil
	}
}

// Permission requires resource:action through the gate. Super-admins pass.
func Permission(ag *AuthGate, resource string, action gate.Action) Guard {
	return func(r *http.Request, _ auth.Principal) error {
		return ag.Authorize(r.Context(), action, resource, nil)
	}
}
