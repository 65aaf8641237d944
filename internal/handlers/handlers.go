// Package handlers exposes the services as JSON HTTP handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/tenancy"
	"github.com/diewo77/garage-manager/validation"
)

// principal returns the authenticated principal. Routes are mounted behind
// the authenticator, so a missing principal is a wiring bug reported as 401.
func principal(r *http.Request) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return auth.Principal{}, apperr.Unauthorized("unauthorized")
	}
	return p, nil
}

// scopeFor resolves the tenant scope of the request. Super-admins select a
// garage with the garageId query parameter.
func scopeFor(r *http.Request) (auth.Principal, tenancy.Scope, error) {
	p, err := principal(r)
	if err != nil {
		return p, tenancy.Scope{}, err
	}
	override, err := httpx.QueryID(r, "garageId")
	if err != nil {
		return p, tenancy.Scope{}, err
	}
	scope, err := tenancy.Resolve(p, override)
	return p, scope, err
}

type listResponse struct {
	Items any    `json:"items"`
	Total *int64 `json:"total,omitempty"`
}

func writeList(w http.ResponseWriter, items any) {
	httpx.JSON(w, http.StatusOK, listResponse{Items: items})
}

// writePage writes a page of items with the total count before paging.
func writePage(w http.ResponseWriter, items any, total int64) {
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: &total})
}

// queryTime parses an optional date (YYYY-MM-DD) or RFC 3339 timestamp.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation("validation_failed", validation.Violations{name: "invalid_value"})
}

func requiredField(name string) error {
	return apperr.Validation("validation_failed", validation.Violations{name: "required"})
}

// target resolves the scope and the {id} path value of a record route.
func target(r *http.Request) (auth.Principal, tenancy.Scope, uint, error) {
	p, scope, err := scopeFor(r)
	if err != nil {
		return p, scope, 0, err
	}
	id, err := httpx.PathID(r, "id")
	return p, scope, id, err
}
