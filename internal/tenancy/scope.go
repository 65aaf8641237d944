// Package tenancy pins data access to the caller's garage.
package tenancy

import (
	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/internal/apperr"
	"gorm.io/gorm"
)

// Scope is the set of garages a request may touch.
type Scope struct {
	garageID uint
	all      bool
	none     bool
}

// Resolve derives the scope of a principal. Staff and clients are pinned to
// their garage; an override naming another garage is rejected. Super-admins
// use the override, and without one they read across every garage.
func Resolve(p auth.Principal, override uint) (Scope, error) {
	if p.IsSuperAdmin() {
		if override == 0 {
			return Scope{all: true}, nil
		}
		return Scope{garageID: override}, nil
	}
	if p.GarageID == nil {
		return Scope{none: true}, nil
	}
	if override != 0 && override != *p.GarageID {
		return Scope{}, apperr.Forbidden("garage_mismatch")
	}
	return Scope{garageID: *p.GarageID}, nil
}

// ForGarage scopes to a single garage.
func ForGarage(id uint) Scope {
	if id == 0 {
		return Scope{none: true}
	}
	return Scope{garageID: id}
}

// AllGarages is the unrestricted read scope.
func AllGarages() Scope { return Scope{all: true} }

// GarageID returns the pinned garage, 0 for the all/none scopes.
func (s Scope) GarageID() uint { return s.garageID }

func (s Scope) IsAll() bool  { return s.all }
func (s Scope) IsNone() bool { return s.none }

// Allows reports whether a record of garageID is visible in the scope.
func (s Scope) Allows(garageID uint) bool {
	switch {
	case s.none:
		return false
	case s.all:
		return true
	default:
		return garageID == s.garageID
	}
}

// Apply restricts a query to the scope. column defaults to garage_id.
func (s Scope) Apply(tx *gorm.DB, column ...string) *gorm.DB {
	col := "garage_id"
	if len(column) > 0 && column[0] != "" {
		col = column[0]
	}
	switch {
	case s.none:
		return tx.Where("1 = 0")
	case s.all:
		return tx
	default:
		return tx.Where(col+" = ?", s.garageID)
	}
}

// WriteGarage returns the garage new records are created in. Super-admins
// must name a garage explicitly.
func (s Scope) WriteGarage() (uint, error) {
	switch {
	case s.none:
		return 0, apperr.Forbidden("garage_mismatch")
	case s.all:
		return 0, apperr.Validation("garage_id_required", map[string]string{"garageId": "required"})
	default:
		return s.garageID, nil
	}
}
