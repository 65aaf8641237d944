package policy

import (
	"context"
	"time"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/gate"
	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/models"
	"gorm.io/gorm"
)

// AuthGate holds the configured HybridGate with caching.
// Subjects are garagiste ids; super-admins bypass it.
type AuthGate struct {
	Gate          *gate.HybridGate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate creates the gate over a cached PermissionResolver and registers
// the garage ownership policy for every tenant resource.
func NewAuthGate(gdb *gorm.DB, cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[uint](NewPermissionResolver(gdb), cacheTTL)
	g := gate.NewHybridGate[uint](cached)
	ownership := NewGarageOwnershipPolicy()
	for _, res := range models.Resources {
		g.Register(res, ownership)
	}
	return &AuthGate{Gate: g, CacheResolver: cached}
}

// Profile returns the cached profile of a garagiste.
func (ag *AuthGate) Profile(ctx context.Context, garagisteID uint) (gate.Profile, error) {
	return ag.CacheResolver.Resolve(ctx, garagisteID)
}

// Authorize checks the request principal against a permission and, when
// resource is not nil, the ownership policy.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}
	if p.IsSuperAdmin() {
		return nil
	}
	if p.Kind != auth.KindGaragiste {
		return apperr.Forbidden("permission_denied")
	}
	if err := ag.Gate.Authorize(ctx, p.ID, action, resourceType, resource); err != nil {
		return apperr.Forbidden("permission_denied")
	}
	return nil
}

// Invalidate clears the cache for a garagiste. Call it after role or grant changes.
func (ag *AuthGate) Invalidate(garagisteID uint) {
	ag.CacheResolver.Invalidate(garagisteID)
}

// InvalidateAll clears the whole cache. Call it after role permissions change.
func (ag *AuthGate) InvalidateAll() {
	ag.CacheResolver.InvalidateAll()
}

// GarageOwnershipPolicy allows access to records of the caller's garage.
// For list/create actions (resource is nil) profile permissions decide alone.
type GarageOwnershipPolicy struct{}

func NewGarageOwnershipPolicy() *GarageOwnershipPolicy {
	return &GarageOwnershipPolicy{}
}

func (GarageOwnershipPolicy) Can(ctx context.Context, _ uint, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return false
	}
	if g, ok := resource.(*models.Garage); ok {
		return p.GarageID != nil && g.ID == *p.GarageID
	}
	t, ok := resource.(models.Tenanted)
	if !ok {
		// Records without a garage are denied.
		return false
	}
	return p.GarageID != nil && t.GetGarageID() == *p.GarageID
}
