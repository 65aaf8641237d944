package auth

import (
	"context"

	"github.com/diewo77/garage-manager/gate"
)

// Kind identifies which account collection a principal comes from.
type Kind string

const (
	KindSuperAdmin Kind = "superadmin"
	KindGaragiste  Kind = "garagiste"
	KindClient     Kind = "client"
)

func (k Kind) Valid() bool {
	return k == KindSuperAdmin || k == KindGaragiste || k == KindClient
}

// Principal is the authenticated caller. It is built once per request by the
// authenticator and never mutated afterwards.
type Principal struct {
	Kind        Kind
	ID          uint
	Email       string
	GarageID    *uint
	Role        string
	Permissions gate.PermissionSet
}

func (p Principal) IsZero() bool { return p.ID == 0 }

func (p Principal) IsSuperAdmin() bool { return p.Kind == KindSuperAdmin }

// Garage returns the principal's garage id, 0 when unassigned.
func (p Principal) Garage() uint {
	if p.GarageID == nil {
		return 0
	}
	return *p.GarageID
}

// Can reports whether the principal's effective permissions allow the code.
// Super-admins are allowed everything.
func (p Principal) Can(perm gate.Permission) bool {
	if p.IsSuperAdmin() {
		return true
	}
	return p.Permissions.Allows(perm)
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok && !p.IsZero()
}
