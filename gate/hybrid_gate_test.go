package gate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/garage-manager/gate"
)

type garageResource struct {
	GarageID uint
}

// subjects are garage ids in these tests: a subject may only touch its own garage.
func sameGaragePolicy() gate.Policy[uint] {
	return gate.PolicyFunc[uint](func(_ context.Context, subject uint, _ gate.Action, resource any) bool {
		r, ok := resource.(*garageResource)
		return ok && r.GarageID == subject
	})
}

func TestHybridGate_ProfileOnly(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	resolver.Set(1, gate.NewStaticProfile("employe",
		gate.NewPermission("devis", gate.ActionCreate),
		gate.NewPermission("devis", gate.ActionView),
	))
	g := gate.NewHybridGate[uint](resolver)

	if !g.Can(context.Background(), 1, gate.ActionCreate, "devis", nil) {
		t.Error("subject with permission should be allowed")
	}
	if err := g.Authorize(context.Background(), 1, gate.ActionDelete, "devis", nil); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := g.Authorize(context.Background(), 2, gate.ActionView, "devis", nil); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("subject without profile should be forbidden, got %v", err)
	}
	if err := g.Authorize(context.Background(), 0, gate.ActionView, "devis", nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("zero subject should be unauthorized, got %v", err)
	}
}

func TestHybridGate_WithPolicy(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	profile := gate.NewStaticProfile("employe",
		gate.NewPermission("ordre", gate.ActionView),
		gate.NewPermission("ordre", gate.ActionUpdate),
	)
	resolver.Set(1, profile)
	resolver.Set(2, profile)

	g := gate.NewHybridGate[uint](resolver)
	g.Register("ordre", sameGaragePolicy())

	resource := &garageResource{GarageID: 1}
	if !g.Can(context.Background(), 1, gate.ActionUpdate, "ordre", resource) {
		t.Error("same garage should be allowed")
	}
	if g.Can(context.Background(), 2, gate.ActionUpdate, "ordre", resource) {
		t.Error("other garage should be denied even with profile permission")
	}
	if !g.Can(context.Background(), 2, gate.ActionUpdate, "ordre", nil) {
		t.Error("a nil resource skips the policy")
	}
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, uint) (gate.Profile, error) {
	return nil, errors.New("db down")
}

func TestHybridGate_ResolverError(t *testing.T) {
	g := gate.NewHybridGate[uint](failingResolver{})
	if err := g.Authorize(context.Background(), 1, gate.ActionView, "devis", nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
