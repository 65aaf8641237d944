package gate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/garage-manager/gate"
)

func TestCachedResolver_CachesProfile(t *testing.T) {
	inner := gate.NewStaticResolver[uint]()
	inner.Set(1, gate.NewStaticProfile("mecanicien"))

	cached := gate.NewCachedResolver[uint](inner, 5*time.Minute)

	p1, err := cached.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1.Name() != "mecanicien" {
		t.Errorf("expected 'mecanicien', got '%s'", p1.Name())
	}

	inner.Set(1, gate.NewStaticProfile("admin"))

	p2, err := cached.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p2.Name() != "mecanicien" {
		t.Errorf("expected cached 'mecanicien', got '%s'", p2.Name())
	}
}

func TestCachedResolver_Invalidate(t *testing.T) {
	inner := gate.NewStaticResolver[uint]()
	inner.Set(1, gate.NewStaticProfile("mecanicien"))
	cached := gate.NewCachedResolver[uint](inner, 5*time.Minute)

	_, _ = cached.Resolve(context.Background(), 1)
	inner.Set(1, gate.NewStaticProfile("admin"))
	cached.Invalidate(1)

	p, err := cached.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "admin" {
		t.Errorf("expected 'admin' after invalidation, got '%s'", p.Name())
	}
}

func TestCachedResolver_InvalidateAll(t *testing.T) {
	inner := gate.NewStaticResolver[uint]()
	inner.Set(1, gate.NewStaticProfile("mecanicien"))
	inner.Set(2, gate.NewStaticProfile("employe"))
	cached := gate.NewCachedResolver[uint](inner, 5*time.Minute)

	_, _ = cached.Resolve(context.Background(), 1)
	_, _ = cached.Resolve(context.Background(), 2)

	inner.Set(1, gate.NewStaticProfile("admin"))
	inner.Set(2, gate.NewStaticProfile("admin"))
	cached.InvalidateAll()

	p1, _ := cached.Resolve(context.Background(), 1)
	p2, _ := cached.Resolve(context.Background(), 2)
	if p1.Name() != "admin" || p2.Name() != "admin" {
		t.Error("expected both profiles to be 'admin' after InvalidateAll")
	}
}

func TestCachedResolver_TTLExpiry(t *testing.T) {
	inner := gate.NewStaticResolver[uint]()
	inner.Set(1, gate.NewStaticProfile("mecanicien"))
	cached := gate.NewCachedResolver[uint](inner, 10*time.Millisecond)

	_, _ = cached.Resolve(context.Background(), 1)
	inner.Set(1, gate.NewStaticProfile("admin"))
	time.Sleep(20 * time.Millisecond)

	p, _ := cached.Resolve(context.Background(), 1)
	if p.Name() != "admin" {
		t.Errorf("expected 'admin' after TTL expiry, got '%s'", p.Name())
	}
}

func TestCachedResolver_ConcurrentResolve(t *testing.T) {
	inner := gate.NewStaticResolver[uint]()
	inner.Set(7, gate.NewStaticProfile("employe", "devis:view"))
	cached := gate.NewCachedResolver[uint](inner, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := cached.Resolve(context.Background(), 7)
			if err != nil || p == nil || !p.HasPermission("devis:view") {
				t.Errorf("unexpected resolve result %v %v", p, err)
			}
		}()
	}
	wg.Wait()

	// every goroutine either hit the cache or joined a shared load
	if calls := inner.Calls(); calls < 1 || calls > 32 {
		t.Errorf("unexpected inner call count %d", calls)
	}
	before := inner.Calls()
	_, _ = cached.Resolve(context.Background(), 7)
	if inner.Calls() != before {
		t.Error("warm cache should not call the inner resolver")
	}
}

// blockingResolver hands out the profile it holds at call time, then waits
// for release before returning it.
type blockingResolver struct {
	mu      sync.Mutex
	profile gate.Profile
	started chan struct{}
	release chan struct{}
	block   bool
}

func (r *blockingResolver) Resolve(context.Context, uint) (gate.Profile, error) {
	r.mu.Lock()
	p, block := r.profile, r.block
	r.block = false
	r.mu.Unlock()
	if block {
		close(r.started)
		<-r.release
	}
	return p, nil
}

func (r *blockingResolver) set(p gate.Profile) {
	r.mu.Lock()
	r.profile = p
	r.mu.Unlock()
}

func TestCachedResolver_InvalidateDuringLoad(t *testing.T) {
	inner := &blockingResolver{
		profile: gate.NewStaticProfile("old", "devis:delete"),
		started: make(chan struct{}),
		release: make(chan struct{}),
		block:   true,
	}
	cached := gate.NewCachedResolver[uint](inner, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cached.Resolve(context.Background(), 7)
	}()
	<-inner.started

	inner.set(gate.NewStaticProfile("new", "devis:view"))
	cached.Invalidate(7)
	close(inner.release)
	<-done

	p, err := cached.Resolve(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "new" || p.HasPermission("devis:delete") {
		t.Errorf("stale profile cached after invalidation: %s", p.Name())
	}
}
