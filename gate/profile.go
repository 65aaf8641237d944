package gate

import (
	"context"
	"sync"
)

// Profile is the resolved authorization view of a subject: a display name
// (usually its role) and the effective permission set.
type Profile interface {
	Name() string
	HasPermission(permission Permission) bool
	Permissions() PermissionSet
}

// ProfileResolver resolves a subject to its profile.
// A nil profile with a nil error means the subject exists but holds nothing.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, subject U) (Profile, error)
}

// StaticProfile is a simple in-memory profile implementation.
type StaticProfile struct {
	name  string
	perms PermissionSet
}

// NewStaticProfile creates a profile with the given permissions.
func NewStaticProfile(name string, permissions ...Permission) *StaticProfile {
	return &StaticProfile{name: name, perms: NewPermissionSet(permissions...)}
}

func (p *StaticProfile) Name() string               { return p.name }
func (p *StaticProfile) Permissions() PermissionSet { return p.perms }

// HasPermission checks if the profile has the requested permission, wildcards included.
func (p *StaticProfile) HasPermission(requested Permission) bool {
	return p.perms.Allows(requested)
}

// StaticResolver is an in-memory resolver for tests and fixed configurations.
type StaticResolver[U comparable] struct {
	mu       sync.RWMutex
	profiles map[U]Profile
	calls    int
}

func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{profiles: make(map[U]Profile)}
}

// Set assigns a profile to a subject.
func (r *StaticResolver[U]) Set(subject U, profile Profile) {
	r.mu.Lock()
	r.profiles[subject] = profile
	r.mu.Unlock()
}

// Resolve returns the profile for the given subject.
func (r *StaticResolver[U]) Resolve(_ context.Context, subject U) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.profiles[subject], nil
}

// Calls returns how many times Resolve was invoked.
func (r *StaticResolver[U]) Calls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls
}
