// Package services implements the business operations behind the HTTP API.
package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PermissionCache is invalidated after role or grant changes.
// *gate.CachedResolver[uint] and *policy.AuthGate satisfy it.
type PermissionCache interface {
	Invalidate(garagisteID uint)
	InvalidateAll()
}

type noopCache struct{}

func (noopCache) Invalidate(uint) {}
func (noopCache) InvalidateAll()  {}

// Clock returns the current time; tests replace it.
type Clock func() time.Time

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func link(base, path, token string) string {
	return strings.TrimRight(base, "/") + path + "?token=" + token
}
