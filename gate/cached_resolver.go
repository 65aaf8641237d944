package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CachedResolver wraps a ProfileResolver with TTL-based caching.
// Concurrent misses for the same subject share a single inner lookup.
type CachedResolver[U comparable] struct {
	inner ProfileResolver[U]
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	cache map[U]cacheEntry
	// generation is bumped by InvalidateAll and subjectGen[subject] by
	// Invalidate; an in-flight load only stores its result when neither
	// moved since it started.
	generation uint64
	subjectGen map[U]uint64
	group      singleflight.Group
}

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

// NewCachedResolver wraps a resolver with caching.
func NewCachedResolver[U comparable](inner ProfileResolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner:      inner,
		ttl:        ttl,
		now:        time.Now,
		cache:      make(map[U]cacheEntry),
		subjectGen: make(map[U]uint64),
	}
}

// Resolve returns the profile for the subject, using the cache when fresh.
func (r *CachedResolver[U]) Resolve(ctx context.Context, subject U) (Profile, error) {
	r.mu.RLock()
	entry, ok := r.cache[subject]
	gen := r.generation
	sgen := r.subjectGen[subject]
	r.mu.RUnlock()

	if ok && r.now().Before(entry.expiresAt) {
		return entry.profile, nil
	}

	v, err, _ := r.group.Do(fmt.Sprintf("%v", subject), func() (any, error) {
		profile, err := r.inner.Resolve(ctx, subject)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		if r.generation == gen && r.subjectGen[subject] == sgen {
			r.cache[subject] = cacheEntry{profile: profile, expiresAt: r.now().Add(r.ttl)}
		}
		r.mu.Unlock()
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	profile, _ := v.(Profile)
	return profile, nil
}

// Invalidate removes a subject from the cache.
// Call this when the subject's role or individual grants change.
func (r *CachedResolver[U]) Invalidate(subject U) {
	r.mu.Lock()
	delete(r.cache, subject)
	r.subjectGen[subject]++
	r.group.Forget(fmt.Sprintf("%v", subject))
	r.mu.Unlock()
}

// InvalidateAll clears the entire cache.
// Call this when a role's permissions are modified.
func (r *CachedResolver[U]) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[U]cacheEntry)
	r.generation++
	r.mu.Unlock()
}
