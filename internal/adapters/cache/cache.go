// Package cache stores computed player focus results until they expire.
package cache

import (
	"context"
	"time"

	"github.com/okian/focusengine/internal/domain/types"
)

// DefaultTTL is how long a computed focus stays fresh.
const DefaultTTL = 24 * time.Hour

// Cache is a per-player focus cache. Concurrent writers for one player are
// last-write-wins.
type Cache interface {
	// Get returns the cached focus; ok is false on a miss or an expired entry.
	Get(ctx context.Context, playerID string) (focus *types.PlayerFocus, ok bool, err error)
	// Put stores focus for ttl.
	Put(ctx context.Context, playerID string, focus types.PlayerFocus, ttl time.Duration) error
	// Invalidate drops every entry.
	Invalidate(ctx context.Context) error
}

func expiry(focus types.PlayerFocus, now time.Time, ttl time.Duration) time.Time {
	if !focus.ExpiresAt.IsZero() {
		return focus.ExpiresAt
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.Add(ttl)
}
