package cache

import (
	"context"
	"errors"
	"time"

	"github.com/okian/focusengine/internal/adapters/repository"
	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/internal/domain/types"
	"github.com/okian/focusengine/pkg/metrics"
)

const backendStore = "store"

// StoreCache keeps focus results in the row store's focus cache table.
type StoreCache struct {
	store repository.FocusCacheStore
	now   func() time.Time
}

var _ Cache = (*StoreCache)(nil)

// NewStoreCache creates a cache over store.
func NewStoreCache(store repository.FocusCacheStore, opts ...StoreOption) *StoreCache {
	c := &StoreCache{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements Cache. Expired rows are misses and are left for the next
// Put to overwrite.
func (c *StoreCache) Get(ctx context.Context, playerID string) (*types.PlayerFocus, bool, error) {
	entry, err := c.store.GetFocus(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordCacheOperation(backendStore, "miss")
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordCacheOperation(backendStore, "error")
		return nil, false, err
	}
	if entry.Expired(c.now()) {
		metrics.RecordCacheOperation(backendStore, "expired")
		return nil, false, nil
	}
	metrics.RecordCacheOperation(backendStore, "hit")
	focus := entry.Focus()
	return &focus, true, nil
}

// Put implements Cache.
func (c *StoreCache) Put(ctx context.Context, playerID string, focus types.PlayerFocus, ttl time.Duration) error {
	focus.PlayerID = playerID
	focus.ExpiresAt = expiry(focus, c.now(), ttl)
	if err := c.store.PutFocus(ctx, model.NewFocusCacheEntry(focus)); err != nil {
		metrics.RecordCacheOperation(backendStore, "error")
		return err
	}
	metrics.RecordCacheOperation(backendStore, "put")
	return nil
}

// Invalidate implements Cache.
func (c *StoreCache) Invalidate(ctx context.Context) error {
	return c.store.DeleteAllFocus(ctx)
}
