package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lumehealth/intake/internal/profile"
)

// Cache is the volatile profile tier consulted before the durable store.
// A miss is reported as ErrNotFound. Implemented by RedisCache and
// MemoryCache.
type Cache interface {
	Get(ctx context.Context, userID string) (profile.Profile, error)
	Set(ctx context.Context, p profile.Profile) error
	Delete(ctx context.Context, userID string) error
	Close() error
}

// Durable is the persistent tier and the source of truth.
// Implemented by *Store.
type Durable interface {
	SaveProfile(p profile.Profile) error
	GetProfile(userID string) (profile.Profile, error)
	DeleteProfile(userID string) error
}

// Tiered layers a cache over the durable store. Writes hit the durable store
// first, then write through to the cache. Cache failures are logged and
// absorbed; only durable failures reach the caller.
type Tiered struct {
	cache   Cache
	durable Durable
}

// NewTiered assembles the two-tier profile store.
func NewTiered(cache Cache, durable Durable) *Tiered {
	return &Tiered{cache: cache, durable: durable}
}

// GetProfile returns the profile from the cache when fresh, falling back to
// the durable store and repopulating the cache on a miss.
func (t *Tiered) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	p, err := t.cache.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		slog.Warn("profile cache read failed, using durable store", "user_id", userID, "error", err)
	}

	p, err = t.durable.GetProfile(userID)
	if err != nil {
		return profile.Profile{}, err
	}

	if err := t.cache.Set(ctx, p); err != nil {
		slog.Warn("profile cache repopulate failed", "user_id", userID, "error", err)
	}
	return p, nil
}

// SaveProfile persists the profile and writes it through to the cache.
func (t *Tiered) SaveProfile(ctx context.Context, p profile.Profile) error {
	if err := t.durable.SaveProfile(p); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	if err := t.cache.Set(ctx, p); err != nil {
		slog.Warn("profile cache write-through failed", "user_id", p.UserID, "error", err)
	}
	return nil
}

// DeleteProfile removes the profile from both tiers. The cache entry is
// dropped even when the durable row was already gone.
func (t *Tiered) DeleteProfile(ctx context.Context, userID string) error {
	derr := t.durable.DeleteProfile(userID)
	if derr != nil && !errors.Is(derr, ErrNotFound) {
		return derr
	}
	if err := t.cache.Delete(ctx, userID); err != nil {
		slog.Warn("profile cache delete failed", "user_id", userID, "error", err)
	}
	return derr
}
