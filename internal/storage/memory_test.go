package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumehealth/intake/internal/profile"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	ctx := context.Background()

	p := profile.New("user-1")
	if err := c.Set(ctx, p); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := c.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q", got.UserID)
	}
}

func TestMemoryCache_MissReturnsNotFound(t *testing.T) {
	c := NewMemoryCache(time.Hour)

	_, err := c.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCacheWithClock(clock, time.Hour)
	ctx := context.Background()

	if err := c.Set(ctx, profile.New("user-ttl")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	clock.Advance(59 * time.Minute)
	if _, err := c.Get(ctx, "user-ttl"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := c.Get(ctx, "user-ttl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after expiry = %v, want ErrNotFound", err)
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not dropped, Len = %d", c.Len())
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	ctx := context.Background()

	if err := c.Set(ctx, profile.New("user-del")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Delete(ctx, "user-del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "user-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

// TestMemoryCache_CopiesOnReadAndWrite verifies that mutating a profile after
// Set, or the one returned by Get, does not reach the cached copy.
func TestMemoryCache_CopiesOnReadAndWrite(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	ctx := context.Background()

	p := profile.New("user-copy")
	if err := c.Set(ctx, p); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := p.Apply(map[string]any{"age": 40}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := c.Get(ctx, "user-copy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Age != nil {
		t.Errorf("caller mutation leaked into cache: Age = %v", *got.Age)
	}

	if _, err := got.Apply(map[string]any{"age": 50}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	again, err := c.Get(ctx, "user-copy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Age != nil {
		t.Errorf("read copy mutation leaked into cache: Age = %v", *again.Age)
	}
}
