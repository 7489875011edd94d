package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/infra/cache"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestLocal_SetAndGet(t *testing.T) {
	c := cache.New[*domain.Grants](5 * time.Minute)
	defer c.Close()

	c.Set("user-1/company", &domain.Grants{Roles: []string{"company"}})
	val, ok := c.Get("user-1/company")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if len(val.Roles) != 1 || val.Roles[0] != "company" {
		t.Errorf("unexpected grants %+v", val)
	}

	if _, ok := c.Get("user-2/company"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestLocal_ExpiryFollowsClock(t *testing.T) {
	clock := &manualClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string](time.Minute, cache.WithClock(clock.now), cache.WithSweepInterval(time.Hour))
	defer c.Close()

	c.Set("k", "v")
	clock.advance(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}

	clock.advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to be expired at its deadline")
	}
	if c.Len() != 1 {
		t.Fatalf("expired entry should stay until swept, len=%d", c.Len())
	}
	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept entry, got %d", removed)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after sweep, len=%d", c.Len())
	}
}

func TestLocal_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestLocal_CloseIsIdempotent(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Close()
	c.Close()
}
