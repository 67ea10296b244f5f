package ristretto

import (
	"context"
	"testing"

	"github.com/Strob0t/tbd/internal/port/cache/cachetest"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCompliance(t *testing.T) {
	cachetest.RunComplianceTests(t, newTestCache(t))
}

func TestZeroTTLDoesNotExpire(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := c.Get(ctx, "k"); !found {
		t.Fatal("expected hit for entry without TTL")
	}
}
