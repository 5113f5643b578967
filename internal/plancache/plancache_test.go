package plancache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKeyNamespaces(t *testing.T) {
	t.Parallel()

	if got := PlanKey("abc123"); got != "plan:abc123" {
		t.Errorf("PlanKey = %q", got)
	}
	if got := NarInfoKey("h9x"); got != "narinfo:h9x" {
		t.Errorf("NarInfoKey = %q", got)
	}
	if PlanKey("x") == NarInfoKey("x") {
		t.Error("plan and narinfo keys must not collide")
	}
}

func TestNoopCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newNoopCache()

	if err := c.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	exists, err := c.Exists(ctx, "k")
	if err != nil || exists {
		t.Errorf("Expected exists=false, got %v err=%v", exists, err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Set(ctx, "k", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed after close, got %v", err)
	}
}

func TestRistrettoCacheRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, err := newRistrettoCache(DefaultConfig().Ristretto)
	if err != nil {
		t.Fatalf("newRistrettoCache failed: %v", err)
	}
	defer c.Close()

	key := PlanKey("digest-1")
	if err := c.Set(ctx, key, []byte(`{"packages":["git"]}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Ristretto admits writes asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	var got []byte
	for time.Now().Before(deadline) {
		got, err = c.Get(ctx, key)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Get never succeeded: %v", err)
	}
	if string(got) != `{"packages":["git"]}` {
		t.Errorf("Got %q", got)
	}

	// Mutating the returned slice must not affect the cached copy.
	got[0] = 'X'
	again, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if again[0] == 'X' {
		t.Error("cached value was mutated through the returned slice")
	}
}

func TestRistrettoCacheClosed(t *testing.T) {
	t.Parallel()

	c, err := newRistrettoCache(DefaultConfig().Ristretto)
	if err != nil {
		t.Fatalf("newRistrettoCache failed: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close should be idempotent: %v", err)
	}

	ctx := context.Background()
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := c.Delete(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestFactoryModes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cfg := DefaultConfig()
	c, err := New(ctx, &cfg)
	if err != nil {
		t.Fatalf("New(single) failed: %v", err)
	}
	if _, ok := c.(*ristrettoCache); !ok {
		t.Errorf("Expected ristretto backend, got %T", c)
	}
	c.Close()

	disabled := Config{Mode: ModeDisabled}
	c, err = New(ctx, &disabled)
	if err != nil {
		t.Fatalf("New(disabled) failed: %v", err)
	}
	if _, ok := c.(*noopCache); !ok {
		t.Errorf("Expected noop backend, got %T", c)
	}
	c.Close()

	bad := Config{Mode: "cluster"}
	if _, err := New(ctx, &bad); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestFactorySingleModeDefaultSizing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// mode = "single" with no sizing must get the DefaultConfig sizing
	// instead of failing validation.
	bare := Config{Mode: ModeSingle}
	c, err := New(ctx, &bare)
	if err != nil {
		t.Fatalf("New(single, unsized) failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*ristrettoCache); !ok {
		t.Fatalf("Expected ristretto backend, got %T", c)
	}
	// The caller's config is not mutated.
	if bare.Ristretto.NumCounters != 0 {
		t.Errorf("Caller config mutated: NumCounters = %d", bare.Ristretto.NumCounters)
	}
}
