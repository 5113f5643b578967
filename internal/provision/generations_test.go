package provision_test

import (
	"errors"
	"testing"
	"time"

	"github.com/devrig/devrig/internal/provision"
)

func TestGenerationStoreEmpty(t *testing.T) {
	t.Parallel()

	gens, err := provision.NewGenerationStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewGenerationStore failed: %v", err)
	}

	if _, err := gens.Current(); !errors.Is(err, provision.ErrNoGenerations) {
		t.Errorf("expected ErrNoGenerations, got %v", err)
	}
	if _, err := gens.Rollback(); !errors.Is(err, provision.ErrNoGenerations) {
		t.Errorf("expected ErrNoGenerations from rollback, got %v", err)
	}
}

func TestGenerationStoreRecordAndCurrent(t *testing.T) {
	t.Parallel()

	gens, err := provision.NewGenerationStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewGenerationStore failed: %v", err)
	}

	plan := testPlan(t, "git", "jq")
	gen, err := gens.Record(plan)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if gen.ID == "" {
		t.Fatal("expected generation ID")
	}
	if gen.Digest != plan.Digest {
		t.Errorf("digest = %s, want %s", gen.Digest, plan.Digest)
	}

	current, err := gens.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.ID != gen.ID {
		t.Errorf("current = %s, want %s", current.ID, gen.ID)
	}
	if len(current.Packages) != 2 {
		t.Errorf("expected 2 packages in record, got %v", current.Packages)
	}
}

func TestGenerationStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	gens, err := provision.NewGenerationStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewGenerationStore failed: %v", err)
	}

	var ids []string
	for _, pkg := range []string{"git", "jq", "ripgrep"} {
		gen, err := gens.Record(testPlan(t, pkg))
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		ids = append(ids, gen.ID)
		// CreatedAt ordering needs distinct timestamps.
		time.Sleep(5 * time.Millisecond)
	}

	list, err := gens.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 generations, got %d", len(list))
	}
	if list[0].ID != ids[2] || list[2].ID != ids[0] {
		t.Errorf("expected newest-first ordering, got %s..%s", list[0].ID, list[2].ID)
	}
}

func TestGenerationStoreRollback(t *testing.T) {
	t.Parallel()

	gens, err := provision.NewGenerationStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewGenerationStore failed: %v", err)
	}

	first, err := gens.Record(testPlan(t, "git"))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := gens.Record(testPlan(t, "git", "jq")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	prev, err := gens.Rollback()
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if prev.ID != first.ID {
		t.Errorf("rollback landed on %s, want %s", prev.ID, first.ID)
	}

	current, err := gens.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.ID != first.ID {
		t.Errorf("current after rollback = %s, want %s", current.ID, first.ID)
	}

	if _, err := gens.Rollback(); err == nil {
		t.Error("expected error rolling back past the oldest generation")
	}
}
