package provision

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/devrig/devrig/internal/resolve"
)

// ErrNoGenerations is returned when the store holds no generations yet.
var ErrNoGenerations = errors.New("provision: no generations recorded")

// Generation is one applied plan, recorded so environments can be listed
// and rolled back.
type Generation struct {
	ID        string    `json:"id"`
	Digest    string    `json:"digest"`
	Platform  string    `json:"platform"`
	Packages  []string  `json:"packages"`
	CreatedAt time.Time `json:"created_at"`
}

// currentFile names the pointer file holding the active generation ID.
const currentFile = "current"

// GenerationStore persists generations under <stateDir>/generations.
// Writes are atomic renames, so a crash never leaves a half-written
// generation or pointer file.
type GenerationStore struct {
	dir string
}

// NewGenerationStore creates the store rooted at stateDir.
func NewGenerationStore(stateDir string) (*GenerationStore, error) {
	dir := filepath.Join(stateDir, "generations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("provision: create generations dir: %w", err)
	}
	return &GenerationStore{dir: dir}, nil
}

// Record writes a new generation for the plan and points current at it.
func (s *GenerationStore) Record(plan *resolve.Plan) (*Generation, error) {
	gen := &Generation{
		ID:        uuid.New().String(),
		Digest:    plan.Digest,
		Platform:  plan.Platform,
		Packages:  plan.Packages,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(gen, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("provision: encode generation: %w", err)
	}

	path := filepath.Join(s.dir, gen.ID+".json")
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("provision: write generation: %w", err)
	}

	pointer := filepath.Join(s.dir, currentFile)
	if err := renameio.WriteFile(pointer, []byte(gen.ID+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("provision: update current pointer: %w", err)
	}
	return gen, nil
}

// Current returns the active generation.
func (s *GenerationStore) Current() (*Generation, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoGenerations
		}
		return nil, fmt.Errorf("provision: read current pointer: %w", err)
	}
	id := strings.TrimSpace(string(data))
	return s.Get(id)
}

// Get loads one generation by ID.
func (s *GenerationStore) Get(id string) (*Generation, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoGenerations
		}
		return nil, fmt.Errorf("provision: read generation %s: %w", id, err)
	}
	var gen Generation
	if err := json.Unmarshal(data, &gen); err != nil {
		return nil, fmt.Errorf("provision: decode generation %s: %w", id, err)
	}
	return &gen, nil
}

// List returns all generations, newest first.
func (s *GenerationStore) List() ([]*Generation, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("provision: list generations: %w", err)
	}

	var gens []*Generation
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		gen, err := s.Get(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		gens = append(gens, gen)
	}

	sort.Slice(gens, func(i, j int) bool {
		return gens[i].CreatedAt.After(gens[j].CreatedAt)
	})
	return gens, nil
}

// Rollback points current at the previous generation and returns it.
func (s *GenerationStore) Rollback() (*Generation, error) {
	current, err := s.Current()
	if err != nil {
		return nil, err
	}

	gens, err := s.List()
	if err != nil {
		return nil, err
	}

	for i, gen := range gens {
		if gen.ID == current.ID {
			if i+1 >= len(gens) {
				return nil, fmt.Errorf("provision: no generation before %s", current.ID)
			}
			prev := gens[i+1]
			pointer := filepath.Join(s.dir, currentFile)
			if err := renameio.WriteFile(pointer, []byte(prev.ID+"\n"), 0o644); err != nil {
				return nil, fmt.Errorf("provision: update current pointer: %w", err)
			}
			return prev, nil
		}
	}
	return nil, ErrNoGenerations
}
