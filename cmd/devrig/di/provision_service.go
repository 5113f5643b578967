package di

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/devrig/devrig/internal/manifest"
	"github.com/devrig/devrig/internal/provision"
	"github.com/devrig/devrig/internal/substituter"
)

// ProfileDir resolves the profile directory from the manifest, defaulting
// to ~/.devrig/profile.
func ProfileDir(m *manifest.Manifest) (string, error) {
	if m.Provision.ProfileDir != "" {
		return m.Provision.ProfileDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".devrig", "profile"), nil
}

// StateDir resolves the state directory from the manifest, defaulting to
// ~/.devrig/state.
func StateDir(m *manifest.Manifest) (string, error) {
	if m.Provision.StateDir != "" {
		return m.Provision.StateDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".devrig", "state"), nil
}

// GenerationsService wraps the generation store.
type GenerationsService struct {
	Store *provision.GenerationStore
}

// NewGenerations creates the generation store under the state directory.
func NewGenerations(i do.Injector) (*GenerationsService, error) {
	manifestSvc := do.MustInvoke[*ManifestService](i)

	stateDir, err := StateDir(manifestSvc.Get())
	if err != nil {
		return nil, err
	}
	store, err := provision.NewGenerationStore(stateDir)
	if err != nil {
		return nil, err
	}
	return &GenerationsService{Store: store}, nil
}

// ProvisionService assembles provisioners on demand so `up` and
// `up --dry-run` share every dependency except the runner.
type ProvisionService struct {
	manifest *ManifestService
	logger   *LoggerService
	journal  *JournalService
	chain    *SubstituterService
	gens     *GenerationsService
}

// NewProvision wires the provision service from the container.
func NewProvision(i do.Injector) (*ProvisionService, error) {
	return &ProvisionService{
		manifest: do.MustInvoke[*ManifestService](i),
		logger:   do.MustInvoke[*LoggerService](i),
		journal:  do.MustInvoke[*JournalService](i),
		chain:    do.MustInvoke[*SubstituterService](i),
		gens:     do.MustInvoke[*GenerationsService](i),
	}, nil
}

// Provisioner builds a provisioner. A dry run logs the steps it would
// take and records no generation.
func (s *ProvisionService) Provisioner(dryRun bool) *provision.Provisioner {
	m := s.manifest.Get()

	var lookup provision.Lookuper
	if s.chain.Chain != nil {
		if m.Provision.LookupRace {
			lookup = substituter.RacingChain{Chain: s.chain.Chain}
		} else {
			lookup = s.chain.Chain
		}
	}

	var runner provision.Runner
	if dryRun {
		runner = &provision.DryRunRunner{Logger: s.logger.Logger}
	} else {
		exec := &provision.ExecRunner{Logger: s.logger.Logger}
		if s.chain.Chain != nil {
			exec.Fetch = s.chain.Chain.FetchNar
		}
		runner = exec
	}

	gens := s.gens.Store
	if dryRun {
		gens = nil
	}
	return provision.New(runner, lookup, s.journal.Journal, gens, m.Provision, s.logger.Logger)
}
