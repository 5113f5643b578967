package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devrig/devrig/cmd/devrig/di"
	"github.com/devrig/devrig/internal/health"
	"github.com/devrig/devrig/internal/lockfile"
	"github.com/devrig/devrig/internal/plancache"
	"github.com/devrig/devrig/internal/platform"
	"github.com/devrig/devrig/internal/provision"
	"github.com/devrig/devrig/internal/resolve"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show environment status",
	Long: `Show the current generation, whether the environment has drifted from
devrig.lock, and the health of configured substituters.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	container, err := di.NewContainer(manifestPath())
	if err != nil {
		return err
	}
	defer shutdownContainer(container)

	manifestSvc, err := di.Invoke[*di.ManifestService](container)
	if err != nil {
		return err
	}

	m := manifestSvc.Get()
	profileDir, err := di.ProfileDir(m)
	if err != nil {
		return err
	}
	plan, err := resolve.Resolve(m, platform.Detect(), resolve.Options{ProfileDir: profileDir})
	if err != nil {
		return err
	}

	printGeneration(container)
	printDrift(plan)
	printCache(container)
	printEndpoints(container, len(m.Substituters) > 0)

	return nil
}

func printGeneration(container *di.Container) {
	gensSvc, err := di.Invoke[*di.GenerationsService](container)
	if err != nil {
		fmt.Printf("generation: unavailable (%s)\n", err)
		return
	}

	current, err := gensSvc.Store.Current()
	if err != nil {
		if errors.Is(err, provision.ErrNoGenerations) {
			fmt.Println("generation: none (run `devrig up`)")
		} else {
			fmt.Printf("generation: unavailable (%s)\n", err)
		}
		return
	}

	fmt.Printf("generation: %s (%d packages, %s)\n",
		current.ID, len(current.Packages), current.CreatedAt.Format(time.RFC3339))
}

func printDrift(plan *resolve.Plan) {
	drift, err := lockfile.Check(lockfile.FileName, plan, nil)
	if err != nil {
		fmt.Printf("lock:       unreadable (%s)\n", err)
		return
	}

	if drift.InSync() {
		fmt.Println("lock:       ✓ in sync")
	} else {
		fmt.Printf("lock:       ✗ %s\n", drift.Summary())
	}
}

func printCache(container *di.Container) {
	cacheSvc, err := di.Invoke[*di.PlanCacheService](container)
	if err != nil {
		fmt.Printf("cache:      unavailable (%s)\n", err)
		return
	}
	fmt.Println(formatCacheLine(cacheSvc.Cache))
}

// formatCacheLine renders cache effectiveness. Backends without local
// statistics (noop, remote team client) report only their state.
func formatCacheLine(c plancache.Cache) string {
	provider, ok := c.(plancache.StatsProvider)
	if !ok {
		return "cache:      no local statistics"
	}
	s := provider.Stats()
	return fmt.Sprintf("cache:      %d hits, %d misses, %d keys, %d bytes",
		s.Hits, s.Misses, s.KeyCount, s.BytesUsed)
}

func printEndpoints(container *di.Container, configured bool) {
	if !configured {
		return
	}

	trackerSvc, err := di.Invoke[*di.HealthTrackerService](container)
	if err != nil {
		fmt.Printf("caches:     unavailable (%s)\n", err)
		return
	}

	states := trackerSvc.Tracker.AllStates()
	if len(states) == 0 {
		fmt.Println("caches:     no lookups yet")
		return
	}
	for name, state := range states {
		marker := "✓"
		if state == health.StateOpen {
			marker = "✗"
		}
		fmt.Printf("caches:     %s %s (%s)\n", marker, name, state)
	}
}
