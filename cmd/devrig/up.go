package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/ro"
	"github.com/spf13/cobra"

	"github.com/devrig/devrig/cmd/devrig/di"
	"github.com/devrig/devrig/internal/journal"
	"github.com/devrig/devrig/internal/lockfile"
	"github.com/devrig/devrig/internal/plancache"
	"github.com/devrig/devrig/internal/platform"
	"github.com/devrig/devrig/internal/resolve"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Materialize the environment",
	Long: `Resolve the manifest for this host, fetch packages from binary caches
where possible (building from source otherwise), link them into the
profile, record a generation, and update devrig.lock.`,
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
	upCmd.Flags().Bool("dry-run", false, "print the steps without executing them")
	upCmd.Flags().Bool("verbose", false, "stream provisioning events")
}

func runUp(cmd *cobra.Command, _ []string) error {
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}

	container, err := di.NewContainer(manifestPath())
	if err != nil {
		return err
	}
	defer shutdownContainer(container)

	manifestSvc, err := di.Invoke[*di.ManifestService](container)
	if err != nil {
		return err
	}
	loggerSvc := di.MustInvoke[*di.LoggerService](container)
	log.Logger = *loggerSvc.Logger
	zerolog.DefaultContextLogger = loggerSvc.Logger

	m := manifestSvc.Get()
	profileDir, err := di.ProfileDir(m)
	if err != nil {
		return err
	}
	plan, err := resolve.Resolve(m, platform.Detect(), resolve.Options{ProfileDir: profileDir})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	journalSvc := di.MustInvoke[*di.JournalService](container)
	if verbose {
		stopStream := streamEvents(journalSvc.Journal, loggerSvc.Logger)
		defer stopStream()
	}

	if len(m.Substituters) > 0 && !dryRun {
		proberSvc := di.MustInvoke[*di.ProberService](container)
		proberSvc.Prober.Start()
	}

	provisionSvc := di.MustInvoke[*di.ProvisionService](container)
	result, err := provisionSvc.Provisioner(dryRun).Up(ctx, plan)
	if err != nil {
		return err
	}

	if !dryRun {
		if err := lockfile.Record(lockfile.FileName, plan); err != nil {
			return err
		}
		storePlan(ctx, container, plan)
	}

	fmt.Printf("✓ %d substituted, %d built in %s\n",
		len(result.Substituted), len(result.Built), result.Duration.Round(time.Millisecond))
	if result.Generation != "" {
		fmt.Printf("  generation %s\n", result.Generation)
	}

	return nil
}

// storePlan publishes the applied plan under its digest so rollback can
// read it back, and teammates on a shared team cache see what was applied.
// Cache trouble never fails an up that already succeeded.
func storePlan(ctx context.Context, container *di.Container, plan *resolve.Plan) {
	cacheSvc, err := di.Invoke[*di.PlanCacheService](container)
	if err != nil {
		return
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return
	}
	if err := cacheSvc.Cache.Set(ctx, plancache.PlanKey(plan.Digest), data); err != nil {
		log.Debug().Err(err).Str("digest", plan.Digest).Msg("plan cache store failed")
	}
}

// loadCachedPlan fetches a previously applied plan by digest. A miss is
// not an error; callers degrade to digest-only output.
func loadCachedPlan(ctx context.Context, container *di.Container, digest string) *resolve.Plan {
	cacheSvc, err := di.Invoke[*di.PlanCacheService](container)
	if err != nil {
		return nil
	}
	data, err := cacheSvc.Cache.Get(ctx, plancache.PlanKey(digest))
	if err != nil {
		return nil
	}
	var plan resolve.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil
	}
	return &plan
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// streamEventsPerSecond caps verbose output so a burst of parallel
// lookups does not flood the terminal.
const streamEventsPerSecond = 25

// streamEvents subscribes to the journal and logs each event as it lands,
// throttled to streamEventsPerSecond.
func streamEvents(j *journal.Journal, logger *zerolog.Logger) func() {
	events, cancel := j.Subscribe()
	done := make(chan struct{})

	journal.Throttled(events, streamEventsPerSecond).Subscribe(ro.NewObserver(
		func(ev journal.Event) {
			evt := logger.Info().
				Str("kind", string(ev.Kind)).
				Str("package", ev.Package)
			if ev.Endpoint != "" {
				evt = evt.Str("endpoint", ev.Endpoint)
			}
			if ev.Err != "" {
				evt = evt.Str("error", ev.Err)
			}
			evt.Msg("provision event")
		},
		func(_ error) {},
		func() { close(done) },
	))

	return func() {
		cancel()
		<-done
	}
}

func shutdownContainer(container *di.Container) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := container.ShutdownWithContext(ctx); err != nil {
		log.Warn().Err(err).Msg("container shutdown error")
	}
}
