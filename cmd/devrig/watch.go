package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/devrig/devrig/cmd/devrig/di"
	"github.com/devrig/devrig/internal/journal"
	"github.com/devrig/devrig/internal/manifest"
	"github.com/devrig/devrig/internal/platform"
	"github.com/devrig/devrig/internal/resolve"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the manifest and report plan changes",
	Long: `Watch the manifest file and re-resolve on every change, logging what
the change adds, removes, or rewires. Nothing is installed; run
devrig up to materialize a changed plan.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
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

	journalSvc := di.MustInvoke[*di.JournalService](container)

	m := manifestSvc.Get()
	profileDir, err := di.ProfileDir(m)
	if err != nil {
		return err
	}

	host := platform.Detect()
	current, err := resolve.Resolve(m, host, resolve.Options{ProfileDir: profileDir})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	stopStream := streamEvents(journalSvc.Journal, loggerSvc.Logger)
	defer stopStream()

	// Re-resolve on every reload and log the plan diff. The reload swap
	// itself is handled by the service callback; this one only diffs.
	err = manifestSvc.StartWatching(ctx, journalSvc.Journal, func(next *manifest.Manifest) error {
		plan, err := resolve.Resolve(next, host, resolve.Options{ProfileDir: profileDir})
		if err != nil {
			return err
		}

		diff := resolve.Compare(current, plan)
		if diff.Empty() {
			log.Info().Msg("manifest changed, plan unchanged")
			return nil
		}

		log.Info().
			Strs("added", diff.AddedPackages).
			Strs("removed", diff.RemovedPackages).
			Strs("env_changed", diff.ChangedEnv).
			Str("digest", plan.Digest).
			Msg("plan changed, run `devrig up` to apply")
		journalSvc.Journal.Publish(journal.Event{
			Kind:    journal.KindReload,
			Message: fmt.Sprintf("plan changed (+%d/-%d packages)", len(diff.AddedPackages), len(diff.RemovedPackages)),
		})

		current = plan
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("path", manifestSvc.Path()).Msg("watching manifest")

	<-ctx.Done()
	return nil
}
