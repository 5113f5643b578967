package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devrig/devrig/cmd/devrig/di"
	"github.com/devrig/devrig/internal/journal"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Switch back to the previous generation",
	Long: `Point the current generation at the one before it. The profile is not
rewritten; run devrig up to re-link it against the rolled-back plan.`,
	RunE: runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(_ *cobra.Command, _ []string) error {
	container, err := di.NewContainer(manifestPath())
	if err != nil {
		return err
	}
	defer shutdownContainer(container)

	gensSvc, err := di.Invoke[*di.GenerationsService](container)
	if err != nil {
		return err
	}

	prev, err := gensSvc.Store.Rollback()
	if err != nil {
		return err
	}

	journalSvc := di.MustInvoke[*di.JournalService](container)
	journalSvc.Journal.Publish(journal.Event{
		Kind:       journal.KindGeneration,
		Generation: prev.ID,
		Message:    "rolled back",
	})

	fmt.Printf("✓ rolled back to generation %s (%d packages)\n", prev.ID, len(prev.Packages))
	if plan := loadCachedPlan(context.Background(), container, prev.Digest); plan != nil {
		fmt.Printf("  cached plan for %s: %d packages, digest %s\n",
			plan.Platform, len(plan.Packages), plan.Digest)
	}
	fmt.Println("  run `devrig up` to re-link the profile")

	return nil
}
