package lockfile

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/devrig/devrig/internal/journal"
	"github.com/devrig/devrig/internal/resolve"
)

// Drift describes how a fresh resolution differs from the lock.
type Drift struct {
	Platform string
	// Missing means the lock has no entry for this platform yet.
	Missing bool
	// Recorded and Current are the lock's digest and the fresh one.
	Recorded string
	Current  string
	// AddedPackages and RemovedPackages are relative to the lock.
	AddedPackages   []string
	RemovedPackages []string
}

// InSync reports whether the environment matches the lock.
func (d Drift) InSync() bool {
	return !d.Missing && d.Recorded == d.Current
}

// Summary is a one-line human description for status output.
func (d Drift) Summary() string {
	switch {
	case d.Missing:
		return fmt.Sprintf("no lock entry for %s; run `devrig up` to record one", d.Platform)
	case d.InSync():
		return "in sync with lock"
	default:
		return fmt.Sprintf("drifted from lock (+%d/-%d packages)", len(d.AddedPackages), len(d.RemovedPackages))
	}
}

// Check compares a fresh plan against the lock at path. When a journal is
// supplied, drift is published as an event so watchers see it.
func Check(path string, plan *resolve.Plan, j *journal.Journal) (Drift, error) {
	data, err := Load(path)
	if err != nil {
		return Drift{}, err
	}

	drift := Drift{Platform: plan.Platform, Current: plan.Digest}
	entry, ok := Lookup(data, plan.Platform)
	if !ok {
		drift.Missing = true
	} else {
		drift.Recorded = entry.Digest
		drift.AddedPackages, drift.RemovedPackages = lo.Difference(plan.Packages, entry.Packages)
	}

	if !drift.InSync() && j != nil {
		j.Publish(journal.Event{
			Kind:    journal.KindDrift,
			Message: drift.Summary(),
		})
	}
	return drift, nil
}
