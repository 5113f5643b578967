package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Manifest (no dependencies)
// 2. Logger (depends on Manifest)
// 3. Journal (no dependencies)
// 4. PlanCache (depends on Manifest, Logger)
// 5. HealthTracker (depends on Manifest, Logger)
// 6. Prober (depends on Manifest, HealthTracker, Logger)
// 7. Substituters (depends on Manifest, HealthTracker, PlanCache)
// 8. Generations (depends on Manifest)
// 9. Provision (depends on all above services).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewManifest)
	do.Provide(i, NewLogger)
	do.Provide(i, NewJournal)
	do.Provide(i, NewPlanCache)
	do.Provide(i, NewHealthTracker)
	do.Provide(i, NewProber)
	do.Provide(i, NewSubstituters)
	do.Provide(i, NewGenerations)
	do.Provide(i, NewProvision)
}
