package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/devrig/devrig/internal/substituter"
)

// SubstituterService wraps the binary cache lookup chain. Chain is nil
// when the manifest configures no substituters; callers fall back to
// building everything from source.
type SubstituterService struct {
	Chain *substituter.Chain
}

// NewSubstituters builds the lookup chain from the manifest's substituter
// list, with narinfo results cached in the plan cache.
func NewSubstituters(i do.Injector) (*SubstituterService, error) {
	manifestSvc := do.MustInvoke[*ManifestService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)
	cacheSvc := do.MustInvoke[*PlanCacheService](i)

	m := manifestSvc.Get()
	if len(m.Substituters) == 0 {
		return &SubstituterService{}, nil
	}

	chain, err := substituter.NewChainFromConfig(
		context.Background(),
		m.Substituters,
		trackerSvc.Tracker,
		cacheSvc.Cache,
		m.Cache.GetNarInfoTTL(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build substituter chain: %w", err)
	}

	return &SubstituterService{Chain: chain}, nil
}
