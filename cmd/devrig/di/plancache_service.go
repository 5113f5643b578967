package di

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/devrig/devrig/internal/plancache"
)

// PlanCacheService wraps the plan/narinfo cache implementation.
type PlanCacheService struct {
	Cache plancache.Cache
}

// NewPlanCache creates the cache based on the manifest's cache section.
func NewPlanCache(i do.Injector) (*PlanCacheService, error) {
	manifestSvc := do.MustInvoke[*ManifestService](i)
	do.MustInvoke[*LoggerService](i)

	// Olric embedded-member startup can take a while; bound it.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := manifestSvc.Get().Cache
	c, err := plancache.New(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}

	return &PlanCacheService{Cache: c}, nil
}

// Shutdown implements do.Shutdowner for graceful cache cleanup.
func (s *PlanCacheService) Shutdown() error {
	if s.Cache != nil {
		return s.Cache.Close()
	}
	return nil
}
