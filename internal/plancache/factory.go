package plancache

import (
	"context"
	"fmt"
	"time"
)

// New creates a Cache for the configured mode. The context is used when
// joining a team cluster; local backends ignore it.
func New(ctx context.Context, cfg *Config) (Cache, error) {
	log := logger().With().Str("mode", string(cfg.Mode)).Logger()

	resolved := *cfg
	// Single mode with no sizing gets the DefaultConfig ristretto sizing.
	if resolved.Mode == ModeSingle && resolved.Ristretto.NumCounters <= 0 && resolved.Ristretto.MaxCost <= 0 {
		resolved.Ristretto = DefaultConfig().Ristretto
	}

	if err := resolved.Validate(); err != nil {
		return nil, err
	}
	cfg = &resolved

	start := time.Now()

	var (
		c   Cache
		err error
	)
	switch cfg.Mode {
	case ModeSingle:
		c, err = newRistrettoCache(cfg.Ristretto)
	case ModeTeam:
		c, err = newOlricCache(ctx, &cfg.Olric)
	case ModeDisabled, "":
		c = newNoopCache()
	default:
		return nil, fmt.Errorf("plancache: unknown mode %q", cfg.Mode)
	}
	if err != nil {
		log.Error().Err(err).Msg("cache backend init failed")
		return nil, err
	}

	log.Debug().Dur("init_time", time.Since(start)).Msg("cache backend ready")
	return c, nil
}
