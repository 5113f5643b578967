package plancache

import (
	"errors"
	"fmt"
	"time"
)

// Mode selects the cache backend.
type Mode string

const (
	// ModeSingle uses a local Ristretto cache (default).
	ModeSingle Mode = "single"

	// ModeTeam uses a distributed Olric cache shared across machines.
	ModeTeam Mode = "team"

	// ModeDisabled turns caching off.
	ModeDisabled Mode = "disabled"
)

// Config defines cache configuration, read from the manifest's [cache] table.
type Config struct {
	Mode      Mode            `toml:"mode" yaml:"mode"`
	Ristretto RistrettoConfig `toml:"ristretto" yaml:"ristretto"`
	Olric     OlricConfig     `toml:"olric" yaml:"olric"`

	// NarInfoTTL bounds how long substituter lookup results stay valid.
	// Zero means DefaultNarInfoTTL.
	NarInfoTTL time.Duration `toml:"narinfo_ttl" yaml:"narinfo_ttl"`
}

// DefaultNarInfoTTL is applied when Config.NarInfoTTL is zero. Binary cache
// contents are append-mostly, so an hour is a safe staleness bound.
const DefaultNarInfoTTL = time.Hour

// GetNarInfoTTL returns the narinfo TTL with default fallback.
func (c *Config) GetNarInfoTTL() time.Duration {
	if c.NarInfoTTL <= 0 {
		return DefaultNarInfoTTL
	}
	return c.NarInfoTTL
}

// RistrettoConfig configures the local backend.
type RistrettoConfig struct {
	// NumCounters is the number of 4-bit admission counters; use roughly
	// 10x the expected key count.
	NumCounters int64 `toml:"num_counters" yaml:"num_counters"`

	// MaxCost caps cache memory in bytes of stored values.
	MaxCost int64 `toml:"max_cost" yaml:"max_cost"`

	// BufferItems is the Get buffer size. 64 is the recommended default.
	BufferItems int64 `toml:"buffer_items" yaml:"buffer_items"`
}

// OlricConfig configures the team backend. In embedded mode devrig runs an
// Olric node itself; otherwise it connects to an existing cluster.
type OlricConfig struct {
	DMapName     string   `toml:"dmap_name" yaml:"dmap_name"`
	BindAddr     string   `toml:"bind_addr" yaml:"bind_addr"`
	Addresses    []string `toml:"addresses" yaml:"addresses"`
	Peers        []string `toml:"peers" yaml:"peers"`
	ReplicaCount int      `toml:"replica_count" yaml:"replica_count"`
	Embedded     bool     `toml:"embedded" yaml:"embedded"`
}

// Validate checks the configuration before a backend is built.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSingle:
		if c.Ristretto.NumCounters <= 0 {
			return errors.New("plancache: ristretto.num_counters must be positive")
		}
		if c.Ristretto.MaxCost <= 0 {
			return errors.New("plancache: ristretto.max_cost must be positive")
		}
	case ModeTeam:
		if c.Olric.Embedded && c.Olric.BindAddr == "" {
			return errors.New("plancache: olric.bind_addr required when embedded")
		}
		if !c.Olric.Embedded && len(c.Olric.Addresses) == 0 {
			return errors.New("plancache: olric.addresses required when not embedded")
		}
	case ModeDisabled, "":
		// Empty mode defaults to disabled; nothing to validate.
	default:
		return fmt.Errorf("plancache: unknown mode %q", c.Mode)
	}
	return nil
}

// DefaultConfig returns the baseline single-mode configuration: a modest
// local cache. New falls back to its ristretto sizing when the manifest
// enables single mode without explicit sizes.
func DefaultConfig() Config {
	return Config{
		Mode: ModeSingle,
		Ristretto: RistrettoConfig{
			NumCounters: 100_000,
			MaxCost:     32 << 20, // 32 MB
			BufferItems: 64,
		},
	}
}
