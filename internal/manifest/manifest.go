// Package manifest provides loading, parsing, and validation of the devrig
// environment descriptor.
package manifest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/devrig/devrig/internal/plancache"
	"github.com/devrig/devrig/internal/substituter"
)

// Descriptor errors.
var (
	ErrNoPackages = errors.New("manifest: no packages declared")
)

// DuplicatePackageError is returned when a package identifier appears twice
// in the same list.
type DuplicatePackageError struct {
	Package string
}

func (e DuplicatePackageError) Error() string {
	return fmt.Sprintf("manifest: duplicate package %q", e.Package)
}

// RuntimeManifest is the read side of a hot-reloadable manifest. Components
// that outlive a single command should hold this instead of a *Manifest,
// which goes stale after the watcher swaps in a new parse.
type RuntimeManifest interface {
	Get() *Manifest
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Manifest is the environment descriptor: what packages to install, which
// language integrations to activate, and what to export into the shell.
// It is pure data; evaluation happens in resolve and provision.
type Manifest struct {
	// Name labels the environment in logs and status output. Optional.
	Name string `toml:"name" yaml:"name"`

	Packages  PackagesConfig            `toml:"packages" yaml:"packages"`
	Languages map[string]LanguageConfig `toml:"languages" yaml:"languages"`
	Env       map[string]string         `toml:"env" yaml:"env"`

	// Tool-side sections, not part of the descriptor contract.
	Logging      LoggingConfig                `toml:"logging" yaml:"logging"`
	Cache        plancache.Config             `toml:"cache" yaml:"cache"`
	Substituters []substituter.EndpointConfig `toml:"substituters" yaml:"substituters"`
	Provision    ProvisionConfig              `toml:"provision" yaml:"provision"`
}

// PackagesConfig partitions the package list into the unconditional base
// set and platform-gated groups.
type PackagesConfig struct {
	// Base packages are installed on every host.
	Base []string `toml:"base" yaml:"base"`

	// Platform groups are appended when their predicate matches the host.
	Platform []PlatformGroup `toml:"platform" yaml:"platform"`
}

// PlatformGroup is a conditionally included package subset.
type PlatformGroup struct {
	// Match is a platform predicate: an OS family ("darwin"), an os/arch
	// pair ("linux/arm64"), or "any".
	Match string `toml:"match" yaml:"match"`

	// Add lists the packages appended when Match holds.
	Add []string `toml:"add" yaml:"add"`
}

// LanguageConfig is one language integration toggle plus its options.
type LanguageConfig struct {
	Enable bool `toml:"enable" yaml:"enable"`

	// Channel selects a toolchain channel where the language has one
	// (e.g. "stable" or "nightly" for rust). Empty means the default.
	Channel string `toml:"channel" yaml:"channel"`

	// Linker is an alternative linker integration. It ships disabled; its
	// activation condition is intentionally unspecified, and nothing in
	// devrig turns it on implicitly.
	Linker LinkerConfig `toml:"linker" yaml:"linker"`
}

// LinkerConfig describes an alternative linker for a language toolchain.
type LinkerConfig struct {
	Enable  bool   `toml:"enable" yaml:"enable"`
	Package string `toml:"package" yaml:"package"`
}

// GetChannel returns the toolchain channel with default fallback.
func (l *LanguageConfig) GetChannel() string {
	if l.Channel == "" {
		return "stable"
	}
	return l.Channel
}

// EnabledLanguages returns the names of enabled language integrations in
// sorted order, so downstream output is deterministic.
func (m *Manifest) EnabledLanguages() []string {
	names := make([]string, 0, len(m.Languages))
	for name, lang := range m.Languages {
		if lang.Enable {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ProvisionConfig controls how plans are materialized.
type ProvisionConfig struct {
	// Jobs bounds concurrent provisioning steps. Zero means DefaultJobs.
	Jobs int `toml:"jobs" yaml:"jobs"`

	// ProfileDir is where installed packages are linked. Empty means
	// ~/.devrig/profile.
	ProfileDir string `toml:"profile_dir" yaml:"profile_dir"`

	// StateDir holds the generation records. Empty means ~/.devrig/state.
	StateDir string `toml:"state_dir" yaml:"state_dir"`

	// TimeoutMS bounds a single provisioning step in milliseconds.
	TimeoutMS int `toml:"timeout_ms" yaml:"timeout_ms"`

	// LookupRace queries all substituters in parallel during lookups and
	// takes the first hit. Off by default; sequential lookups respect
	// endpoint declaration order.
	LookupRace bool `toml:"lookup_race" yaml:"lookup_race"`
}

// DefaultJobs is the worker count used when provision.jobs is unset.
const DefaultJobs = 4

// GetJobs returns the worker count with default fallback.
func (p *ProvisionConfig) GetJobs() int {
	if p.Jobs <= 0 {
		return DefaultJobs
	}
	return p.Jobs
}

// GetTimeoutOption returns the per-step timeout as an Option.
// None means no timeout beyond the command's own context.
func (p *ProvisionConfig) GetTimeoutOption() mo.Option[int] {
	if p.TimeoutMS <= 0 {
		return mo.None[int]()
	}
	return mo.Some(p.TimeoutMS)
}

// LoggingConfig defines logging behavior for the tool itself.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // json, console, pretty
	Output string `toml:"output" yaml:"output"` // stdout, stderr, or file path
	Pretty bool   `toml:"pretty" yaml:"pretty"` // force colored console output
}

// ParseLevel converts the configured level to a zerolog.Level, defaulting
// to info for unknown values.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
