// Package resolve turns a manifest plus a host platform into a concrete
// plan. Resolution is a pure function: no I/O, no clock, no randomness.
// The same manifest and platform always produce a byte-identical plan.
package resolve

import (
	"errors"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/devrig/devrig/internal/manifest"
	"github.com/devrig/devrig/internal/platform"
)

// ProfileToken is the interpolation token manifests use in env values to
// reference the profile directory, so descriptors stay portable across
// machines with different home layouts.
const ProfileToken = "@profile"

// Resolution errors.
var (
	ErrNilManifest = errors.New("resolve: manifest is nil")
)

// Options carries the non-manifest inputs to resolution. ProfileDir must be
// supplied by the caller so Resolve itself stays free of filesystem and
// home-directory lookups.
type Options struct {
	ProfileDir string
}

// Language is one activated toolchain integration in a plan.
type Language struct {
	Name    string `json:"name"`
	Channel string `json:"channel"`
}

// Resolve computes the final package list, activated languages, and
// resolved env vars for the given platform.
//
// Package order is declaration order: the base list first, then each
// matching platform group, with later duplicates dropped. A group whose
// predicate does not match contributes nothing. Disabled language toggles
// (including the linker sub-toggle) contribute nothing.
func Resolve(m *manifest.Manifest, p platform.Platform, opts Options) (*Plan, error) {
	if m == nil {
		return nil, ErrNilManifest
	}

	packages := make([]string, 0, len(m.Packages.Base))
	packages = append(packages, m.Packages.Base...)
	for _, group := range m.Packages.Platform {
		if p.Matches(group.Match) {
			packages = append(packages, group.Add...)
		}
	}
	packages = lo.Uniq(packages)

	languages := make([]Language, 0, len(m.Languages))
	for _, name := range m.EnabledLanguages() {
		lang := m.Languages[name]
		languages = append(languages, Language{
			Name:    name,
			Channel: lang.GetChannel(),
		})
	}

	env := make(map[string]string, len(m.Env))
	for name, value := range m.Env {
		env[name] = strings.ReplaceAll(value, ProfileToken, opts.ProfileDir)
	}

	plan := &Plan{
		Name:       m.Name,
		Platform:   p.String(),
		ProfileDir: opts.ProfileDir,
		Packages:   packages,
		Languages:  languages,
		Env:        env,
	}
	plan.Digest = plan.computeDigest()
	return plan, nil
}

// Diff describes what changed between two plans, for `devrig watch` logs.
type Diff struct {
	AddedPackages   []string
	RemovedPackages []string
	ChangedEnv      []string
}

// Empty reports whether the two plans were equivalent.
func (d Diff) Empty() bool {
	return len(d.AddedPackages) == 0 && len(d.RemovedPackages) == 0 && len(d.ChangedEnv) == 0
}

// Compare computes the package and env differences from old to new.
func Compare(oldPlan, newPlan *Plan) Diff {
	added, removed := lo.Difference(newPlan.Packages, oldPlan.Packages)

	var changed []string
	for name, value := range newPlan.Env {
		if prev, ok := oldPlan.Env[name]; !ok || prev != value {
			changed = append(changed, name)
		}
	}
	for name := range oldPlan.Env {
		if _, ok := newPlan.Env[name]; !ok {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)

	return Diff{
		AddedPackages:   added,
		RemovedPackages: removed,
		ChangedEnv:      changed,
	}
}
