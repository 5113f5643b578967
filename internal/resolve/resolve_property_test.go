package resolve

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/devrig/devrig/internal/manifest"
	"github.com/devrig/devrig/internal/platform"
)

// Property-based tests for resolution invariants.

// genPackageList generates lists of distinct package identifiers.
func genPackageList() gopter.Gen {
	return gen.SliceOf(gen.Identifier()).Map(func(pkgs []string) []string {
		seen := make(map[string]bool, len(pkgs))
		out := make([]string, 0, len(pkgs))
		for _, p := range pkgs {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
		return out
	})
}

func manifestFor(base, conditional []string, match string) *manifest.Manifest {
	m := &manifest.Manifest{
		Packages: manifest.PackagesConfig{Base: base},
		Languages: map[string]manifest.LanguageConfig{
			"nix":  {Enable: true},
			"rust": {Enable: true},
		},
	}
	if len(conditional) > 0 {
		m.Packages.Platform = []manifest.PlatformGroup{{Match: match, Add: conditional}}
	}
	return m
}

func TestResolveProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	host := platform.Platform{OS: "darwin", Arch: "arm64"}
	other := platform.Platform{OS: "linux", Arch: "amd64"}

	// Resolving twice under identical inputs yields identical plans.
	properties.Property("resolution is idempotent", prop.ForAll(
		func(base []string) bool {
			m := manifestFor(base, []string{"extra"}, "darwin")

			first, err1 := Resolve(m, host, testOpts)
			second, err2 := Resolve(m, host, testOpts)
			if err1 != nil || err2 != nil {
				return false
			}

			enc1, _ := first.Encode()
			enc2, _ := second.Encode()
			return first.Digest == second.Digest && string(enc1) == string(enc2)
		},
		genPackageList(),
	))

	// A matching predicate yields base plus conditional; a non-matching
	// one yields exactly the base set.
	properties.Property("conditional inclusion is all-or-nothing", prop.ForAll(
		func(base []string) bool {
			conditional := []string{"cond_a", "cond_b", "cond_c"}
			m := manifestFor(base, conditional, "darwin")

			matched, err := Resolve(m, host, testOpts)
			if err != nil {
				return false
			}
			unmatched, err := Resolve(m, other, testOpts)
			if err != nil {
				return false
			}

			baseSet := make(map[string]bool, len(base))
			for _, p := range base {
				baseSet[p] = true
			}
			extra := 0
			for _, p := range conditional {
				if !baseSet[p] {
					extra++
				}
			}

			return len(matched.Packages) == len(base)+extra &&
				len(unmatched.Packages) == len(base)
		},
		genPackageList(),
	))

	// Resolved package lists never contain duplicates.
	properties.Property("no duplicates in resolved packages", prop.ForAll(
		func(base, conditional []string) bool {
			m := manifestFor(base, conditional, "any")
			plan, err := Resolve(m, host, testOpts)
			if err != nil {
				return false
			}

			seen := make(map[string]bool, len(plan.Packages))
			for _, p := range plan.Packages {
				if seen[p] {
					return false
				}
				seen[p] = true
			}
			return true
		},
		genPackageList(),
		genPackageList(),
	))

	// Base packages survive resolution on every platform.
	properties.Property("base set is always a subset of the plan", prop.ForAll(
		func(base []string) bool {
			m := manifestFor(base, []string{"cond"}, "darwin")
			for _, p := range []platform.Platform{host, other} {
				plan, err := Resolve(m, p, testOpts)
				if err != nil {
					return false
				}
				inPlan := make(map[string]bool, len(plan.Packages))
				for _, pkg := range plan.Packages {
					inPlan[pkg] = true
				}
				for _, pkg := range base {
					if !inPlan[pkg] {
						return false
					}
				}
			}
			return true
		},
		genPackageList(),
	))

	properties.TestingRun(t)
}
