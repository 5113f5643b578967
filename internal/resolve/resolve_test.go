package resolve

import (
	"reflect"
	"testing"

	"github.com/devrig/devrig/internal/manifest"
	"github.com/devrig/devrig/internal/platform"
)

var testOpts = Options{ProfileDir: "/home/dev/.devrig/profile"}

func darwinGatedManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Name: "lockfree-lab",
		Packages: manifest.PackagesConfig{
			Base: []string{"git", "ripgrep", "jq", "sccache", "cargo-watch", "cargo-edit", "cargo-nextest"},
			Platform: []manifest.PlatformGroup{
				{
					Match: "darwin",
					Add: []string{
						"frameworks.Security",
						"frameworks.CoreFoundation",
						"frameworks.SystemConfiguration",
					},
				},
			},
		},
		Languages: map[string]manifest.LanguageConfig{
			"nix":  {Enable: true},
			"rust": {Enable: true, Linker: manifest.LinkerConfig{Package: "mold"}},
		},
		Env: map[string]string{
			"RUSTC_WRAPPER": "@profile/bin/sccache",
		},
	}
}

func TestResolveMatchingPredicate(t *testing.T) {
	t.Parallel()

	m := darwinGatedManifest()
	plan, err := Resolve(m, platform.Platform{OS: "darwin", Arch: "arm64"}, testOpts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Base set plus exactly the three framework references.
	wantCount := len(m.Packages.Base) + 3
	if len(plan.Packages) != wantCount {
		t.Fatalf("Expected %d packages, got %d: %v", wantCount, len(plan.Packages), plan.Packages)
	}

	// Base packages come first, in declaration order.
	for i, pkg := range m.Packages.Base {
		if plan.Packages[i] != pkg {
			t.Errorf("Expected packages[%d]=%s, got %s", i, pkg, plan.Packages[i])
		}
	}
	if plan.Packages[len(m.Packages.Base)] != "frameworks.Security" {
		t.Errorf("Conditional packages must follow the base set, got %v", plan.Packages)
	}
}

func TestResolveNonMatchingPredicate(t *testing.T) {
	t.Parallel()

	m := darwinGatedManifest()
	plan, err := Resolve(m, platform.Platform{OS: "linux", Arch: "amd64"}, testOpts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if !reflect.DeepEqual(plan.Packages, m.Packages.Base) {
		t.Errorf("Expected exactly the base set %v, got %v", m.Packages.Base, plan.Packages)
	}
}

func TestResolveLanguageToggles(t *testing.T) {
	t.Parallel()

	plan, err := Resolve(darwinGatedManifest(), platform.Platform{OS: "linux", Arch: "amd64"}, testOpts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(plan.Languages) != 2 {
		t.Fatalf("Expected exactly 2 activated languages, got %v", plan.Languages)
	}
	if plan.Languages[0].Name != "nix" || plan.Languages[1].Name != "rust" {
		t.Errorf("Expected [nix rust], got %v", plan.Languages)
	}
	if plan.Languages[1].Channel != "stable" {
		t.Errorf("Expected default rust channel stable, got %s", plan.Languages[1].Channel)
	}
	if plan.HasLanguage("go") {
		t.Error("No third language must be activated")
	}
}

func TestResolveEnvInterpolation(t *testing.T) {
	t.Parallel()

	plan, err := Resolve(darwinGatedManifest(), platform.Platform{OS: "darwin", Arch: "arm64"}, testOpts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(plan.Env) != 1 {
		t.Fatalf("Expected exactly 1 env var, got %v", plan.Env)
	}
	want := testOpts.ProfileDir + "/bin/sccache"
	if got := plan.Env["RUSTC_WRAPPER"]; got != want {
		t.Errorf("Expected RUSTC_WRAPPER=%s, got %s", want, got)
	}
}

func TestResolveDisabledLinkerContributesNothing(t *testing.T) {
	t.Parallel()

	m := darwinGatedManifest()
	plan, err := Resolve(m, platform.Platform{OS: "linux", Arch: "amd64"}, testOpts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	for _, pkg := range plan.Packages {
		if pkg == "mold" {
			t.Error("disabled linker toggle leaked its package into the plan")
		}
	}
}

func TestResolveDropsDuplicatesAcrossGroups(t *testing.T) {
	t.Parallel()

	m := &manifest.Manifest{
		Packages: manifest.PackagesConfig{
			Base: []string{"git", "jq"},
			Platform: []manifest.PlatformGroup{
				{Match: "any", Add: []string{"jq", "fd"}},
			},
		},
	}

	plan, err := Resolve(m, platform.Detect(), testOpts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []string{"git", "jq", "fd"}
	if !reflect.DeepEqual(plan.Packages, want) {
		t.Errorf("Expected %v, got %v", want, plan.Packages)
	}
}

func TestResolveNilManifest(t *testing.T) {
	t.Parallel()

	if _, err := Resolve(nil, platform.Detect(), testOpts); err == nil {
		t.Error("Expected error for nil manifest")
	}
}

func TestPlanEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	plan, err := Resolve(darwinGatedManifest(), platform.Platform{OS: "darwin", Arch: "arm64"}, testOpts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	encoded, err := plan.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Digest != plan.Digest {
		t.Errorf("Digest changed across round trip: %s vs %s", decoded.Digest, plan.Digest)
	}
}

func TestDecodeRejectsTamperedPlan(t *testing.T) {
	t.Parallel()

	plan, err := Resolve(darwinGatedManifest(), platform.Platform{OS: "darwin", Arch: "arm64"}, testOpts)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	encoded, err := plan.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	tampered := []byte(string(encoded))
	for i := range tampered {
		// Flip one package character inside the JSON body.
		if string(tampered[i:i+3]) == "git" {
			tampered[i] = 'x'
			break
		}
	}

	if _, err := Decode(tampered); err == nil {
		t.Error("Expected digest mismatch for tampered plan")
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	m := darwinGatedManifest()
	linuxPlan, _ := Resolve(m, platform.Platform{OS: "linux", Arch: "amd64"}, testOpts)
	darwinPlan, _ := Resolve(m, platform.Platform{OS: "darwin", Arch: "arm64"}, testOpts)

	diff := Compare(linuxPlan, darwinPlan)
	if len(diff.AddedPackages) != 3 {
		t.Errorf("Expected 3 added packages, got %v", diff.AddedPackages)
	}
	if len(diff.RemovedPackages) != 0 {
		t.Errorf("Expected no removed packages, got %v", diff.RemovedPackages)
	}

	same := Compare(linuxPlan, linuxPlan)
	if !same.Empty() {
		t.Errorf("Expected empty diff, got %+v", same)
	}
}
