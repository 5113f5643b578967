package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/devrig/devrig/internal/manifest"
	"github.com/devrig/devrig/internal/platform"
	"github.com/devrig/devrig/internal/resolve"
)

// newMockInitCmd creates a mock cobra.Command with the output and force
// flags pre-registered, matching the flags used by the init command.
func newMockInitCmd(output string, force bool) *cobra.Command {
	cmd := &cobra.Command{Use: "init"}
	cmd.Flags().StringP("output", "o", "", "output path")
	cmd.Flags().Bool("force", false, "overwrite existing")
	if output != "" {
		_ = cmd.Flags().Set("output", output)
	}
	if force {
		_ = cmd.Flags().Set("force", "true")
	}
	return cmd
}

func TestRunInitWritesManifest(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "devrig.toml")
	if err := runInit(newMockInitCmd(output, false), nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[packages]") {
		t.Error("expected a [packages] section")
	}
	if !strings.Contains(content, "RUSTC_WRAPPER") {
		t.Error("expected the RUSTC_WRAPPER env binding")
	}
}

func TestRunInitRefusesOverwrite(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "devrig.toml")
	if err := os.WriteFile(output, []byte("name = \"keep\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runInit(newMockInitCmd(output, false), nil); err == nil {
		t.Fatal("expected overwrite refusal")
	}
	if err := runInit(newMockInitCmd(output, true), nil); err != nil {
		t.Fatalf("runInit --force failed: %v", err)
	}
}

// defaultManifest parses the starter template the init command ships.
func defaultManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.LoadFromReader(strings.NewReader(defaultManifestTemplate), manifest.FormatTOML)
	if err != nil {
		t.Fatalf("default template failed to parse: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("default template failed validation: %v", err)
	}
	return m
}

func resolveDefault(t *testing.T, p platform.Platform) *resolve.Plan {
	t.Helper()
	plan, err := resolve.Resolve(defaultManifest(t), p, resolve.Options{ProfileDir: "/profile"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return plan
}

func TestDefaultManifestDarwinSuperset(t *testing.T) {
	t.Parallel()

	m := defaultManifest(t)
	base := resolveDefault(t, platform.Platform{OS: "linux", Arch: "amd64"})
	darwin := resolveDefault(t, platform.Platform{OS: "darwin", Arch: "arm64"})

	if len(base.Packages) != len(m.Packages.Base) {
		t.Errorf("non-darwin plan has %d packages, want %d", len(base.Packages), len(m.Packages.Base))
	}
	if len(darwin.Packages) != len(base.Packages)+3 {
		t.Errorf("darwin plan has %d packages, want base+3 = %d", len(darwin.Packages), len(base.Packages)+3)
	}

	// Darwin plan is a strict superset of the base plan.
	seen := make(map[string]bool, len(darwin.Packages))
	for _, pkg := range darwin.Packages {
		seen[pkg] = true
	}
	for _, pkg := range base.Packages {
		if !seen[pkg] {
			t.Errorf("base package %s missing from darwin plan", pkg)
		}
	}
}

func TestDefaultManifestLanguageToggles(t *testing.T) {
	t.Parallel()

	m := defaultManifest(t)
	enabled := m.EnabledLanguages()
	if len(enabled) != 2 {
		t.Fatalf("enabled languages = %v, want exactly [nix rust]", enabled)
	}
	if enabled[0] != "nix" || enabled[1] != "rust" {
		t.Errorf("enabled languages = %v, want [nix rust]", enabled)
	}

	// The alternative linker ships present but disabled.
	rust := m.Languages["rust"]
	if rust.Linker.Enable {
		t.Error("linker toggle must ship disabled")
	}
	if rust.Linker.Package != "mold" {
		t.Errorf("linker package = %q, want mold", rust.Linker.Package)
	}
}

func TestDefaultManifestSingleEnvVar(t *testing.T) {
	t.Parallel()

	plan := resolveDefault(t, platform.Platform{OS: "linux", Arch: "amd64"})
	if len(plan.Env) != 1 {
		t.Fatalf("env = %v, want exactly one entry", plan.Env)
	}
	wrapper, ok := plan.Env["RUSTC_WRAPPER"]
	if !ok {
		t.Fatal("RUSTC_WRAPPER missing from resolved env")
	}
	if !strings.HasSuffix(wrapper, "sccache") {
		t.Errorf("RUSTC_WRAPPER = %q, want a path ending in sccache", wrapper)
	}
	if !strings.HasPrefix(wrapper, "/profile") {
		t.Errorf("RUSTC_WRAPPER = %q, want the @profile token expanded", wrapper)
	}
}

func TestDefaultManifestIdempotent(t *testing.T) {
	t.Parallel()

	for _, p := range []platform.Platform{
		{OS: "linux", Arch: "amd64"},
		{OS: "darwin", Arch: "arm64"},
	} {
		first := resolveDefault(t, p)
		second := resolveDefault(t, p)
		if first.Digest != second.Digest {
			t.Errorf("%s: digests differ across identical resolutions", p.String())
		}
	}
}
