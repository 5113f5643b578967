package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/devrig/devrig/internal/substituter"
)

// ExecRunner shells out to the host's builder toolchain. Substituted
// artifacts are streamed into the store directory; builds and links are
// delegated to the builder command.
type ExecRunner struct {
	// Builder is the command used to realize packages ("nix" by default).
	Builder string

	// StoreDir is where substituted artifacts land.
	StoreDir string

	// Fetch streams an artifact by narinfo URL from the endpoint that
	// advertised it. Wired to substituter.Chain.FetchNar.
	Fetch func(ctx context.Context, endpoint, narURL string) (io.ReadCloser, error)

	Logger *zerolog.Logger
}

// DefaultBuilder is the builder command used when none is configured.
const DefaultBuilder = "nix"

func (r *ExecRunner) builder() string {
	if r.Builder == "" {
		return DefaultBuilder
	}
	return r.Builder
}

// Substitute downloads the artifact and hands it to the builder for
// store import.
func (r *ExecRunner) Substitute(ctx context.Context, pkg string, info *substituter.NarInfo, endpoint string) error {
	if r.Fetch == nil {
		return fmt.Errorf("provision: no fetcher configured for %s", pkg)
	}

	body, err := r.Fetch(ctx, endpoint, info.URL)
	if err != nil {
		return fmt.Errorf("provision: fetch %s: %w", pkg, err)
	}
	defer func() { _ = body.Close() }()

	if err := os.MkdirAll(r.StoreDir, 0o755); err != nil {
		return fmt.Errorf("provision: create store dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.builder(), "nar", "import") //nolint:gosec // builder comes from config, not user input
	cmd.Stdin = body
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("provision: import %s: %w", pkg, err)
	}

	if r.Logger != nil {
		r.Logger.Debug().
			Str("package", pkg).
			Str("endpoint", endpoint).
			Str("store_path", info.StorePath).
			Msg("substituted package")
	}
	return nil
}

// Build realizes the package from source via the builder.
func (r *ExecRunner) Build(ctx context.Context, pkg string) error {
	cmd := exec.CommandContext(ctx, r.builder(), "build", pkg) //nolint:gosec // builder comes from config, not user input
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("provision: build %s: %w", pkg, err)
	}
	return nil
}

// Link installs the package into the profile via the builder.
func (r *ExecRunner) Link(ctx context.Context, pkg, profileDir string) error {
	if err := os.MkdirAll(filepath.Dir(profileDir), 0o755); err != nil {
		return fmt.Errorf("provision: create profile parent: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.builder(), "profile", "install", "--profile", profileDir, pkg) //nolint:gosec // builder comes from config, not user input
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("provision: link %s: %w", pkg, err)
	}
	return nil
}

// DryRunRunner records what would happen without touching the host.
// Used by `devrig up --dry-run`.
type DryRunRunner struct {
	Logger *zerolog.Logger
}

// Substitute logs the substitution that would occur.
func (r *DryRunRunner) Substitute(_ context.Context, pkg string, info *substituter.NarInfo, endpoint string) error {
	if r.Logger != nil {
		r.Logger.Info().
			Str("package", pkg).
			Str("endpoint", endpoint).
			Int64("nar_size", info.NarSize).
			Msg("would substitute")
	}
	return nil
}

// Build logs the build that would occur.
func (r *DryRunRunner) Build(_ context.Context, pkg string) error {
	if r.Logger != nil {
		r.Logger.Info().Str("package", pkg).Msg("would build from source")
	}
	return nil
}

// Link logs the profile link that would occur.
func (r *DryRunRunner) Link(_ context.Context, pkg, profileDir string) error {
	if r.Logger != nil {
		r.Logger.Info().Str("package", pkg).Str("profile", profileDir).Msg("would link into profile")
	}
	return nil
}
