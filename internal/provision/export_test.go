package provision_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/devrig/devrig/internal/provision"
	"github.com/devrig/devrig/internal/resolve"
)

func exportPlan(profileDir string) *resolve.Plan {
	return &resolve.Plan{
		ProfileDir: profileDir,
		Env: map[string]string{
			"RUSTC_WRAPPER": profileDir + "/bin/sccache",
			"CARGO_HOME":    profileDir + "/cargo",
		},
	}
}

func TestRenderExportsPosix(t *testing.T) {
	t.Parallel()

	out, err := provision.RenderExports(exportPlan("/home/dev/.devrig/profile"), provision.ShellPosix)
	if err != nil {
		t.Fatalf("RenderExports failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != `export PATH="/home/dev/.devrig/profile/bin":"$PATH"` {
		t.Errorf("unexpected PATH line: %s", lines[0])
	}
	// Env vars follow PATH in sorted order.
	if !strings.HasPrefix(lines[1], "export CARGO_HOME=") {
		t.Errorf("expected CARGO_HOME second, got %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "export RUSTC_WRAPPER=") {
		t.Errorf("expected RUSTC_WRAPPER last, got %s", lines[2])
	}
}

func TestRenderExportsFish(t *testing.T) {
	t.Parallel()

	out, err := provision.RenderExports(exportPlan("/p"), provision.ShellFish)
	if err != nil {
		t.Fatalf("RenderExports failed: %v", err)
	}
	if !strings.HasPrefix(out, `set -gx PATH "/p/bin" $PATH`) {
		t.Errorf("unexpected fish PATH line: %q", out)
	}
	if !strings.Contains(out, `set -gx RUSTC_WRAPPER "/p/bin/sccache"`) {
		t.Errorf("missing fish env line: %q", out)
	}
}

func TestRenderExportsDefaultsToPosix(t *testing.T) {
	t.Parallel()

	out, err := provision.RenderExports(exportPlan("/p"), "")
	if err != nil {
		t.Fatalf("RenderExports failed: %v", err)
	}
	if !strings.HasPrefix(out, "export PATH=") {
		t.Errorf("expected posix output by default, got %q", out)
	}
}

func TestRenderExportsUnknownShell(t *testing.T) {
	t.Parallel()

	_, err := provision.RenderExports(exportPlan("/p"), "powershell")
	var unknownErr provision.UnknownShellError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownShellError, got %v", err)
	}
	if unknownErr.Shell != "powershell" {
		t.Errorf("error shell = %s, want powershell", unknownErr.Shell)
	}
}

func TestRenderExportsDeterministic(t *testing.T) {
	t.Parallel()

	plan := exportPlan("/p")
	first, err := provision.RenderExports(plan, provision.ShellPosix)
	if err != nil {
		t.Fatalf("RenderExports failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := provision.RenderExports(plan, provision.ShellPosix)
		if err != nil {
			t.Fatalf("RenderExports failed: %v", err)
		}
		if again != first {
			t.Fatal("expected identical output across renders")
		}
	}
}
