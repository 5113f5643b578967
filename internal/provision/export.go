package provision

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/devrig/devrig/internal/resolve"
)

// Shell dialects supported by RenderExports.
const (
	ShellPosix = "posix"
	ShellFish  = "fish"
)

// UnknownShellError is returned for shells RenderExports cannot render.
type UnknownShellError struct {
	Shell string
}

func (e UnknownShellError) Error() string {
	return fmt.Sprintf("provision: unknown shell %q (valid: posix, fish)", e.Shell)
}

// RenderExports renders the plan's environment as shell statements for
// `eval "$(devrig export)"`. Output is deterministic: PATH first, then
// env vars sorted by name.
func RenderExports(plan *resolve.Plan, shell string) (string, error) {
	if shell == "" {
		shell = ShellPosix
	}

	names := make([]string, 0, len(plan.Env))
	for name := range plan.Env {
		names = append(names, name)
	}
	sort.Strings(names)

	binDir := filepath.Join(plan.ProfileDir, "bin")

	var b strings.Builder
	switch shell {
	case ShellPosix:
		fmt.Fprintf(&b, "export PATH=%q:\"$PATH\"\n", binDir)
		for _, name := range names {
			fmt.Fprintf(&b, "export %s=%q\n", name, plan.Env[name])
		}
	case ShellFish:
		fmt.Fprintf(&b, "set -gx PATH %q $PATH\n", binDir)
		for _, name := range names {
			fmt.Fprintf(&b, "set -gx %s %q\n", name, plan.Env[name])
		}
	default:
		return "", UnknownShellError{Shell: shell}
	}
	return b.String(), nil
}
