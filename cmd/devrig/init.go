package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a starter manifest",
	Long:  `Generate a starter devrig.toml in the current directory.`,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("output", "o", "", "output path (default: ./"+defaultManifestFile+")")
	initCmd.Flags().Bool("force", false, "overwrite an existing manifest")
}

// defaultManifestTemplate is the starter environment: a Rust project with
// a shared compilation cache, Apple frameworks on darwin hosts, and an
// alternative linker shipped disabled so teams can opt in per machine.
const defaultManifestTemplate = `# devrig manifest
name = "dev"

[packages]
base = [
  "git",
  "ripgrep",
  "jq",
  "sccache",
  "cargo-watch",
  "cargo-edit",
  "cargo-nextest",
]

[[packages.platform]]
match = "darwin"
add = [
  "darwin.apple_sdk.frameworks.Security",
  "darwin.apple_sdk.frameworks.CoreFoundation",
  "darwin.apple_sdk.frameworks.SystemConfiguration",
]

[languages.nix]
enable = true

[languages.rust]
enable = true
channel = "stable"

# Opt-in alternative linker; leave disabled unless the whole team uses it.
[languages.rust.linker]
enable = false
package = "mold"

[env]
RUSTC_WRAPPER = "@profile/bin/sccache"

[logging]
level = "info"

[provision]
jobs = 4
`

func runInit(cmd *cobra.Command, _ []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}

	if output == "" {
		output = defaultManifestFile
	}

	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("manifest already exists at %s (use --force to overwrite)", output)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	if err := os.WriteFile(output, []byte(defaultManifestTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	fmt.Printf("✓ Manifest created at %s\n", output)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the manifest to match your project")
	fmt.Println("  2. Validate with: devrig check")
	fmt.Println("  3. Inspect the plan: devrig resolve")
	fmt.Println("  4. Bring the environment up: devrig up")

	return nil
}
