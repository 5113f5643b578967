// Package main is the entry point for devrig.
package main

import (
	"context"
	"os"
	"path/filepath"

	fang "charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultManifestFile = "devrig.toml"

var manifestFile string

var rootCmd = &cobra.Command{
	Use:   "devrig",
	Short: "Declarative development environments",
	Long: `devrig reads a declarative manifest (devrig.toml) describing the packages,
language toolchains, and environment variables a project needs, and
materializes it: packages come from binary caches when possible and are
built from source otherwise, then linked into a per-project profile.`,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&manifestFile, "config", "",
		"manifest file path (default: ./"+defaultManifestFile+" or ~/.config/devrig/"+defaultManifestFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

// findManifestFile searches the default manifest locations: the current
// directory first (toml, then yaml), then ~/.config/devrig/.
func findManifestFile() string {
	candidates := []string{defaultManifestFile, "devrig.yaml", "devrig.yml"}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		p := filepath.Join(home, ".config", "devrig", defaultManifestFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return defaultManifestFile // Default, will error if not found
}

// manifestPath resolves the manifest path from the --config flag or the
// default search locations.
func manifestPath() string {
	if manifestFile != "" {
		return manifestFile
	}
	return findManifestFile()
}
