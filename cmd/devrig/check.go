package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devrig/devrig/internal/manifest"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the manifest",
	Long: `Load and validate the manifest without touching the environment.
All validation errors are collected and reported together.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, _ []string) error {
	path := manifestPath()

	m, err := manifest.Load(path)
	if err != nil {
		fmt.Printf("✗ %s failed to load: %s\n", path, err)
		return err
	}
	if err := m.Validate(); err != nil {
		fmt.Printf("✗ %s is invalid:\n%s\n", path, err)
		return err
	}

	fmt.Printf("✓ %s is valid\n", path)

	return nil
}
