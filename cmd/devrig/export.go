package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devrig/devrig/internal/provision"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print shell exports for the resolved environment",
	Long: `Print shell statements that put the profile on PATH and set the
resolved env vars. Meant for eval:

  eval "$(devrig export)"          # bash/zsh
  devrig export --shell fish | source   # fish`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("shell", provision.ShellPosix, "shell dialect (posix or fish)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	shell, err := cmd.Flags().GetString("shell")
	if err != nil {
		return fmt.Errorf("failed to get shell flag: %w", err)
	}

	plan, err := resolvePlan("")
	if err != nil {
		return err
	}

	out, err := provision.RenderExports(plan, shell)
	if err != nil {
		return err
	}
	fmt.Print(out)

	return nil
}
