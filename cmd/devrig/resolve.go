package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/devrig/devrig/cmd/devrig/di"
	"github.com/devrig/devrig/internal/manifest"
	"github.com/devrig/devrig/internal/platform"
	"github.com/devrig/devrig/internal/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the resolved plan",
	Long: `Resolve the manifest against a platform and print the resulting plan:
the exact packages, activated languages, and env vars that devrig up
would materialize. Resolution is pure; nothing is installed.`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().String("platform", "", "resolve for this platform instead of the host (os or os/arch)")
	resolveCmd.Flags().Bool("json", false, "print the plan as JSON")
}

func runResolve(cmd *cobra.Command, _ []string) error {
	platformFlag, err := cmd.Flags().GetString("platform")
	if err != nil {
		return fmt.Errorf("failed to get platform flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}

	plan, err := resolvePlan(platformFlag)
	if err != nil {
		return err
	}

	if asJSON {
		encoded, err := plan.Encode()
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	printPlan(plan)

	return nil
}

// resolvePlan loads the manifest and resolves it for the given platform
// predicate ("" means the host platform).
func resolvePlan(platformFlag string) (*resolve.Plan, error) {
	m, err := manifest.Load(manifestPath())
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	target := platform.Detect()
	if platformFlag != "" {
		target, err = platform.Parse(platformFlag)
		if err != nil {
			return nil, err
		}
	}

	profileDir, err := di.ProfileDir(m)
	if err != nil {
		return nil, err
	}

	return resolve.Resolve(m, target, resolve.Options{ProfileDir: profileDir})
}

func printPlan(plan *resolve.Plan) {
	fmt.Printf("platform: %s\n", plan.Platform)
	fmt.Printf("digest:   %s\n", plan.Digest)

	fmt.Printf("packages (%d):\n", len(plan.Packages))
	for _, pkg := range plan.Packages {
		fmt.Printf("  %s\n", pkg)
	}

	if len(plan.Languages) > 0 {
		fmt.Printf("languages (%d):\n", len(plan.Languages))
		for _, lang := range plan.Languages {
			fmt.Printf("  %s@%s\n", lang.Name, lang.Channel)
		}
	}

	if len(plan.Env) > 0 {
		fmt.Printf("env (%d):\n", len(plan.Env))
		for _, name := range sortedKeys(plan.Env) {
			fmt.Printf("  %s=%s\n", name, plan.Env[name])
		}
	}
}

func sortedKeys(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
