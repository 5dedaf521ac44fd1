package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "fixrun",
	Short: "Fixture-aware parallel test runner",
	Long: `fixrun runs test suites described by a manifest file: it resolves
each test's fixture dependency chain, shares expensive fixtures within
their declared scope, and schedules tests across workers using the
durations observed in previous runs.`,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitRunnerError)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}
