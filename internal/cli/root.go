// Package cli implements the HabitLoop command-line interface using Cobra.
// Each subcommand maps to one progression operation (status, challenge,
// streak, record, serve).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/habitloop/habitloop/internal/daemon"
)

var cliVersion = "dev"

var rootCmd = &cobra.Command{
	Use:   "habitloop",
	Short: "HabitLoop — local habit progression engine",
	Long: `HabitLoop turns your daily habit, journal, and goal activity into
monthly challenges, star ratings, XP, and consistency streaks.
Everything runs and stays on this machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	cliVersion = version
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDaemon builds a daemon from the on-disk config for one-shot commands.
func openDaemon() (*daemon.Daemon, error) {
	return daemon.New(cliVersion)
}
