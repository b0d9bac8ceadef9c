package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "showrunner",
	Short: "showrunner — a gated content-production pipeline coordinator",
	Long: `showrunner drives video productions through scripted pipeline phases
(script, evidence, capture, package, render) with an explicit human or
automated approval gate between every stage.

Stage outputs are versioned artifacts that become immutable once a gate
clears. Project state lives under the configured output directory (JSON
per project, SQLite for the audit trail); external agents are invoked
through configured commands.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(artifactsCmd)
	rootCmd.AddCommand(gatesCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dbCmd)
}
