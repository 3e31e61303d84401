package cmd

import (
	"os"

	"depctl/internal/config"
	"depctl/pkg/logging"

	"github.com/spf13/cobra"
)

var rootLogLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "depctl",
	Short: "Orchestrate deployment state across multiple Kubernetes clusters",
	Long: `depctl manages deployments across a set of configured cluster
connections: listing and scaling workloads, shutting namespaces down and
restoring them to their saved replica baselines, and measuring pod startup
latency.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid arguments, failed connections)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := rootLogLevel
		if level == "" {
			if settings, err := config.Load(); err == nil {
				level = settings.LogLevel
			}
		}
		logging.Init(logging.ParseLevel(level), os.Stderr)
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "depctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to the configured level")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConnectionCmd())
	rootCmd.AddCommand(newDeploymentsCmd())
	rootCmd.AddCommand(newBaselineCmd())
	rootCmd.AddCommand(newMeasureCmd())
	rootCmd.AddCommand(newGroupCmd())
}
