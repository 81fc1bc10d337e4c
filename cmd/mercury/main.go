package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/mercury/internal/config"
	"github.com/cuemby/mercury/internal/telemetry"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mercury",
	Short: "Mercury bitemporal quad store administration CLI",
	Long: `mercury is an administrative tool over a Mercury store.

It does not parse RDF, does not run SPARQL, and does not open a
network listener: it drives the Administration surface (open, stats,
checkpoint, clear, named-graphs) against a store directory described
by a YAML config file.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("mercury version %s (%s)\n", Version, Commit))
	rootCmd.PersistentFlags().StringP("config", "c", "mercury.yaml", "Path to YAML config file")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(namedGraphsCmd)
}

func initLogging() {
	cfgPath, _ := rootCmd.PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return // commands re-load and surface the error themselves
	}
	telemetry.Init(cfg.LogTelemetryConfig())
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
