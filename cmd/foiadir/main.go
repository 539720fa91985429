// Package main implements the foiadir CLI: acquisition runs, directory
// resolution, submission composition, and the HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"foiadir/internal/config"
	"foiadir/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "foiadir",
	Short: "foiadir - FOIA agency directory pipeline",
	Long: `foiadir maintains a canonical directory of federal FOIA units and
decides how a records request reaches each one.

An acquisition run enumerates the FOIA.gov component registry, scrapes
every unit's public contact page with a headless browser, reconciles
both sources, and replaces the stored directory wholesale. The resolver
then maps a unit id or name to a submission channel: EMAIL when a
unit-specific address is known, PORTAL otherwise.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Local env files are optional.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "foiadir.yaml", "Config file path")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
