package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"foiadir/internal/directory"
	"foiadir/internal/pipeline"
	"foiadir/internal/registry"
	"foiadir/internal/scrape"
)

// syncCmd runs one full acquisition pass
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the acquisition pipeline once",
	Long: `Enumerates the FOIA.gov component registry, scrapes every unit's
public contact page, reconciles both sources, and replaces the stored
directory wholesale.

Requires a registry API key (FOIA_API_KEY or registry.api_key).`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateForSync(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := directory.NewStore(cfg.Directory.Path, cfg.GetCacheTTL(), logger)
	client := registry.NewClient(cfg, nil, logger)

	browser, err := scrape.Launch(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Warn("browser close failed", zap.Error(err))
		}
	}()

	pool := scrape.NewPool(browser.Visitors(), cfg.GetTaskTimeout(), nil, logger)
	logger.Info("scrape pool ready", zap.Int("width", pool.Width()))
	pipe := pipeline.New(client, pool, store, nil, logger)

	report, err := pipe.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s complete\n", report.RunID)
	fmt.Printf("  Components enumerated: %d\n", report.Components)
	fmt.Printf("  Units scraped:         %d\n", report.Scraped)
	fmt.Printf("  With direct email:     %d\n", report.WithEmail)
	fmt.Printf("  Directory records:     %d\n", report.Records)
	fmt.Printf("  Duration:              %s\n", report.Duration.Round(time.Second))
	fmt.Printf("  Written to:            %s\n", store.Path())
	return nil
}
