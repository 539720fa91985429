package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"foiadir/internal/compose"
	"foiadir/internal/directory"
	"foiadir/internal/metrics"
	"foiadir/internal/server"
)

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the directory API over HTTP",
	Long: `Starts the HTTP API: /api/agencies, /api/resolve, /api/compose,
plus /healthz and Prometheus /metrics. With directory.watch enabled the
stored directory is re-read whenever another process replaces it.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := directory.NewStore(cfg.Directory.Path, cfg.GetCacheTTL(), logger)

	if cfg.Directory.Watch {
		watcher, err := directory.NewWatcher(store, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
		logger.Info("directory watcher running", zap.String("path", store.Path()))
	}

	resolver := directory.NewResolver(store, logger)
	composer := compose.New(cfg.Compose, cfg.Portal, cfg.Requester)

	srv := server.New(cfg, store, resolver, composer, metrics.New(), logger)
	return srv.Start(ctx)
}
