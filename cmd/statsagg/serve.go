package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brawlstats/statsagg/internal/config"
	"github.com/brawlstats/statsagg/internal/handlers"
	"github.com/brawlstats/statsagg/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr, output string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the published statistics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptionalDatabase()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}
			if cmd.Flags().Changed("output") {
				cfg.OutputRoot = output
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&output, "output", "", "publish location (overrides OUTPUT_ROOT)")
	return cmd
}

// newServeHandler builds the HTTP surface. The store is optional; without one,
// readiness only checks the published output.
func newServeHandler(ctx context.Context, cfg *config.Config, logger *zap.Logger) (http.Handler, func()) {
	sugar := logger.Sugar()
	hcfg := handlers.Config{Root: cfg.OutputRoot, AllowedOrigins: cfg.AllowedOrigins, Logger: logger}
	closeStore := func() {}

	if cfg.DatabaseURL == "" {
		sugar.Infow("No database configured, readiness will only check published output")
		return handlers.New(hcfg).Routes(), closeStore
	}
	store, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		sugar.Warnw("Database unavailable, readiness will only check published output", "error", err)
		return handlers.New(hcfg).Routes(), closeStore
	}
	hcfg.Store = store
	return handlers.New(hcfg).Routes(), func() { store.Close() }
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, closeStore := newServeHandler(ctx, cfg, logger)
	defer closeStore()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("HTTP server listening", "addr", cfg.HTTPAddr, "root", cfg.OutputRoot)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	sugar.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
