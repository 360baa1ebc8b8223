package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brawlstats/statsagg/internal/config"
	"github.com/brawlstats/statsagg/internal/export"
	"github.com/brawlstats/statsagg/internal/loader"
	"github.com/brawlstats/statsagg/internal/logic"
	"github.com/brawlstats/statsagg/internal/stats"
	"github.com/brawlstats/statsagg/internal/storage"
	"github.com/brawlstats/statsagg/internal/worker"
)

const pushTimeout = 10 * time.Second

type runFlags struct {
	output     string
	mode       string
	days       int
	minRank    int
	confidence float64
	workers    int
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the retention window, aggregate every statistic and publish it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregation(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.output, "output", "", "publish location (overrides OUTPUT_ROOT)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "load mode: stream or bulk (overrides LOAD_MODE)")
	cmd.Flags().IntVar(&f.days, "days", 0, "retention window in days (overrides DATA_RETENTION_DAYS)")
	cmd.Flags().IntVar(&f.minRank, "min-rank", 0, "minimum rank tier (overrides MIN_RANK_ID)")
	cmd.Flags().Float64Var(&f.confidence, "confidence", 0, "confidence level (overrides CONFIDENCE_LEVEL)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "worker pool size (overrides WORKER_COUNT)")
	return cmd
}

func (f runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputRoot = f.output
	}
	if flags.Changed("mode") {
		cfg.LoadMode = f.mode
	}
	if flags.Changed("days") {
		cfg.RetentionDays = f.days
	}
	if flags.Changed("min-rank") {
		cfg.MinRankID = f.minRank
	}
	if flags.Changed("confidence") {
		cfg.ConfidenceLevel = f.confidence
	}
	if flags.Changed("workers") {
		cfg.WorkerCount = f.workers
	}
	return cfg.Validate()
}

func runAggregation(cmd *cobra.Command, f runFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := f.apply(cmd, cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return &logic.StageError{Stage: logic.StageLoad, Err: err}
	}
	defer store.Close()

	var notifier export.Notifier
	if cfg.RedisURL != "" {
		n, err := export.NewRedisNotifierFromURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer n.Close()
		notifier = n
	}

	writer := export.NewWriter(export.WriterConfig{Root: cfg.OutputRoot, Notifier: notifier, Logger: logger})
	svc := logic.NewRunService(
		loader.New(loader.Config{
			Store:     store,
			Mode:      loader.Mode(cfg.LoadMode),
			ChunkSize: cfg.FetchBatchSize,
			Location:  cfg.Location(),
			Logger:    logger,
		}),
		stats.New(stats.Config{
			ConfidenceLevel:      cfg.ConfidenceLevel,
			Shards:               cfg.AggregateShards,
			ThreeVsThreeMinGames: cfg.ThreeVsThreeMinGames,
			Logger:               logger,
		}),
		worker.NewPool(worker.PoolConfig{WorkerCount: cfg.WorkerCount, Logger: logger}),
		writer,
		logic.RunConfig{
			RetentionDays:     cfg.RetentionDays,
			MinRankID:         cfg.MinRankID,
			HighestRankTarget: cfg.HighestRankTarget,
			Timeout:           cfg.RunTimeout,
			Window:            cfg.Since,
		},
		logger,
	)

	manifest, runErr := svc.Run(ctx)
	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		if err := logic.PushMetrics(pushCtx, cfg.PushgatewayURL, "statsagg"); err != nil {
			logger.Warn("Failed to push metrics", zap.Error(err))
		}
		cancel()
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "published run %s: %d battles, %d files in %s\n",
		manifest.RunID, manifest.Battles, len(manifest.Artifacts), writer.Root())
	return nil
}
