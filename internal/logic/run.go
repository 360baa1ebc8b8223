package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brawlstats/statsagg/internal/export"
	"github.com/brawlstats/statsagg/internal/models"
	"github.com/brawlstats/statsagg/internal/stats"
	"github.com/brawlstats/statsagg/internal/worker"
)

// Run stages, reported by StageError.
const (
	StageLoad      = "load"
	StageAggregate = "aggregate"
	StageExport    = "export"
)

// StageError names the pipeline stage a run failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// DataSource is the read side of a run.
type DataSource interface {
	Load(ctx context.Context, since time.Time, minRank int) (*models.Dataset, error)
	LoadReference(ctx context.Context) (*models.Reference, error)
	RankMatchCounts(ctx context.Context, minRank int) ([]models.RankMatchCount, error)
	HighestRankPlayers(ctx context.Context, rank int) ([]string, error)
	LoadMonitored(ctx context.Context) (*models.MonitoredDataset, error)
	Cutoff(since time.Time) string
}

// TaskRunner fans statistic tasks out and joins their artifacts.
type TaskRunner interface {
	Run(ctx context.Context, tasks []worker.Task) ([]export.Artifact, error)
}

// Publisher makes a run's artifacts visible downstream.
type Publisher interface {
	Publish(ctx context.Context, manifest models.Manifest, artifacts []export.Artifact) (*models.Manifest, error)
}

// RunConfig holds the window and limits of a run.
type RunConfig struct {
	RetentionDays     int
	MinRankID         int
	HighestRankTarget int
	Timeout           time.Duration
	// Window returns the start of the retention window for a run started at now.
	// Defaults to RetentionDays days before now in UTC.
	Window func(now time.Time) time.Time
	// Now defaults to time.Now.
	Now func() time.Time
}

// RunService runs the whole pipeline: load, aggregate every statistic kind, publish.
type RunService struct {
	source     DataSource
	aggregator *stats.Aggregator
	runner     TaskRunner
	publisher  Publisher
	cfg        RunConfig
	logger     *zap.SugaredLogger
}

func NewRunService(source DataSource, aggregator *stats.Aggregator, runner TaskRunner, publisher Publisher, cfg RunConfig, logger *zap.Logger) *RunService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Window == nil {
		days := cfg.RetentionDays
		cfg.Window = func(now time.Time) time.Time {
			return now.UTC().AddDate(0, 0, -days)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunService{
		source:     source,
		aggregator: aggregator,
		runner:     runner,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger.Sugar(),
	}
}

// inputs is everything a run reads before aggregating.
type inputs struct {
	dataset    *models.Dataset
	reference  *models.Reference
	rankCounts []models.RankMatchCount
	topPlayers []string
	monitored  *models.MonitoredDataset
}

// Run executes one aggregation run and returns the published manifest. Nothing is
// published unless every statistic kind succeeded.
func (s *RunService) Run(ctx context.Context) (*models.Manifest, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := s.cfg.Now()
	since := s.cfg.Window(start)
	cutoff := s.source.Cutoff(since)
	s.logger.Infow("Starting aggregation run",
		"since", cutoff,
		"retention_days", s.cfg.RetentionDays,
		"min_rank_id", s.cfg.MinRankID,
		"confidence_level", s.aggregator.ConfidenceLevel(),
	)

	in, err := s.load(ctx, since)
	if err != nil {
		runsTotal.WithLabelValues(StageLoad).Inc()
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	battlesLoaded.Set(float64(len(in.dataset.Battles)))

	r := newRenderer(start, s.aggregator.ConfidenceLevel(), in.reference, s.cfg.MinRankID)
	tasks, malformed := s.tasks(in, r)
	artifacts, err := s.runner.Run(ctx, tasks)
	if err != nil {
		stage := StageAggregate
		var taskErr *worker.TaskError
		if errors.As(err, &taskErr) {
			stage = StageAggregate + ":" + taskErr.Kind
		}
		runsTotal.WithLabelValues(StageAggregate).Inc()
		return nil, &StageError{Stage: stage, Err: err}
	}
	malformedBattles.Set(float64(*malformed))

	manifest, err := s.publisher.Publish(ctx, models.Manifest{
		GeneratedAt:     start,
		Since:           cutoff,
		RetentionDays:   s.cfg.RetentionDays,
		MinRankID:       s.cfg.MinRankID,
		ConfidenceLevel: s.aggregator.ConfidenceLevel(),
		Battles:         len(in.dataset.Battles),
		MalformedBattle: *malformed,
	}, artifacts)
	if err != nil {
		runsTotal.WithLabelValues(StageExport).Inc()
		return nil, &StageError{Stage: StageExport, Err: err}
	}

	elapsed := s.cfg.Now().Sub(start)
	runsTotal.WithLabelValues("ok").Inc()
	runDuration.Set(elapsed.Seconds())
	lastSuccess.SetToCurrentTime()
	s.logger.Infow("Aggregation run complete",
		"run_id", manifest.RunID,
		"battles", manifest.Battles,
		"malformed_battles", manifest.MalformedBattle,
		"artifacts", len(manifest.Artifacts),
		"duration", elapsed,
	)
	return manifest, nil
}

func (s *RunService) load(ctx context.Context, since time.Time) (*inputs, error) {
	in := &inputs{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ds, err := s.source.Load(ctx, since, s.cfg.MinRankID)
		if err != nil {
			return fmt.Errorf("dataset: %w", err)
		}
		in.dataset = ds
		return nil
	})
	g.Go(func() error {
		ref, err := s.source.LoadReference(ctx)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		in.reference = ref
		return nil
	})
	g.Go(func() error {
		counts, err := s.source.RankMatchCounts(ctx, s.cfg.MinRankID)
		if err != nil {
			return fmt.Errorf("rank match counts: %w", err)
		}
		in.rankCounts = counts
		return nil
	})
	g.Go(func() error {
		tags, err := s.source.HighestRankPlayers(ctx, s.cfg.HighestRankTarget)
		if err != nil {
			return fmt.Errorf("highest rank players: %w", err)
		}
		in.topPlayers = tags
		return nil
	})
	g.Go(func() error {
		md, err := s.source.LoadMonitored(ctx)
		if err != nil {
			return fmt.Errorf("monitored players: %w", err)
		}
		in.monitored = md
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// tasks builds one task per statistic kind. The returned counter is filled by the
// 3v3 task and is only valid after the tasks have run.
func (s *RunService) tasks(in *inputs, r *renderer) ([]worker.Task, *int) {
	agg, ds := s.aggregator, in.dataset
	malformed := new(int)

	return []worker.Task{
		{Kind: export.KindWinRates, Run: func(ctx context.Context) ([]export.Artifact, error) {
			entries, err := agg.WinRates(ctx, ds)
			if err != nil {
				return nil, err
			}
			return []export.Artifact{file(r, export.KindWinRates, export.WinRatesFile, r.confidence, entries)}, nil
		}},
		{Kind: export.KindStarRates, Run: func(ctx context.Context) ([]export.Artifact, error) {
			entries, err := agg.StarRates(ctx, ds)
			if err != nil {
				return nil, err
			}
			return []export.Artifact{file(r, export.KindStarRates, export.StarRatesFile, 0, entries)}, nil
		}},
		{Kind: export.KindPairMatchup, Run: func(ctx context.Context) ([]export.Artifact, error) {
			byMap, err := agg.Matchups(ctx, ds)
			if err != nil {
				return nil, err
			}
			return r.pairs(export.KindPairMatchup, "matchup", byMap), nil
		}},
		{Kind: export.KindPairSynergy, Run: func(ctx context.Context) ([]export.Artifact, error) {
			byMap, err := agg.Synergy(ctx, ds)
			if err != nil {
				return nil, err
			}
			return r.pairs(export.KindPairSynergy, "synergy", byMap), nil
		}},
		{Kind: export.KindTrio, Run: func(ctx context.Context) ([]export.Artifact, error) {
			byMapRank, err := agg.Trios(ctx, ds)
			if err != nil {
				return nil, err
			}
			return r.trios(byMapRank), nil
		}},
		{Kind: export.KindThreeVsThree, Run: func(ctx context.Context) ([]export.Artifact, error) {
			byMap, skipped, err := agg.ThreeVsThree(ctx, ds)
			if err != nil {
				return nil, err
			}
			*malformed = skipped
			return r.teams(byMap), nil
		}},
		{Kind: export.KindRankMatchCounts, Run: func(context.Context) ([]export.Artifact, error) {
			return []export.Artifact{file(r, export.KindRankMatchCounts, export.RankMatchCountsFile, 0, in.rankCounts)}, nil
		}},
		{Kind: export.KindHighestRankPlayers, Run: func(context.Context) ([]export.Artifact, error) {
			return []export.Artifact{file(r, export.KindHighestRankPlayers, export.HighestRankPlayersFile, 0, in.topPlayers)}, nil
		}},
		{Kind: export.KindMonitoredPlayers, Run: func(context.Context) ([]export.Artifact, error) {
			players := agg.MonitoredPlayers(in.monitored)
			return []export.Artifact{file(r, export.KindMonitoredPlayers, export.MonitoredPlayersFile, 0, players)}, nil
		}},
	}, malformed
}
