package logic

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Prometheus metrics
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statsagg_runs_total",
		Help: "Aggregation runs by outcome (ok or the failing stage)",
	}, []string{"result"})

	runDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statsagg_run_duration_seconds",
		Help: "Duration of the last successful aggregation run",
	})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statsagg_last_success_timestamp_seconds",
		Help: "Unix time of the last successful aggregation run",
	})

	battlesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statsagg_battles_loaded",
		Help: "Battles in the window of the last run",
	})

	malformedBattles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statsagg_malformed_battles",
		Help: "Battles skipped by team statistics in the last run",
	})
)

// PushMetrics pushes the default registry to a Prometheus Pushgateway. Batch runs
// exit before any scrape would see them.
func PushMetrics(ctx context.Context, url, job string) error {
	err := push.New(url, job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
