// Package worker runs the independent statistic computations of one run on a
// fixed-size pool of goroutines and joins their results.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/brawlstats/statsagg/internal/export"
)

// Prometheus metrics
var (
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statsagg_tasks_total",
		Help: "Total number of statistic tasks by kind and outcome",
	}, []string{"kind", "status"})

	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statsagg_task_duration_seconds",
		Help:    "Duration of statistic tasks",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
	}, []string{"kind"})

	tasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statsagg_tasks_in_flight",
		Help: "Number of statistic tasks currently running",
	})

	artifactsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statsagg_artifacts_rendered_total",
		Help: "Total number of artifacts rendered by statistic tasks",
	}, []string{"kind"})
)

// Task statuses used as metric labels
const (
	statusOK        = "ok"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
)

// Task computes one statistic kind and renders its artifacts in memory.
type Task struct {
	Kind string
	Run  func(ctx context.Context) ([]export.Artifact, error)
}

// TaskError names the task that failed a run.
type TaskError struct {
	Kind string
	Err  error
}

func (e *TaskError) Error() string { return fmt.Sprintf("task %s: %v", e.Kind, e.Err) }

func (e *TaskError) Unwrap() error { return e.Err }

// Job represents a unit of work for the worker pool
type Job struct {
	Index int
	Task  Task
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	// WorkerCount defaults to the number of tasks of a run.
	WorkerCount int
	Logger      *zap.Logger
}

// Pool runs tasks on a fixed number of workers. A Pool can run several batches of
// tasks, one after another or concurrently.
type Pool struct {
	config PoolConfig
	logger *zap.SugaredLogger
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{config: cfg, logger: cfg.Logger.Sugar()}
}

type run struct {
	jobQueue chan Job
	results  [][]export.Artifact
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	once     sync.Once
	firstErr error
}

func (r *run) fail(err error) {
	r.once.Do(func() {
		r.firstErr = err
		r.cancel()
	})
}

// Run executes every task and returns their artifacts in task order. The first
// failing task cancels the others; Run still waits for every worker to return and
// then reports that first failure as a *TaskError.
func (p *Pool) Run(ctx context.Context, tasks []Task) ([]export.Artifact, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	workers := p.config.WorkerCount
	if workers <= 0 || workers > len(tasks) {
		workers = len(tasks)
	}

	r := &run{
		jobQueue: make(chan Job, len(tasks)),
		results:  make([][]export.Artifact, len(tasks)),
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	defer r.cancel()

	for i, t := range tasks {
		r.jobQueue <- Job{Index: i, Task: t}
	}
	close(r.jobQueue)

	start := time.Now()
	p.logger.Infow("Worker pool started", "workers", workers, "tasks", len(tasks))

	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go p.worker(r, i)
	}
	r.wg.Wait()

	if r.firstErr != nil {
		p.logger.Errorw("Worker pool failed", "error", r.firstErr, "duration", time.Since(start))
		return nil, r.firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}

	var out []export.Artifact
	for _, res := range r.results {
		out = append(out, res...)
	}
	p.logger.Infow("Worker pool finished", "tasks", len(tasks), "artifacts", len(out), "duration", time.Since(start))
	return out, nil
}

// worker processes jobs until the queue is drained
func (p *Pool) worker(r *run, id int) {
	defer r.wg.Done()

	for job := range r.jobQueue {
		kind := job.Task.Kind
		if err := r.ctx.Err(); err != nil {
			tasksTotal.WithLabelValues(kind, statusCancelled).Inc()
			continue
		}

		start := time.Now()
		artifacts, err := p.execute(r.ctx, job.Task)
		elapsed := time.Since(start)
		taskDuration.WithLabelValues(kind).Observe(elapsed.Seconds())

		if err != nil {
			status := statusFailed
			if errors.Is(err, context.Canceled) && r.ctx.Err() != nil {
				status = statusCancelled
			}
			tasksTotal.WithLabelValues(kind, status).Inc()
			p.logger.Errorw("Task failed", "worker", id, "kind", kind, "duration", elapsed, "error", err)
			r.fail(&TaskError{Kind: kind, Err: err})
			continue
		}

		tasksTotal.WithLabelValues(kind, statusOK).Inc()
		artifactsRendered.WithLabelValues(kind).Add(float64(len(artifacts)))
		r.results[job.Index] = artifacts
		p.logger.Infow("Task done", "worker", id, "kind", kind, "artifacts", len(artifacts), "duration", elapsed)
	}
}

func (p *Pool) execute(ctx context.Context, t Task) (artifacts []export.Artifact, err error) {
	tasksInFlight.Inc()
	defer tasksInFlight.Dec()

	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Errorw("Task panic", "kind", t.Kind, "error", rec)
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return t.Run(ctx)
}
