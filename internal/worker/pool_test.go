package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/brawlstats/statsagg/internal/export"
)

func artifactTask(kind string, n int) Task {
	return Task{Kind: kind, Run: func(context.Context) ([]export.Artifact, error) {
		out := make([]export.Artifact, n)
		for i := range out {
			out[i] = export.Artifact{Kind: kind, Path: fmt.Sprintf("%s/%d.json", kind, i)}
		}
		return out, nil
	}}
}

func TestRunReturnsArtifactsInTaskOrder(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 3, Logger: zap.NewNop()})

	tasks := []Task{artifactTask("a", 2), artifactTask("b", 1), artifactTask("c", 0), artifactTask("d", 3)}
	// make the first task finish last
	slow := tasks[0].Run
	tasks[0].Run = func(ctx context.Context) ([]export.Artifact, error) {
		time.Sleep(20 * time.Millisecond)
		return slow(ctx)
	}

	got, err := pool.Run(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"a/0.json", "a/1.json", "b/0.json", "d/0.json", "d/1.json", "d/2.json"}
	if len(got) != len(want) {
		t.Fatalf("artifacts = %d, want %d", len(got), len(want))
	}
	for i, a := range got {
		if a.Path != want[i] {
			t.Errorf("artifact %d = %s, want %s", i, a.Path, want[i])
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 2})

	var running, peak atomic.Int32
	tasks := make([]Task, 6)
	for i := range tasks {
		tasks[i] = Task{Kind: "k", Run: func(context.Context) ([]export.Artifact, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil, nil
		}}
	}

	if _, err := pool.Run(context.Background(), tasks); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestRunFirstErrorCancelsSiblings(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 2})
	boom := errors.New("boom")

	var sawCancel atomic.Bool
	tasks := []Task{
		{Kind: "slow", Run: func(ctx context.Context) ([]export.Artifact, error) {
			select {
			case <-ctx.Done():
				sawCancel.Store(true)
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return nil, nil
			}
		}},
		{Kind: "trio", Run: func(context.Context) ([]export.Artifact, error) {
			return nil, boom
		}},
	}

	start := time.Now()
	got, err := pool.Run(context.Background(), tasks)
	if got != nil {
		t.Errorf("artifacts = %v, want none", got)
	}
	var taskErr *TaskError
	if !errors.As(err, &taskErr) || taskErr.Kind != "trio" || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want TaskError for trio wrapping boom", err)
	}
	if !sawCancel.Load() {
		t.Error("sibling task was not cancelled")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Run did not stop early")
	}
}

func TestRunRecoversPanics(t *testing.T) {
	pool := NewPool(PoolConfig{})
	_, err := pool.Run(context.Background(), []Task{{Kind: "bad", Run: func(context.Context) ([]export.Artifact, error) {
		var m map[string]int
		m["x"]++
		return nil, nil
	}}})

	var taskErr *TaskError
	if !errors.As(err, &taskErr) || taskErr.Kind != "bad" {
		t.Errorf("err = %v, want TaskError for bad", err)
	}
}

func TestRunCancelledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	task := Task{Kind: "k", Run: func(context.Context) ([]export.Artifact, error) {
		ran.Add(1)
		return nil, nil
	}}
	if _, err := NewPool(PoolConfig{WorkerCount: 1}).Run(ctx, []Task{task, task}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if ran.Load() != 0 {
		t.Errorf("%d tasks ran after cancellation", ran.Load())
	}
}

func TestRunNoTasks(t *testing.T) {
	got, err := NewPool(PoolConfig{}).Run(context.Background(), nil)
	if got != nil || err != nil {
		t.Errorf("Run(nil) = %v, %v", got, err)
	}
}
