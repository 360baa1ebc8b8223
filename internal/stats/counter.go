package stats

import (
	"context"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/brawlstats/statsagg/internal/combo"
	"github.com/brawlstats/statsagg/internal/models"
)

// Tally is the win/loss count of one bucket.
type Tally struct {
	Wins   int64
	Losses int64
}

// Games is Wins + Losses.
func (t Tally) Games() int64 { return t.Wins + t.Losses }

// Counter accumulates tallies per key. A Counter is owned by one goroutine.
type Counter[K comparable] map[K]Tally

func (c Counter[K]) Win(k K) {
	t := c[k]
	t.Wins++
	c[k] = t
}

func (c Counter[K]) Loss(k K) {
	t := c[k]
	t.Losses++
	c[k] = t
}

// Merge adds every tally of o into c.
func (c Counter[K]) Merge(o Counter[K]) {
	for k, v := range o {
		t := c[k]
		t.Wins += v.Wins
		t.Losses += v.Losses
		c[k] = t
	}
}

// SortedKeys returns the keys ordered by compare.
func (c Counter[K]) SortedKeys(compare func(a, b K) int) []K {
	keys := make([]K, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compare)
	return keys
}

// ExpandFunc adds the contributions of one battle to a shard-local counter. Returning
// an error wrapping combo.ErrMalformedBattle marks the battle as skipped; any other
// error aborts the pass.
type ExpandFunc[K comparable] func(b models.Battle, c Counter[K]) error

const cancelCheckEvery = 4096

// countSharded makes one pass over battles split into contiguous shards. Each shard
// fills its own counter; the counters are merged on the calling goroutine once all
// shards are done, so no counter is ever shared.
func countSharded[K comparable](ctx context.Context, battles []models.Battle, shards int, expand ExpandFunc[K]) (Counter[K], int, error) {
	if shards < 1 {
		shards = 1
	}
	if shards > len(battles) {
		shards = max(len(battles), 1)
	}

	locals := make([]Counter[K], shards)
	skipped := make([]int, shards)
	size := (len(battles) + shards - 1) / shards

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		lo := min(i*size, len(battles))
		hi := min(lo+size, len(battles))
		g.Go(func() error {
			local := make(Counter[K])
			for n, b := range battles[lo:hi] {
				if n%cancelCheckEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				if err := expand(b, local); err != nil {
					if errors.Is(err, combo.ErrMalformedBattle) {
						skipped[i]++
						continue
					}
					return err
				}
			}
			locals[i] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	total := make(Counter[K])
	var totalSkipped int
	for i, local := range locals {
		total.Merge(local)
		totalSkipped += skipped[i]
	}
	return total, totalSkipped, nil
}
