// Package stats turns a loaded Dataset into confidence-bounded statistics.
//
// Directed counters (matchup, 3v3) hold only winner-first keys. The mirrored
// loser-first entries are derived at export time, with losses(a, b) read from the
// count of (b, a).
package stats

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/brawlstats/statsagg/internal/combo"
	"github.com/brawlstats/statsagg/internal/models"
)

// DefaultThreeVsThreeMinGames is the 3v3 minimum-games threshold used when none is set.
const DefaultThreeVsThreeMinGames = 4

// Config configures an Aggregator.
type Config struct {
	ConfidenceLevel      float64
	Shards               int
	ThreeVsThreeMinGames int
	Logger               *zap.Logger
}

// Aggregator computes each statistic kind. All methods only read the Dataset and are
// safe to call concurrently.
type Aggregator struct {
	confidence   float64
	shards       int
	teamMinGames int
	logger       *zap.SugaredLogger
}

// New creates an Aggregator.
func New(cfg Config) *Aggregator {
	if cfg.ConfidenceLevel <= 0 || cfg.ConfidenceLevel >= 1 {
		cfg.ConfidenceLevel = DefaultConfidenceLevel
	}
	if cfg.Shards <= 0 {
		cfg.Shards = runtime.GOMAXPROCS(0)
	}
	if cfg.ThreeVsThreeMinGames <= 0 {
		cfg.ThreeVsThreeMinGames = DefaultThreeVsThreeMinGames
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Aggregator{
		confidence:   cfg.ConfidenceLevel,
		shards:       cfg.Shards,
		teamMinGames: cfg.ThreeVsThreeMinGames,
		logger:       cfg.Logger.Sugar(),
	}
}

// ConfidenceLevel returns the configured credible level.
func (a *Aggregator) ConfidenceLevel() float64 { return a.confidence }

func (a *Aggregator) logPass(kind string, battles, buckets, skipped int, start time.Time) {
	a.logger.Infow("Aggregation pass done",
		"kind", kind,
		"battles", battles,
		"buckets", buckets,
		"skipped", skipped,
		"duration", time.Since(start),
	)
	if skipped > 0 {
		a.logger.Warnw("Skipped malformed battles", "kind", kind, "battles", skipped, "error", combo.ErrMalformedBattle)
	}
}

// WinRates counts, per map, every character's wins and losses.
func (a *Aggregator) WinRates(ctx context.Context, ds *models.Dataset) ([]models.WinRateEntry, error) {
	start := time.Now()
	counter, skipped, err := countSharded(ctx, ds.Battles, a.shards, func(b models.Battle, c Counter[CharKey]) error {
		for _, id := range combo.Canonical(b.Win) {
			c.Win(CharKey{MapID: b.MapID, BrawlerID: id})
		}
		for _, id := range combo.Canonical(b.Lose) {
			c.Loss(CharKey{MapID: b.MapID, BrawlerID: id})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("win rates: %w", err)
	}
	a.logPass("win_rates", len(ds.Battles), len(counter), skipped, start)

	out := make([]models.WinRateEntry, 0, len(counter))
	for _, k := range counter.SortedKeys(compareChar) {
		t := counter[k]
		est := Finalize(t.Wins, t.Losses, a.confidence)
		out = append(out, models.WinRateEntry{
			MapID:      k.MapID,
			BrawlerID:  k.BrawlerID,
			Wins:       t.Wins,
			Losses:     t.Losses,
			Games:      t.Games(),
			WinRate:    est.WinRate,
			WinRateLCB: est.LowerBound,
		})
	}
	return out, nil
}

// StarRates computes, per map and character, how often the character was picked and
// how often it was the star player of a match it appeared in.
func (a *Aggregator) StarRates(ctx context.Context, ds *models.Dataset) ([]models.StarRateEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totals := make(map[int]int64)
	for _, m := range ds.Matches {
		totals[m.MapID]++
	}

	usage := make(Counter[CharKey])
	for matchID, ids := range ds.ParticipantsByMatch() {
		m, ok := ds.Matches[matchID]
		if !ok {
			continue
		}
		for _, id := range ids {
			usage.Win(CharKey{MapID: m.MapID, BrawlerID: id})
		}
	}

	stars := make(map[CharKey]int64)
	for _, s := range ds.Stars {
		m, ok := ds.Matches[s.MatchID]
		if !ok {
			continue
		}
		stars[CharKey{MapID: m.MapID, BrawlerID: s.BrawlerID}]++
	}

	out := make([]models.StarRateEntry, 0, len(usage))
	for _, k := range usage.SortedKeys(compareChar) {
		used := usage[k].Wins
		e := models.StarRateEntry{
			MapID:     k.MapID,
			BrawlerID: k.BrawlerID,
			Matches:   used,
			Stars:     stars[k],
		}
		if used > 0 {
			e.StarRate = float64(e.Stars) / float64(used)
		}
		if total := totals[k.MapID]; total > 0 {
			e.UsageRate = float64(used) / float64(total)
		}
		out = append(out, e)
	}
	return out, nil
}

// Matchups computes directed character matchups per map. The counter only records
// winner-first keys; the losses of (A, B) are the wins of (B, A).
func (a *Aggregator) Matchups(ctx context.Context, ds *models.Dataset) (map[int][]models.PairEntry, error) {
	start := time.Now()
	counter, _, err := countSharded(ctx, ds.Battles, a.shards, func(b models.Battle, c Counter[PairKey]) error {
		for _, p := range combo.Expand(b).Matchups {
			c.Win(PairKey{MapID: b.MapID, A: p.A, B: p.B})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pair matchup: %w", err)
	}
	a.logPass("pair_matchup", len(ds.Battles), len(counter), 0, start)

	out := make(map[int][]models.PairEntry)
	for _, k := range directedKeys(counter, PairKey.Reverse, comparePair) {
		wins, losses := counter[k].Wins, counter[k.Reverse()].Wins
		out[k.MapID] = append(out[k.MapID], a.pairEntry(k, wins, losses))
	}
	return out, nil
}

// Synergy computes same-team pair win rates per map. Pairs are listed with A < B.
func (a *Aggregator) Synergy(ctx context.Context, ds *models.Dataset) (map[int][]models.PairEntry, error) {
	start := time.Now()
	counter, _, err := countSharded(ctx, ds.Battles, a.shards, func(b models.Battle, c Counter[PairKey]) error {
		e := combo.Expand(b)
		for _, p := range e.WinPairs {
			c.Win(PairKey{MapID: b.MapID, A: p.A, B: p.B})
		}
		for _, p := range e.LosePairs {
			c.Loss(PairKey{MapID: b.MapID, A: p.A, B: p.B})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pair synergy: %w", err)
	}
	a.logPass("pair_synergy", len(ds.Battles), len(counter), 0, start)

	out := make(map[int][]models.PairEntry)
	for _, k := range counter.SortedKeys(comparePair) {
		t := counter[k]
		out[k.MapID] = append(out[k.MapID], a.pairEntry(k, t.Wins, t.Losses))
	}
	return out, nil
}

func (a *Aggregator) pairEntry(k PairKey, wins, losses int64) models.PairEntry {
	est := Finalize(wins, losses, a.confidence)
	return models.PairEntry{
		MapID:      k.MapID,
		BrawlerA:   k.A,
		BrawlerB:   k.B,
		Wins:       wins,
		Losses:     losses,
		Games:      wins + losses,
		WinRate:    est.WinRate,
		WinRateLCB: est.LowerBound,
	}
}

// directedKeys returns every key of c together with its reverse, sorted.
func directedKeys[K comparable](c Counter[K], reverse func(K) K, compare func(a, b K) int) []K {
	set := make(Counter[K], len(c)*2)
	for k := range c {
		set[k] = Tally{}
		set[reverse(k)] = Tally{}
	}
	return set.SortedKeys(compare)
}

// Trios computes team composition win rates per map and rank tier. Battles without
// exactly three characters per side are skipped.
func (a *Aggregator) Trios(ctx context.Context, ds *models.Dataset) (map[int]map[int][]models.TrioEntry, error) {
	start := time.Now()
	counter, skipped, err := countSharded(ctx, ds.Battles, a.shards, func(b models.Battle, c Counter[TrioKey]) error {
		e := combo.Expand(b)
		if !e.HasTrios() {
			a.logger.Debugw("Skipping trio expansion", "battle", b.ID, "error", e.Malformed)
			return e.Malformed
		}
		c.Win(TrioKey{MapID: b.MapID, RankID: b.RankID, Trio: e.WinTrio})
		c.Loss(TrioKey{MapID: b.MapID, RankID: b.RankID, Trio: e.LoseTrio})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("trio: %w", err)
	}
	a.logPass("trio", len(ds.Battles), len(counter), skipped, start)

	out := make(map[int]map[int][]models.TrioEntry)
	for _, k := range counter.SortedKeys(compareTrioKey) {
		t := counter[k]
		est := Finalize(t.Wins, t.Losses, a.confidence)
		byRank, ok := out[k.MapID]
		if !ok {
			byRank = make(map[int][]models.TrioEntry)
			out[k.MapID] = byRank
		}
		byRank[k.RankID] = append(byRank[k.RankID], models.TrioEntry{
			MapID:      k.MapID,
			RankID:     k.RankID,
			Brawlers:   k.Trio,
			Wins:       t.Wins,
			Losses:     t.Losses,
			Games:      t.Games(),
			WinRate:    est.WinRate,
			WinRateLCB: est.LowerBound,
		})
	}
	return out, nil
}

// ThreeVsThree computes win rates of exact team-vs-team compositions per map.
// Compositions with fewer games than the configured minimum are dropped.
func (a *Aggregator) ThreeVsThree(ctx context.Context, ds *models.Dataset) (map[int][]models.TeamMatchupEntry, int, error) {
	start := time.Now()
	counter, skipped, err := countSharded(ctx, ds.Battles, a.shards, func(b models.Battle, c Counter[TeamKey]) error {
		e := combo.Expand(b)
		if !e.HasTrios() {
			a.logger.Debugw("Skipping 3v3 expansion", "battle", b.ID, "error", e.Malformed)
			return e.Malformed
		}
		c.Win(TeamKey{MapID: b.MapID, Win: e.Composition.Win, Lose: e.Composition.Lose})
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("3v3: %w", err)
	}
	a.logPass("three_vs_three", len(ds.Battles), len(counter), skipped, start)

	out := make(map[int][]models.TeamMatchupEntry)
	for _, k := range directedKeys(counter, TeamKey.Reverse, compareTeam) {
		wins, losses := counter[k].Wins, counter[k.Reverse()].Wins
		if wins+losses < int64(a.teamMinGames) {
			continue
		}
		est := Finalize(wins, losses, a.confidence)
		out[k.MapID] = append(out[k.MapID], models.TeamMatchupEntry{
			MapID:        k.MapID,
			WinBrawlers:  k.Win,
			LoseBrawlers: k.Lose,
			Wins:         wins,
			Losses:       losses,
			Games:        wins + losses,
			WinRate:      est.WinRate,
			WinRateLCB:   est.LowerBound,
		})
	}
	return out, skipped, nil
}
