// Package loader builds the in-memory Dataset one aggregation run works on.
package loader

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/brawlstats/statsagg/internal/models"
	"github.com/brawlstats/statsagg/internal/storage"
)

// Mode selects how result sets are retrieved.
type Mode string

const (
	// ModeStream reads through a server-side cursor in fixed-size chunks.
	ModeStream Mode = "stream"
	// ModeBulk materialises each table in one round trip. Small datasets only.
	ModeBulk Mode = "bulk"
)

// Config configures a Loader.
type Config struct {
	Store     storage.Adapter
	Mode      Mode
	ChunkSize int
	Location  *time.Location
	Logger    *zap.Logger
}

// Loader reads ranked battles from the store.
type Loader struct {
	store     storage.Adapter
	mode      Mode
	chunkSize int
	location  *time.Location
	logger    *zap.SugaredLogger
}

// New creates a Loader.
func New(cfg Config) *Loader {
	if cfg.Mode == "" {
		cfg.Mode = ModeStream
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = storage.DefaultChunkSize
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Loader{
		store:     cfg.Store,
		mode:      cfg.Mode,
		chunkSize: cfg.ChunkSize,
		location:  cfg.Location,
		logger:    cfg.Logger.Sugar(),
	}
}

// Cutoff returns the lexicographic lower bound for rank log ids recorded at or after since.
func (l *Loader) Cutoff(since time.Time) string {
	return since.In(l.location).Format("20060102")
}

type team struct {
	win  []int
	lose []int
}

func addMember(members []int, id int) []int {
	if slices.Contains(members, id) {
		return members
	}
	return append(members, id)
}

// Load retrieves every match with id >= cutoff(since) and rank >= minRank, plus the
// battles, participants and star logs reachable from them.
func (l *Loader) Load(ctx context.Context, since time.Time, minRank int) (*models.Dataset, error) {
	cutoff := l.Cutoff(since)
	start := time.Now()
	l.logger.Infow("Loading ranked dataset", "dialect", l.store.Dialect(), "cutoff", cutoff, "minRank", minRank, "mode", l.mode, "chunkSize", l.chunkSize)

	matches := make(map[string]models.Match)
	err := load[models.Match](ctx, l, "rank_logs", scanMatch, func(chunk []models.Match) error {
		for _, m := range chunk {
			matches[m.ID] = m
		}
		return nil
	}, rankLogsQuery, minRank, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load rank_logs: %w", err)
	}

	battleMatch := make(map[string]string)
	err = load[battleRef](ctx, l, "battle_logs", scanBattleRef, func(chunk []battleRef) error {
		for _, b := range chunk {
			battleMatch[b.id] = b.matchID
		}
		return nil
	}, battleLogsQuery, minRank, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load battle_logs: %w", err)
	}

	teams := make(map[string]*team, len(battleMatch))
	var unknownSide int
	err = load[models.Participant](ctx, l, "battle_participants", scanParticipant, func(chunk []models.Participant) error {
		for _, p := range chunk {
			if _, ok := battleMatch[p.BattleID]; !ok {
				continue
			}
			t, ok := teams[p.BattleID]
			if !ok {
				t = &team{}
				teams[p.BattleID] = t
			}
			switch p.Side {
			case models.SideWin:
				t.win = addMember(t.win, p.BrawlerID)
			case models.SideLose:
				t.lose = addMember(t.lose, p.BrawlerID)
			default:
				unknownSide++
			}
		}
		return nil
	}, participantsQuery, minRank, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load battle_participants: %w", err)
	}
	if unknownSide > 0 {
		l.logger.Warnw("Ignored participants with unknown side", "rows", unknownSide)
	}

	var stars []models.StarLog
	err = load[models.StarLog](ctx, l, "rank_star_logs", scanStar, func(chunk []models.StarLog) error {
		for _, s := range chunk {
			if _, ok := matches[s.MatchID]; ok {
				stars = append(stars, s)
			}
		}
		return nil
	}, starLogsQuery, minRank, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load rank_star_logs: %w", err)
	}

	battles := make([]models.Battle, 0, len(battleMatch))
	for battleID, matchID := range battleMatch {
		m, ok := matches[matchID]
		if !ok {
			continue
		}
		b := models.Battle{
			ID:      battleID,
			MatchID: matchID,
			MapID:   m.MapID,
			RankID:  m.RankID,
			ModeID:  m.ModeID,
		}
		if t := teams[battleID]; t != nil {
			b.Win = slices.Sorted(slices.Values(t.win))
			b.Lose = slices.Sorted(slices.Values(t.lose))
		}
		battles = append(battles, b)
	}

	ds := models.NewDataset(matches, battles, stars)
	l.logger.Infow("Ranked dataset loaded",
		"matches", len(matches),
		"battles", len(battles),
		"starLogs", len(stars),
		"duration", time.Since(start),
	)
	l.logMemory("dataset loaded")
	return ds, nil
}

// load reads one table and logs its row count, duration and memory afterwards.
func load[T any](ctx context.Context, l *Loader, table string, scan storage.ScanFunc[T], handle func([]T) error, query string, args ...any) error {
	start := time.Now()
	rows := 0
	err := read(ctx, l, scan, func(chunk []T) error {
		rows += len(chunk)
		return handle(chunk)
	}, query, args...)
	if err != nil {
		return err
	}
	l.logger.Infow("Table loaded", "table", table, "rows", rows, "duration", time.Since(start))
	l.logMemory(table)
	return nil
}

// read dispatches to the configured retrieval strategy.
func read[T any](ctx context.Context, l *Loader, scan storage.ScanFunc[T], handle func([]T) error, query string, args ...any) error {
	if l.mode == ModeBulk {
		rows, err := storage.FetchAll(ctx, l.store, scan, query, args...)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return handle(rows)
	}
	return storage.StreamChunks(ctx, l.store, l.chunkSize, scan, handle, query, args...)
}

func (l *Loader) logMemory(stage string) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	l.logger.Debugw("Memory usage", "stage", stage, "heapAllocMB", ms.HeapAlloc>>20, "sysMB", ms.Sys>>20)
}
