package loader

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/brawlstats/statsagg/internal/models"
	"github.com/brawlstats/statsagg/internal/storage"
)

// LoadReference fetches the dimension tables. They are small, so they are always
// fetched in bulk.
func (l *Loader) LoadReference(ctx context.Context) (*models.Reference, error) {
	ref := &models.Reference{}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		maps, err := storage.FetchAll(ctx, l.store, func(r storage.Rows) (models.Map, error) {
			var (
				m      models.Map
				id     int64
				modeID *int64
			)
			err := r.Scan(&id, &m.Name, &m.NameJA, &modeID)
			m.ID = int(id)
			m.ModeID = optionalInt(modeID)
			return m, err
		}, mapsQuery)
		if err != nil {
			return fmt.Errorf("maps: %w", err)
		}
		ref.Maps = make(map[int]models.Map, len(maps))
		for _, m := range maps {
			ref.Maps[m.ID] = m
		}
		return nil
	})

	g.Go(func() error {
		modes, err := storage.FetchAll(ctx, l.store, func(r storage.Rows) (models.Mode, error) {
			var (
				m  models.Mode
				id int64
			)
			err := r.Scan(&id, &m.Name, &m.NameJA)
			m.ID = int(id)
			return m, err
		}, modesQuery)
		if err != nil {
			return fmt.Errorf("modes: %w", err)
		}
		ref.Modes = make(map[int]models.Mode, len(modes))
		for _, m := range modes {
			ref.Modes[m.ID] = m
		}
		return nil
	})

	g.Go(func() error {
		ranks, err := storage.FetchAll(ctx, l.store, func(r storage.Rows) (models.Rank, error) {
			var (
				rk models.Rank
				id int64
			)
			err := r.Scan(&id, &rk.Name, &rk.NameJA)
			rk.ID = int(id)
			return rk, err
		}, ranksQuery)
		if err != nil {
			return fmt.Errorf("ranks: %w", err)
		}
		ref.Ranks = make(map[int]models.Rank, len(ranks))
		for _, rk := range ranks {
			ref.Ranks[rk.ID] = rk
		}
		return nil
	})

	g.Go(func() error {
		brawlers, err := storage.FetchAll(ctx, l.store, func(r storage.Rows) (models.Brawler, error) {
			var (
				b  models.Brawler
				id int64
			)
			err := r.Scan(&id, &b.Name)
			b.ID = int(id)
			return b, err
		}, brawlersQuery)
		if err != nil {
			return fmt.Errorf("brawlers: %w", err)
		}
		ref.Brawlers = make(map[int]models.Brawler, len(brawlers))
		for _, b := range brawlers {
			ref.Brawlers[b.ID] = b
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}

	l.logger.Infow("Reference data loaded",
		"maps", len(ref.Maps),
		"modes", len(ref.Modes),
		"ranks", len(ref.Ranks),
		"brawlers", len(ref.Brawlers),
	)
	return ref, nil
}

// RankMatchCounts counts recorded matches per rank tier, for tiers >= minRank.
func (l *Loader) RankMatchCounts(ctx context.Context, minRank int) ([]models.RankMatchCount, error) {
	counts, err := storage.FetchAll(ctx, l.store, func(r storage.Rows) (models.RankMatchCount, error) {
		var (
			c  models.RankMatchCount
			id int64
		)
		err := r.Scan(&id, &c.Name, &c.NameJA, &c.RankLogCount)
		c.RankID = int(id)
		return c, err
	}, rankMatchCountsQuery, minRank)
	if err != nil {
		return nil, fmt.Errorf("rank match counts: %w", err)
	}
	if counts == nil {
		counts = []models.RankMatchCount{}
	}
	return counts, nil
}

// HighestRankPlayers lists the names of players whose best rank equals rank.
func (l *Loader) HighestRankPlayers(ctx context.Context, rank int) ([]string, error) {
	names, err := storage.FetchAll(ctx, l.store, func(r storage.Rows) (string, error) {
		var name string
		err := r.Scan(&name)
		return name, err
	}, highestRankPlayersQuery, rank)
	if err != nil {
		return nil, fmt.Errorf("highest rank players: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
