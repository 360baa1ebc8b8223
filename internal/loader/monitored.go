package loader

import (
	"context"
	"fmt"
	"sort"

	"github.com/brawlstats/statsagg/internal/models"
	"github.com/brawlstats/statsagg/internal/storage"
)

type playerBattleKey struct {
	tag      string
	battleID string
}

// LoadMonitored reads every battle of the monitored players, across all time.
// A player appearing twice in one battle is counted once.
func (l *Loader) LoadMonitored(ctx context.Context) (*models.MonitoredDataset, error) {
	players, err := storage.FetchAll(ctx, l.store, func(r storage.Rows) (models.MonitoredPlayer, error) {
		var (
			p                models.MonitoredPlayer
			name             *string
			highest, current *int64
		)
		err := r.Scan(&p.Tag, &name, &highest, &current)
		if name != nil && *name != "" {
			p.Name = name
		}
		p.HighestRankID = optionalInt(highest)
		p.CurrentRankID = optionalInt(current)
		return p, err
	}, monitoredPlayersQuery)
	if err != nil {
		return nil, fmt.Errorf("monitored players: %w", err)
	}

	ds := &models.MonitoredDataset{Players: make(map[string]models.MonitoredPlayer, len(players))}
	for _, p := range players {
		ds.Players[p.Tag] = p
	}
	if len(ds.Players) == 0 {
		l.logger.Info("No monitored players, skipping player battles")
		return ds, nil
	}

	seen := make(map[playerBattleKey]models.PlayerBattle)
	var rawRows, duplicates int
	err = read(ctx, l, scanPlayerBattle, func(chunk []models.PlayerBattle) error {
		for _, pb := range chunk {
			rawRows++
			key := playerBattleKey{tag: pb.PlayerTag, battleID: pb.BattleID}
			existing, ok := seen[key]
			if !ok {
				seen[key] = pb
				continue
			}
			if existing != pb {
				l.logger.Warnw("Inconsistent duplicate player battle", "player", pb.PlayerTag, "battle", pb.BattleID)
			}
			duplicates++
		}
		return nil
	}, monitoredBattlesQuery)
	if err != nil {
		return nil, fmt.Errorf("monitored battles: %w", err)
	}

	ds.Battles = make([]models.PlayerBattle, 0, len(seen))
	for _, pb := range seen {
		ds.Battles = append(ds.Battles, pb)
	}
	sort.Slice(ds.Battles, func(i, j int) bool {
		if ds.Battles[i].PlayerTag != ds.Battles[j].PlayerTag {
			return ds.Battles[i].PlayerTag < ds.Battles[j].PlayerTag
		}
		return ds.Battles[i].BattleID < ds.Battles[j].BattleID
	})

	l.logger.Infow("Monitored player battles loaded",
		"players", len(ds.Players),
		"rows", rawRows,
		"battles", len(ds.Battles),
		"duplicates", duplicates,
	)
	return ds, nil
}

func scanPlayerBattle(r storage.Rows) (models.PlayerBattle, error) {
	var (
		pb             models.PlayerBattle
		mapID, brawler int64
		side           string
	)
	if err := r.Scan(&pb.PlayerTag, &pb.BattleID, &pb.MatchID, &mapID, &brawler, &side); err != nil {
		return pb, err
	}
	pb.MapID = int(mapID)
	pb.BrawlerID = int(brawler)
	pb.IsWin = side == models.SideWin
	return pb, nil
}
