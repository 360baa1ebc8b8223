package stats

import (
	"cmp"
	"math"
	"slices"
	"sort"
	"strconv"

	"github.com/brawlstats/statsagg/internal/models"
)

// record counts a player's results together with the distinct matches behind them.
type record struct {
	wins, losses int64
	matches      map[string]struct{}
}

func (r *record) add(pb models.PlayerBattle) {
	if pb.IsWin {
		r.wins++
	} else {
		r.losses++
	}
	if r.matches == nil {
		r.matches = make(map[string]struct{})
	}
	r.matches[pb.MatchID] = struct{}{}
}

func (r *record) export() models.PlayerRecord {
	if r == nil {
		return models.PlayerRecord{}
	}
	games := r.wins + r.losses
	out := models.PlayerRecord{
		Wins:      r.wins,
		Losses:    r.losses,
		Games:     games,
		RankGames: int64(len(r.matches)),
	}
	if games > 0 {
		out.WinRate = percent(r.wins, games)
	}
	return out
}

// percent returns wins/games as a percentage rounded to two decimals.
func percent(wins, games int64) float64 {
	return math.Round(float64(wins)/float64(games)*10000) / 100
}

type playerAcc struct {
	overall    record
	perMap     map[int]*record
	perBrawler map[int]map[int]*record
}

// MonitoredPlayers summarises each monitored player's battles: per map and character,
// per map, and overall. Win rates are percentages; rank_games counts distinct matches.
// Players without battles are still listed with empty breakdowns.
func (a *Aggregator) MonitoredPlayers(md *models.MonitoredDataset) []models.PlayerStats {
	if md == nil {
		return []models.PlayerStats{}
	}

	accs := make(map[string]*playerAcc, len(md.Players))
	for _, pb := range md.Battles {
		if _, ok := md.Players[pb.PlayerTag]; !ok {
			continue
		}
		acc, ok := accs[pb.PlayerTag]
		if !ok {
			acc = &playerAcc{perMap: make(map[int]*record), perBrawler: make(map[int]map[int]*record)}
			accs[pb.PlayerTag] = acc
		}
		acc.overall.add(pb)

		m, ok := acc.perMap[pb.MapID]
		if !ok {
			m = &record{}
			acc.perMap[pb.MapID] = m
		}
		m.add(pb)

		byBrawler, ok := acc.perBrawler[pb.MapID]
		if !ok {
			byBrawler = make(map[int]*record)
			acc.perBrawler[pb.MapID] = byBrawler
		}
		br, ok := byBrawler[pb.BrawlerID]
		if !ok {
			br = &record{}
			byBrawler[pb.BrawlerID] = br
		}
		br.add(pb)
	}

	tags := make([]string, 0, len(md.Players))
	for tag := range md.Players {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	out := make([]models.PlayerStats, 0, len(tags))
	for _, tag := range tags {
		p := md.Players[tag]
		ps := models.PlayerStats{
			Tag:              tag,
			Name:             p.Name,
			HighestRankID:    p.HighestRankID,
			CurrentRankID:    p.CurrentRankID,
			PerMapPerBrawler: map[string]map[string]models.PlayerRecord{},
			PerMapLossRank:   map[string][]models.LossRank{},
			PerMapOverall:    map[string]models.PlayerRecord{},
		}

		acc, ok := accs[tag]
		if !ok {
			out = append(out, ps)
			continue
		}
		ps.Overall = acc.overall.export()

		for mapID, m := range acc.perMap {
			ps.PerMapOverall[strconv.Itoa(mapID)] = m.export()
		}
		for mapID, byBrawler := range acc.perBrawler {
			key := strconv.Itoa(mapID)
			records := make(map[string]models.PlayerRecord, len(byBrawler))
			ranking := []models.LossRank{}
			for brawlerID, r := range byBrawler {
				records[strconv.Itoa(brawlerID)] = r.export()
				if r.losses > 0 {
					ranking = append(ranking, models.LossRank{BrawlerID: brawlerID, Losses: r.losses})
				}
			}
			slices.SortFunc(ranking, func(x, y models.LossRank) int {
				return cmp.Or(cmp.Compare(y.Losses, x.Losses), cmp.Compare(x.BrawlerID, y.BrawlerID))
			})
			ps.PerMapPerBrawler[key] = records
			ps.PerMapLossRank[key] = ranking
		}
		out = append(out, ps)
	}

	a.logger.Infow("Monitored player stats computed", "players", len(out), "battles", len(md.Battles))
	return out
}
