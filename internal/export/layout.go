package export

import (
	"path"
	"strconv"
)

// Statistic kinds, also used as manifest kinds and metric labels.
const (
	KindWinRates           = "win_rates"
	KindStarRates          = "star_rates"
	KindPairMatchup        = "pair_matchup"
	KindPairSynergy        = "pair_synergy"
	KindTrio               = "trio"
	KindThreeVsThree       = "three_vs_three"
	KindRankMatchCounts    = "rank_match_counts"
	KindHighestRankPlayers = "highest_rank_players"
	KindMonitoredPlayers   = "monitored_players"
)

// File names below the output root.
const (
	WinRatesFile           = "win_rates.json"
	StarRatesFile          = "star_rates.json"
	RankMatchCountsFile    = "rank_match_counts.json"
	HighestRankPlayersFile = "highest_rank_players.json"
	MonitoredPlayersFile   = "monitored_player_stats.json"
	ManifestFile           = "manifest.json"
	IndexFile              = "index.json"

	pairDir  = "pair_stats"
	trioDir  = "trio_stats"
	teamsDir = "three_vs_three_stats"
)

// PairDir returns the directory of a pair statistic ("matchup" or "synergy").
func PairDir(variant string) string { return path.Join(pairDir, variant) }

// PairPath is pair_stats/<variant>/<map>.json.
func PairPath(variant string, mapID int) string {
	return path.Join(pairDir, variant, strconv.Itoa(mapID)+".json")
}

// TrioDir is the root of the trio tree.
func TrioDir() string { return trioDir }

// TrioPath is trio_stats/<map>/<rank>.json.
func TrioPath(mapID, rankID int) string {
	return path.Join(trioDir, strconv.Itoa(mapID), strconv.Itoa(rankID)+".json")
}

// ThreeVsThreeDir is the root of the 3v3 tree.
func ThreeVsThreeDir() string { return teamsDir }

// ThreeVsThreePath is three_vs_three_stats/<map>.json.
func ThreeVsThreePath(mapID int) string {
	return path.Join(teamsDir, strconv.Itoa(mapID)+".json")
}

// IndexPath is the index.json of a partitioned directory.
func IndexPath(dir string) string { return path.Join(dir, IndexFile) }
