package models

import "time"

// Document wraps every exported collection with its generation metadata.
type Document[T any] struct {
	GeneratedAt     time.Time `json:"generated_at"`
	ConfidenceLevel float64   `json:"confidence_level,omitempty"`
	Entries         []T       `json:"entries"`
}

// WinRateEntry is a per map, per character win rate.
type WinRateEntry struct {
	MapID      int      `json:"map_id"`
	BrawlerID  int      `json:"brawler_id"`
	Wins       int64    `json:"wins"`
	Losses     int64    `json:"losses"`
	Games      int64    `json:"games"`
	WinRate    *float64 `json:"win_rate"`
	WinRateLCB float64  `json:"win_rate_lcb"`
}

// StarRateEntry is a per map, per character star (MVP) rate.
type StarRateEntry struct {
	MapID     int     `json:"map_id"`
	BrawlerID int     `json:"brawler_id"`
	Matches   int64   `json:"matches"`
	Stars     int64   `json:"stars"`
	StarRate  float64 `json:"star_rate"`
	UsageRate float64 `json:"usage_rate"`
}

// PairEntry is a matchup (A against B) or synergy (A with B) record.
type PairEntry struct {
	MapID      int      `json:"map_id"`
	BrawlerA   int      `json:"brawler_a"`
	BrawlerB   int      `json:"brawler_b"`
	Wins       int64    `json:"wins"`
	Losses     int64    `json:"losses"`
	Games      int64    `json:"games"`
	WinRate    *float64 `json:"win_rate"`
	WinRateLCB float64  `json:"win_rate_lcb"`
}

// TrioEntry is a three character team composition record.
type TrioEntry struct {
	MapID      int      `json:"map_id"`
	RankID     int      `json:"rank_id"`
	Brawlers   [3]int   `json:"brawlers"`
	Wins       int64    `json:"wins"`
	Losses     int64    `json:"losses"`
	Games      int64    `json:"games"`
	WinRate    *float64 `json:"win_rate"`
	WinRateLCB float64  `json:"win_rate_lcb"`
}

// TeamMatchupEntry is a 3v3 composition record, oriented from WinBrawlers' side.
type TeamMatchupEntry struct {
	MapID        int      `json:"map_id"`
	WinBrawlers  [3]int   `json:"win_brawlers"`
	LoseBrawlers [3]int   `json:"lose_brawlers"`
	Wins         int64    `json:"wins"`
	Losses       int64    `json:"losses"`
	Games        int64    `json:"games"`
	WinRate      *float64 `json:"win_rate"`
	WinRateLCB   float64  `json:"win_rate_lcb"`
}

// RankMatchCount is the number of recorded matches at one rank tier.
type RankMatchCount struct {
	RankID       int    `json:"rank_id"`
	Name         string `json:"name"`
	NameJA       string `json:"name_ja"`
	RankLogCount int64  `json:"rank_log_count"`
}

// PlayerRecord holds win/loss totals for a monitored player slice.
type PlayerRecord struct {
	Wins      int64   `json:"wins"`
	Losses    int64   `json:"losses"`
	Games     int64   `json:"games"`
	RankGames int64   `json:"rank_games"`
	WinRate   float64 `json:"win_rate"`
}

// LossRank is one row of a per-map loss ranking.
type LossRank struct {
	BrawlerID int   `json:"brawler_id"`
	Losses    int64 `json:"losses"`
}

// PlayerStats is the exported summary of one monitored player.
type PlayerStats struct {
	Tag              string                             `json:"tag"`
	Name             *string                            `json:"name"`
	HighestRankID    *int                               `json:"highest_rank_id"`
	CurrentRankID    *int                               `json:"current_rank_id"`
	PerMapPerBrawler map[string]map[string]PlayerRecord `json:"per_map_per_brawler"`
	PerMapLossRank   map[string][]LossRank              `json:"per_map_loss_ranking"`
	PerMapOverall    map[string]PlayerRecord            `json:"per_map_overall"`
	Overall          PlayerRecord                       `json:"overall"`
}

// Manifest describes one published run.
type Manifest struct {
	RunID           string             `json:"run_id"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Since           string             `json:"since"`
	RetentionDays   int                `json:"retention_days"`
	MinRankID       int                `json:"min_rank_id"`
	ConfidenceLevel float64            `json:"confidence_level"`
	Battles         int                `json:"battles"`
	MalformedBattle int                `json:"malformed_battles"`
	Artifacts       []ManifestArtifact `json:"artifacts"`
}

// ManifestArtifact is one file listed in the manifest.
type ManifestArtifact struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Entries int    `json:"entries"`
}

// IndexEntry points at one partition file of a partitioned statistic.
type IndexEntry struct {
	MapID   int    `json:"map_id"`
	RankID  *int   `json:"rank_id,omitempty"`
	Path    string `json:"path"`
	Entries int    `json:"entries"`
}
