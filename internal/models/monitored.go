package models

// MonitoredPlayer is a player flagged for individual tracking.
type MonitoredPlayer struct {
	Tag           string
	Name          *string
	HighestRankID *int
	CurrentRankID *int
}

// PlayerBattle is one battle played by a monitored player.
type PlayerBattle struct {
	PlayerTag string
	BattleID  string
	MatchID   string
	MapID     int
	BrawlerID int
	IsWin     bool
}

// MonitoredDataset is the input of the monitored-player statistics.
type MonitoredDataset struct {
	Players map[string]MonitoredPlayer
	Battles []PlayerBattle
}
