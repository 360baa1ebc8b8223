package stats

import (
	"cmp"

	"github.com/brawlstats/statsagg/internal/combo"
)

// CharKey scopes a single character to a map.
type CharKey struct {
	MapID     int
	BrawlerID int
}

// PairKey scopes a character pair to a map. For matchups A beat B; for synergy A < B.
type PairKey struct {
	MapID int
	A, B  int
}

// Reverse swaps the pair.
func (k PairKey) Reverse() PairKey { return PairKey{MapID: k.MapID, A: k.B, B: k.A} }

// TrioKey scopes a sorted team to a map and rank tier.
type TrioKey struct {
	MapID  int
	RankID int
	Trio   combo.Trio
}

// TeamKey scopes a 3v3 composition to a map. Win beat Lose.
type TeamKey struct {
	MapID int
	Win   combo.Trio
	Lose  combo.Trio
}

// Reverse swaps the sides.
func (k TeamKey) Reverse() TeamKey { return TeamKey{MapID: k.MapID, Win: k.Lose, Lose: k.Win} }

func compareChar(a, b CharKey) int {
	return cmp.Or(cmp.Compare(a.MapID, b.MapID), cmp.Compare(a.BrawlerID, b.BrawlerID))
}

func comparePair(a, b PairKey) int {
	return cmp.Or(cmp.Compare(a.MapID, b.MapID), cmp.Compare(a.A, b.A), cmp.Compare(a.B, b.B))
}

func compareTrio(a, b combo.Trio) int {
	return cmp.Or(cmp.Compare(a[0], b[0]), cmp.Compare(a[1], b[1]), cmp.Compare(a[2], b[2]))
}

func compareTrioKey(a, b TrioKey) int {
	return cmp.Or(cmp.Compare(a.MapID, b.MapID), cmp.Compare(a.RankID, b.RankID), compareTrio(a.Trio, b.Trio))
}

func compareTeam(a, b TeamKey) int {
	return cmp.Or(cmp.Compare(a.MapID, b.MapID), compareTrio(a.Win, b.Win), compareTrio(a.Lose, b.Lose))
}
