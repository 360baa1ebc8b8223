package models

import "sort"

// Side values stored in battle_participants.side
const (
	SideWin  = "win"
	SideLose = "lose"
)

// TeamSize is the number of characters per side in a standard ranked battle.
const TeamSize = 3

// Match is one ranked encounter (rank_logs row). The id starts with YYYYMMDD, so
// lexicographic order is chronological order.
type Match struct {
	ID     string
	MapID  int
	RankID int
	ModeID *int
}

// Participant is one character's appearance on one side of a battle.
type Participant struct {
	BattleID  string
	Side      string
	BrawlerID int
}

// Battle is a finished battle with both teams resolved against its match.
type Battle struct {
	ID      string
	MatchID string
	MapID   int
	RankID  int
	ModeID  *int
	Win     []int
	Lose    []int
}

// StarLog records the star (MVP) character of a match.
type StarLog struct {
	MatchID   string
	BrawlerID int
}

// Dataset is the immutable snapshot one aggregation run works on.
// It is shared read-only between all statistic workers.
type Dataset struct {
	Matches map[string]Match
	Battles []Battle
	Stars   []StarLog

	participants map[string][]int
}

// NewDataset builds a Dataset and orders battles by id so every pass over it is
// deterministic.
func NewDataset(matches map[string]Match, battles []Battle, stars []StarLog) *Dataset {
	if matches == nil {
		matches = map[string]Match{}
	}
	sort.Slice(battles, func(i, j int) bool { return battles[i].ID < battles[j].ID })
	sort.Slice(stars, func(i, j int) bool {
		if stars[i].MatchID != stars[j].MatchID {
			return stars[i].MatchID < stars[j].MatchID
		}
		return stars[i].BrawlerID < stars[j].BrawlerID
	})

	d := &Dataset{Matches: matches, Battles: battles, Stars: stars}
	d.participants = buildParticipants(battles)
	return d
}

// ParticipantsByMatch returns the distinct characters seen in each match, ascending.
func (d *Dataset) ParticipantsByMatch() map[string][]int {
	return d.participants
}

func buildParticipants(battles []Battle) map[string][]int {
	seen := make(map[string]map[int]struct{})
	for _, b := range battles {
		set, ok := seen[b.MatchID]
		if !ok {
			set = make(map[int]struct{})
			seen[b.MatchID] = set
		}
		for _, id := range b.Win {
			set[id] = struct{}{}
		}
		for _, id := range b.Lose {
			set[id] = struct{}{}
		}
	}

	out := make(map[string][]int, len(seen))
	for matchID, set := range seen {
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out[matchID] = ids
	}
	return out
}
