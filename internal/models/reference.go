package models

// Map is a battle map dimension row (_maps).
type Map struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	NameJA string `json:"name_ja"`
	ModeID *int   `json:"mode_id,omitempty"`
}

// Mode is a game mode dimension row (_modes).
type Mode struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	NameJA string `json:"name_ja"`
}

// Rank is a rank tier dimension row (_ranks).
type Rank struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	NameJA string `json:"name_ja"`
}

// Brawler is a playable character (_brawlers).
type Brawler struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Reference holds the dimension tables, loaded once per run.
type Reference struct {
	Maps     map[int]Map
	Modes    map[int]Mode
	Ranks    map[int]Rank
	Brawlers map[int]Brawler
}

// MapIDs returns the known map ids.
func (r *Reference) MapIDs() []int {
	if r == nil {
		return nil
	}
	ids := make([]int, 0, len(r.Maps))
	for id := range r.Maps {
		ids = append(ids, id)
	}
	return ids
}
