package combo

import (
	"errors"
	"reflect"
	"testing"

	"github.com/brawlstats/statsagg/internal/models"
)

func TestExpandFullBattle(t *testing.T) {
	b := models.Battle{ID: "b1", MapID: 1, RankID: 5, Win: []int{12, 10, 11}, Lose: []int{20, 22, 21}}

	e := Expand(b)
	if e.Malformed != nil {
		t.Fatalf("unexpected malformed: %v", e.Malformed)
	}

	if len(e.Matchups) != 9 {
		t.Fatalf("matchups = %d, want 9", len(e.Matchups))
	}
	for _, p := range e.Matchups {
		if p.A < 10 || p.A > 12 || p.B < 20 || p.B > 22 {
			t.Errorf("matchup %v is not winner-first", p)
		}
	}

	wantWin := []Pair{{10, 11}, {10, 12}, {11, 12}}
	if !reflect.DeepEqual(e.WinPairs, wantWin) {
		t.Errorf("win pairs = %v, want %v", e.WinPairs, wantWin)
	}
	wantLose := []Pair{{20, 21}, {20, 22}, {21, 22}}
	if !reflect.DeepEqual(e.LosePairs, wantLose) {
		t.Errorf("lose pairs = %v, want %v", e.LosePairs, wantLose)
	}

	if e.WinTrio != (Trio{10, 11, 12}) || e.LoseTrio != (Trio{20, 21, 22}) {
		t.Errorf("trios = %v / %v", e.WinTrio, e.LoseTrio)
	}
	want := Composition{Win: Trio{10, 11, 12}, Lose: Trio{20, 21, 22}}
	if e.Composition != want {
		t.Errorf("composition = %v, want %v", e.Composition, want)
	}
}

func TestExpandIsOrderIndependent(t *testing.T) {
	a := Expand(models.Battle{Win: []int{3, 1, 2}, Lose: []int{6, 5, 4}})
	b := Expand(models.Battle{Win: []int{2, 3, 1}, Lose: []int{4, 6, 5}})
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expansion depends on participant order:\n%+v\n%+v", a, b)
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	b := models.Battle{Win: []int{1, 2, 3}, Lose: []int{4, 5, 6}}
	first := Expand(b)
	second := Expand(b)
	if !reflect.DeepEqual(first, second) {
		t.Error("re-expanding the same battle changed the result")
	}
	if !reflect.DeepEqual(b.Win, []int{1, 2, 3}) {
		t.Error("Expand mutated its input")
	}
}

func TestExpandMalformed(t *testing.T) {
	tests := []struct {
		name          string
		win, lose     []int
		wantMatchups  int
		wantWinPairs  int
		wantLosePairs int
	}{
		{"two winners", []int{10, 11}, []int{20, 21, 22}, 6, 1, 3},
		{"four losers", []int{10, 11, 12}, []int{20, 21, 22, 23}, 12, 3, 6},
		{"no losers", []int{10, 11, 12}, nil, 0, 3, 0},
		{"duplicate ids collapse", []int{10, 10, 11}, []int{20, 21, 22}, 6, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Expand(models.Battle{ID: "x", Win: tt.win, Lose: tt.lose})
			if !errors.Is(e.Malformed, ErrMalformedBattle) {
				t.Fatalf("Malformed = %v, want ErrMalformedBattle", e.Malformed)
			}
			if e.HasTrios() {
				t.Error("HasTrios should be false")
			}
			if len(e.Matchups) != tt.wantMatchups {
				t.Errorf("matchups = %d, want %d", len(e.Matchups), tt.wantMatchups)
			}
			if len(e.WinPairs) != tt.wantWinPairs || len(e.LosePairs) != tt.wantLosePairs {
				t.Errorf("pairs = %d/%d, want %d/%d", len(e.WinPairs), len(e.LosePairs), tt.wantWinPairs, tt.wantLosePairs)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	if CanonicalPair(5, 2) != (Pair{2, 5}) {
		t.Error("CanonicalPair did not sort")
	}
	if CanonicalTrio(9, 1, 4) != (Trio{1, 4, 9}) {
		t.Error("CanonicalTrio did not sort")
	}
}
