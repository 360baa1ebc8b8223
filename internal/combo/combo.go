// Package combo derives the groupings a single battle contributes to: directed
// character matchups, same-team pairs, team trios and the full 3v3 composition.
package combo

import (
	"errors"
	"fmt"
	"slices"

	"github.com/brawlstats/statsagg/internal/models"
)

// ErrMalformedBattle marks a battle whose sides do not hold exactly TeamSize characters.
// Trio and 3v3 groupings are skipped for such battles; pair groupings still apply.
var ErrMalformedBattle = errors.New("malformed battle")

// Pair is an ordered pair of character ids.
type Pair struct {
	A, B int
}

// Trio is three character ids in ascending order.
type Trio [3]int

// Composition is a winning trio facing a losing trio. It is not symmetric:
// {W, L} and {L, W} are different compositions.
type Composition struct {
	Win  Trio
	Lose Trio
}

// Expansion holds every grouping derived from one battle.
type Expansion struct {
	// Matchups are winner-first: A beat B.
	Matchups []Pair
	// WinPairs and LosePairs are same-team pairs with A < B.
	WinPairs  []Pair
	LosePairs []Pair
	// WinTrio, LoseTrio and Composition are only set when Malformed is nil.
	WinTrio     Trio
	LoseTrio    Trio
	Composition Composition
	Malformed   error
}

// HasTrios reports whether the trio and 3v3 groupings are available.
func (e Expansion) HasTrios() bool { return e.Malformed == nil }

// Expand derives every grouping of b. Teams are deduplicated and sorted first, so
// the result does not depend on participant order.
func Expand(b models.Battle) Expansion {
	win := Canonical(b.Win)
	lose := Canonical(b.Lose)

	e := Expansion{
		Matchups:  Matchups(win, lose),
		WinPairs:  Pairs(win),
		LosePairs: Pairs(lose),
	}

	if len(win) != models.TeamSize || len(lose) != models.TeamSize {
		e.Malformed = fmt.Errorf("%w: battle %s has %d winners and %d losers",
			ErrMalformedBattle, b.ID, len(win), len(lose))
		return e
	}

	e.WinTrio = Trio{win[0], win[1], win[2]}
	e.LoseTrio = Trio{lose[0], lose[1], lose[2]}
	e.Composition = Composition{Win: e.WinTrio, Lose: e.LoseTrio}
	return e
}

// Matchups returns every (winner, loser) pair.
func Matchups(win, lose []int) []Pair {
	if len(win) == 0 || len(lose) == 0 {
		return nil
	}
	out := make([]Pair, 0, len(win)*len(lose))
	for _, w := range win {
		for _, l := range lose {
			out = append(out, Pair{A: w, B: l})
		}
	}
	return out
}

// Pairs returns the unordered pairs of a sorted team, each with A < B.
func Pairs(team []int) []Pair {
	if len(team) < 2 {
		return nil
	}
	out := make([]Pair, 0, len(team)*(len(team)-1)/2)
	for i := 0; i < len(team); i++ {
		for j := i + 1; j < len(team); j++ {
			out = append(out, Pair{A: team[i], B: team[j]})
		}
	}
	return out
}

// CanonicalPair orders a and b ascending.
func CanonicalPair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// CanonicalTrio sorts three ids ascending.
func CanonicalTrio(a, b, c int) Trio {
	t := Trio{a, b, c}
	slices.Sort(t[:])
	return t
}

// Canonical returns the distinct ids of team in ascending order.
func Canonical(team []int) []int {
	if len(team) == 0 {
		return nil
	}
	out := slices.Clone(team)
	slices.Sort(out)
	return slices.Compact(out)
}
