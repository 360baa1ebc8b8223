package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/brawlstats/statsagg/internal/combo"
	"github.com/brawlstats/statsagg/internal/models"
)

func newTestAggregator(shards int) *Aggregator {
	return New(Config{ConfidenceLevel: 0.95, Shards: shards, ThreeVsThreeMinGames: 1, Logger: zap.NewNop()})
}

func dataset(battles ...models.Battle) *models.Dataset {
	matches := make(map[string]models.Match)
	for i := range battles {
		if battles[i].MatchID == "" {
			battles[i].MatchID = "m" + battles[i].ID
		}
		matches[battles[i].MatchID] = models.Match{ID: battles[i].MatchID, MapID: battles[i].MapID, RankID: battles[i].RankID}
	}
	return models.NewDataset(matches, battles, nil)
}

func randomDataset(seed int64, n int) *models.Dataset {
	r := rand.New(rand.NewSource(seed))
	battles := make([]models.Battle, 0, n)
	team := func() []int {
		return r.Perm(8)[:3]
	}
	for i := 0; i < n; i++ {
		b := models.Battle{
			ID:     fmt.Sprintf("2025010%d%06d", r.Intn(9)+1, i),
			MapID:  r.Intn(3) + 1,
			RankID: r.Intn(2) + 4,
			Win:    combo.Canonical(team()),
			Lose:   combo.Canonical(team()),
		}
		if i%17 == 0 {
			b.Win = b.Win[:2]
		}
		battles = append(battles, b)
	}
	return dataset(battles...)
}

func TestScenarioSingleBattle(t *testing.T) {
	ctx := context.Background()
	ds := dataset(models.Battle{ID: "b1", MapID: 1, RankID: 5, Win: []int{10, 11, 12}, Lose: []int{20, 21, 22}})
	agg := newTestAggregator(1)

	matchups, err := agg.Matchups(ctx, ds)
	if err != nil {
		t.Fatalf("Matchups: %v", err)
	}
	var forward, reverse int
	for _, e := range matchups[1] {
		switch {
		case e.BrawlerA < 20 && e.BrawlerB >= 20:
			forward++
			if e.Wins != 1 || e.Losses != 0 {
				t.Errorf("%d vs %d = %d/%d, want 1/0", e.BrawlerA, e.BrawlerB, e.Wins, e.Losses)
			}
		case e.BrawlerA >= 20 && e.BrawlerB < 20:
			reverse++
			if e.Wins != 0 || e.Losses != 1 {
				t.Errorf("%d vs %d = %d/%d, want 0/1", e.BrawlerA, e.BrawlerB, e.Wins, e.Losses)
			}
		default:
			t.Errorf("unexpected matchup %d vs %d", e.BrawlerA, e.BrawlerB)
		}
	}
	if forward != 9 || reverse != 9 {
		t.Errorf("matchups forward=%d reverse=%d, want 9 and 9", forward, reverse)
	}

	wantSynergy := []models.PairEntry{
		{MapID: 1, BrawlerA: 10, BrawlerB: 11, Wins: 1, Games: 1},
		{MapID: 1, BrawlerA: 10, BrawlerB: 12, Wins: 1, Games: 1},
		{MapID: 1, BrawlerA: 11, BrawlerB: 12, Wins: 1, Games: 1},
		{MapID: 1, BrawlerA: 20, BrawlerB: 21, Losses: 1, Games: 1},
		{MapID: 1, BrawlerA: 20, BrawlerB: 22, Losses: 1, Games: 1},
		{MapID: 1, BrawlerA: 21, BrawlerB: 22, Losses: 1, Games: 1},
	}
	synergy, err := agg.Synergy(ctx, ds)
	if err != nil {
		t.Fatalf("Synergy: %v", err)
	}
	got := synergy[1]
	if len(got) != len(wantSynergy) {
		t.Fatalf("synergy entries = %d, want %d", len(got), len(wantSynergy))
	}
	for i, want := range wantSynergy {
		g := got[i]
		if g.BrawlerA != want.BrawlerA || g.BrawlerB != want.BrawlerB || g.Wins != want.Wins || g.Losses != want.Losses || g.Games != want.Games {
			t.Errorf("synergy[%d] = %+v, want %+v", i, g, want)
		}
	}

	trios, err := agg.Trios(ctx, ds)
	if err != nil {
		t.Fatalf("Trios: %v", err)
	}
	byRank := trios[1][5]
	if len(byRank) != 2 {
		t.Fatalf("trio entries = %d, want 2", len(byRank))
	}
	if byRank[0].Brawlers != [3]int{10, 11, 12} || byRank[0].Wins != 1 || byRank[0].Losses != 0 {
		t.Errorf("winning trio = %+v", byRank[0])
	}
	if byRank[1].Brawlers != [3]int{20, 21, 22} || byRank[1].Wins != 0 || byRank[1].Losses != 1 {
		t.Errorf("losing trio = %+v", byRank[1])
	}

	teams, skipped, err := agg.ThreeVsThree(ctx, ds)
	if err != nil {
		t.Fatalf("ThreeVsThree: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(teams[1]) != 2 {
		t.Fatalf("3v3 entries = %d, want 2", len(teams[1]))
	}
	first := teams[1][0]
	if first.WinBrawlers != [3]int{10, 11, 12} || first.LoseBrawlers != [3]int{20, 21, 22} || first.Wins != 1 || first.Losses != 0 {
		t.Errorf("3v3 = %+v", first)
	}
}

func TestMalformedBattleSkipsTeamsOnly(t *testing.T) {
	ctx := context.Background()
	ds := dataset(models.Battle{ID: "b1", MapID: 1, RankID: 5, Win: []int{10, 11}, Lose: []int{20, 21, 22}})
	agg := newTestAggregator(1)

	matchups, err := agg.Matchups(ctx, ds)
	if err != nil {
		t.Fatalf("Matchups: %v", err)
	}
	var wins int64
	for _, e := range matchups[1] {
		wins += e.Wins
	}
	if wins != 6 {
		t.Errorf("matchup wins = %d, want 6", wins)
	}
	synergy, err := agg.Synergy(ctx, ds)
	if err != nil {
		t.Fatalf("Synergy: %v", err)
	}
	if len(synergy[1]) != 4 {
		t.Errorf("synergy entries = %d, want 4", len(synergy[1]))
	}

	trios, err := agg.Trios(ctx, ds)
	if err != nil {
		t.Fatalf("Trios: %v", err)
	}
	if len(trios) != 0 {
		t.Errorf("trios = %v, want none", trios)
	}
	teams, skipped, err := agg.ThreeVsThree(ctx, ds)
	if err != nil {
		t.Fatalf("ThreeVsThree: %v", err)
	}
	if len(teams) != 0 || skipped != 1 {
		t.Errorf("3v3 = %v skipped=%d, want none and 1", teams, skipped)
	}
}

func TestMatchupConservation(t *testing.T) {
	ds := randomDataset(7, 500)
	matchups, err := newTestAggregator(4).Matchups(context.Background(), ds)
	if err != nil {
		t.Fatalf("Matchups: %v", err)
	}

	var want int64
	for _, b := range ds.Battles {
		want += int64(len(b.Win) * len(b.Lose))
	}
	var wins, losses int64
	for _, entries := range matchups {
		for _, e := range entries {
			wins += e.Wins
			losses += e.Losses
			if e.Games != e.Wins+e.Losses {
				t.Errorf("games mismatch in %+v", e)
			}
		}
	}
	if wins != want || losses != want {
		t.Errorf("wins=%d losses=%d, want both %d", wins, losses, want)
	}
}

func TestWinRates(t *testing.T) {
	ds := dataset(
		models.Battle{ID: "b1", MapID: 1, Win: []int{1, 2, 3}, Lose: []int{4, 5, 6}},
		models.Battle{ID: "b2", MapID: 1, Win: []int{1, 4, 7}, Lose: []int{2, 5, 8}},
		models.Battle{ID: "b3", MapID: 2, Win: []int{1, 2, 3}, Lose: []int{4, 5, 6}},
	)
	entries, err := newTestAggregator(2).WinRates(context.Background(), ds)
	if err != nil {
		t.Fatalf("WinRates: %v", err)
	}
	if len(entries) != 14 {
		t.Fatalf("entries = %d, want 14", len(entries))
	}
	first := entries[0]
	if first.MapID != 1 || first.BrawlerID != 1 || first.Wins != 2 || first.Losses != 0 || *first.WinRate != 1 {
		t.Errorf("first entry = %+v", first)
	}
	two := entries[1]
	if two.BrawlerID != 2 || two.Wins != 1 || two.Losses != 1 || *two.WinRate != 0.5 {
		t.Errorf("second entry = %+v", two)
	}
}

func TestStarRates(t *testing.T) {
	battles := []models.Battle{
		{ID: "b1", MatchID: "m1", MapID: 1, Win: []int{1, 2, 3}, Lose: []int{4, 5, 6}},
		{ID: "b2", MatchID: "m1", MapID: 1, Win: []int{4, 5, 6}, Lose: []int{1, 2, 3}},
		{ID: "b3", MatchID: "m2", MapID: 1, Win: []int{1, 7, 8}, Lose: []int{4, 5, 9}},
	}
	matches := map[string]models.Match{
		"m1": {ID: "m1", MapID: 1},
		"m2": {ID: "m2", MapID: 1},
	}
	stars := []models.StarLog{{MatchID: "m1", BrawlerID: 1}, {MatchID: "m2", BrawlerID: 1}, {MatchID: "gone", BrawlerID: 2}}
	ds := models.NewDataset(matches, battles, stars)

	entries, err := newTestAggregator(1).StarRates(context.Background(), ds)
	if err != nil {
		t.Fatalf("StarRates: %v", err)
	}
	byBrawler := make(map[int]models.StarRateEntry)
	for _, e := range entries {
		byBrawler[e.BrawlerID] = e
	}
	one := byBrawler[1]
	if one.Matches != 2 || one.Stars != 2 || one.StarRate != 1 || one.UsageRate != 1 {
		t.Errorf("brawler 1 = %+v", one)
	}
	two := byBrawler[2]
	if two.Matches != 1 || two.Stars != 0 || two.StarRate != 0 || two.UsageRate != 0.5 {
		t.Errorf("brawler 2 = %+v", two)
	}
}

func TestThreeVsThreeMinGames(t *testing.T) {
	var battles []models.Battle
	for i := 0; i < 3; i++ {
		battles = append(battles, models.Battle{ID: fmt.Sprintf("a%d", i), MapID: 1, Win: []int{1, 2, 3}, Lose: []int{4, 5, 6}})
	}
	battles = append(battles, models.Battle{ID: "b0", MapID: 1, Win: []int{4, 5, 6}, Lose: []int{1, 2, 3}})
	battles = append(battles, models.Battle{ID: "c0", MapID: 1, Win: []int{7, 8, 9}, Lose: []int{4, 5, 6}})
	ds := dataset(battles...)

	agg := New(Config{Logger: zap.NewNop()})
	teams, _, err := agg.ThreeVsThree(context.Background(), ds)
	if err != nil {
		t.Fatalf("ThreeVsThree: %v", err)
	}
	if len(teams[1]) != 2 {
		t.Fatalf("entries = %+v, want the two orientations of {1,2,3} vs {4,5,6}", teams[1])
	}
	e := teams[1][0]
	if e.WinBrawlers != [3]int{1, 2, 3} || e.Wins != 3 || e.Losses != 1 || e.Games != 4 {
		t.Errorf("entry = %+v", e)
	}

	// a configured minimum below the default is honoured
	lowered := New(Config{ThreeVsThreeMinGames: 1, Logger: zap.NewNop()})
	teams, _, err = lowered.ThreeVsThree(context.Background(), ds)
	if err != nil {
		t.Fatalf("ThreeVsThree: %v", err)
	}
	if len(teams[1]) != 4 {
		t.Errorf("entries with min 1 = %d, want 4", len(teams[1]))
	}
}

func TestShardCountDoesNotChangeOutput(t *testing.T) {
	ctx := context.Background()
	ds := randomDataset(42, 1000)

	render := func(shards int) []byte {
		agg := newTestAggregator(shards)
		win, err := agg.WinRates(ctx, ds)
		if err != nil {
			t.Fatal(err)
		}
		matchups, err := agg.Matchups(ctx, ds)
		if err != nil {
			t.Fatal(err)
		}
		synergy, err := agg.Synergy(ctx, ds)
		if err != nil {
			t.Fatal(err)
		}
		trios, err := agg.Trios(ctx, ds)
		if err != nil {
			t.Fatal(err)
		}
		teams, _, err := agg.ThreeVsThree(ctx, ds)
		if err != nil {
			t.Fatal(err)
		}
		out, err := json.Marshal([]any{win, matchups, synergy, trios, teams})
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	want := render(1)
	for _, shards := range []int{2, 3, 8, 64} {
		if got := render(shards); !reflect.DeepEqual(got, want) {
			t.Errorf("shards=%d produced different output", shards)
		}
	}
	if again := render(1); !reflect.DeepEqual(again, want) {
		t.Error("second run over the same dataset produced different output")
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAggregator(2).Matchups(ctx, randomDataset(1, 50))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEmptyDataset(t *testing.T) {
	ctx := context.Background()
	ds := models.NewDataset(nil, nil, nil)
	agg := newTestAggregator(4)

	win, err := agg.WinRates(ctx, ds)
	if err != nil || win == nil || len(win) != 0 {
		t.Errorf("WinRates = %v, %v; want empty non-nil", win, err)
	}
	matchups, err := agg.Matchups(ctx, ds)
	if err != nil || len(matchups) != 0 {
		t.Errorf("Matchups = %+v, %v", matchups, err)
	}
}
