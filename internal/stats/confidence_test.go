package stats

import (
	"math"
	"testing"
)

func wilsonLower(wins, games int64, z float64) float64 {
	n := float64(games)
	p := float64(wins) / n
	z2 := z * z
	centre := p + z2/(2*n)
	margin := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n))
	return (centre - margin) / (1 + z2/n)
}

func TestFinalizeNoGames(t *testing.T) {
	est := Finalize(0, 0, 0.95)
	if est.WinRate != nil {
		t.Errorf("win rate = %v, want nil", *est.WinRate)
	}
	if est.LowerBound != 0 {
		t.Errorf("lower bound = %v, want 0", est.LowerBound)
	}
}

func TestFinalizeBracketsBetweenWilsonAndEstimate(t *testing.T) {
	est := Finalize(18, 2, 0.95)
	if est.WinRate == nil || *est.WinRate != 0.9 {
		t.Fatalf("win rate = %v, want 0.9", est.WinRate)
	}

	wilson := wilsonLower(18, 20, 1.959964)
	if !(est.LowerBound > wilson && est.LowerBound < 0.9) {
		t.Errorf("lower bound %.5f not in (%.5f, 0.9)", est.LowerBound, wilson)
	}
	if math.Abs(est.LowerBound-0.7295) > 0.002 {
		t.Errorf("lower bound = %.5f, want ~0.7295", est.LowerBound)
	}
}

func TestFinalizeLowerBoundGrowsWithEvidence(t *testing.T) {
	prev := -1.0
	for _, n := range []int64{4, 8, 40, 400, 4000} {
		est := Finalize(n*3/4, n/4, 0.95)
		if est.LowerBound <= prev {
			t.Errorf("n=%d: lower bound %.5f did not increase past %.5f", n, est.LowerBound, prev)
		}
		prev = est.LowerBound
	}
}

func TestFinalizeNeverExceedsEstimate(t *testing.T) {
	for wins := int64(0); wins <= 12; wins++ {
		for losses := int64(0); losses <= 12; losses++ {
			if wins+losses == 0 {
				continue
			}
			est := Finalize(wins, losses, 0.95)
			if est.LowerBound > *est.WinRate {
				t.Errorf("(%d, %d): bound %.5f > estimate %.5f", wins, losses, est.LowerBound, *est.WinRate)
			}
			if est.LowerBound < 0 {
				t.Errorf("(%d, %d): negative bound %.5f", wins, losses, est.LowerBound)
			}
		}
	}
}

func TestFinalizeZeroWins(t *testing.T) {
	est := Finalize(0, 25, 0.95)
	if *est.WinRate != 0 || est.LowerBound != 0 {
		t.Errorf("got rate %v bound %v, want 0 and 0", *est.WinRate, est.LowerBound)
	}
}

func TestFinalizeHigherConfidenceIsMoreConservative(t *testing.T) {
	lo := Finalize(30, 10, 0.90).LowerBound
	hi := Finalize(30, 10, 0.99).LowerBound
	if hi >= lo {
		t.Errorf("0.99 bound %.5f should be below 0.90 bound %.5f", hi, lo)
	}
}

func TestBetaQuantile(t *testing.T) {
	tests := []struct {
		a, b, p float64
		want    float64
	}{
		{1, 1, 0.25, 0.25},
		{1, 1, 0.8, 0.8},
		{2, 1, 0.25, 0.5},
		{1, 2, 0.75, 0.5},
		{3, 3, 0.5, 0.5},
		{5, 2, 0, 0},
		{5, 2, 1, 1},
	}
	for _, tt := range tests {
		got := BetaQuantile(tt.a, tt.b, tt.p)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("BetaQuantile(%v, %v, %v) = %v, want %v", tt.a, tt.b, tt.p, got, tt.want)
		}
	}
}
