package stats

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// DefaultConfidenceLevel is the credible level used for lower bounds.
const DefaultConfidenceLevel = 0.95

// Uniform prior of the Beta-Binomial model.
const (
	priorAlpha = 1.0
	priorBeta  = 1.0
)

// Estimate is a finalized win rate.
type Estimate struct {
	// WinRate is nil when no games were played.
	WinRate *float64
	// LowerBound is the Beta-Binomial lower credible bound, capped at WinRate.
	LowerBound float64
}

// Finalize computes the point estimate and lower bound for a (wins, losses) tally.
// The bound is the (1 - confidence) quantile of Beta(1 + wins, 1 + losses).
func Finalize(wins, losses int64, confidence float64) Estimate {
	games := wins + losses
	if games <= 0 {
		return Estimate{}
	}

	rate := float64(wins) / float64(games)
	lcb := BetaQuantile(priorAlpha+float64(wins), priorBeta+float64(losses), 1-confidence)
	// the uniform prior pulls small samples toward 0.5; the bound must stay
	// conservative, so it never exceeds the observed rate
	lcb = math.Min(lcb, rate)
	return Estimate{WinRate: &rate, LowerBound: lcb}
}

// BetaQuantile returns the p-quantile of Beta(a, b).
func BetaQuantile(a, b, p float64) float64 {
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		return 1
	}
	return mathext.InvRegIncBeta(a, b, p)
}
