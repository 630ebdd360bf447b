package strategy_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/dta-sim/internal/strategy"
)

func TestInertNeverReroutes(t *testing.T) {
	s := strategy.Inert()
	require.False(t, s.Evaluate(100, 100))
	require.False(t, s.Evaluate(-100, -100))
}

func TestRerouteDiamondScenario(t *testing.T) {
	// cos alpha = 0, sin alpha = 1, theta = 0.5: reroute when link is fully saturated.
	s := strategy.NewActive(strategy.Params{CosAlpha: 0, SinAlpha: 1, Theta: 0.5})
	require.True(t, s.Evaluate(0.3, 1.0))
}

func TestNoRerouteWhenSaturationZero(t *testing.T) {
	// Per contract this predicate is only invoked when x2 > 0; with x2 == 0
	// the formula itself would also reject since -theta <= 0 for theta >= 0.
	s := strategy.NewActive(strategy.Params{CosAlpha: 0, SinAlpha: 1, Theta: 0})
	require.False(t, s.Evaluate(0.9, 0))
}

func TestMonotoneSlopeSign(t *testing.T) {
	p := strategy.NewParams(math.Pi/3, 0.1)
	s := strategy.NewActive(p)

	base := s.Params.CosAlpha*0.2 + s.Params.SinAlpha*0.2 - s.Params.Theta
	bumpedX1 := s.Params.CosAlpha*0.3 + s.Params.SinAlpha*0.2 - s.Params.Theta
	bumpedX2 := s.Params.CosAlpha*0.2 + s.Params.SinAlpha*0.3 - s.Params.Theta

	require.Equal(t, sign(bumpedX1-base), sign(p.CosAlpha))
	require.Equal(t, sign(bumpedX2-base), sign(p.SinAlpha))
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
