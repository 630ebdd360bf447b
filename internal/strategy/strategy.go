// Package strategy implements the linear-threshold rerouting predicate
// evaluated against (normalized elapsed trip time, next-link saturation).
package strategy

import "math"

// Params holds one candidate rerouting strategy's coefficients, loaded
// from the strategy file as an (alpha, theta) pair.
type Params struct {
	CosAlpha float64
	SinAlpha float64
	Theta    float64
}

// NewParams builds Params from an angle alpha (radians) and threshold theta.
func NewParams(alpha, theta float64) Params {
	return Params{CosAlpha: math.Cos(alpha), SinAlpha: math.Sin(alpha), Theta: theta}
}

// Strategy is an agent's rerouting policy: either inert (never reroutes)
// or active with threshold parameters.
type Strategy struct {
	Params Params
	Active bool
}

// Inert returns a strategy that never triggers rerouting.
func Inert() Strategy {
	return Strategy{}
}

// NewActive returns an active strategy with the given parameters.
func NewActive(p Params) Strategy {
	return Strategy{Params: p, Active: true}
}

// Evaluate is the pure predicate: x1*cosAlpha + x2*sinAlpha - theta > 0.
// Inert strategies always return false, regardless of inputs. Callers
// must gate invocation on x2 > 0 themselves (a saturation of zero means
// there is nothing to reroute away from).
func (s Strategy) Evaluate(x1, x2 float64) bool {
	if !s.Active {
		return false
	}
	return x1*s.Params.CosAlpha+x2*s.Params.SinAlpha-s.Params.Theta > 0
}
