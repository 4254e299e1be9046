// Package probability defines the discretized hyperparameter grid points
// used for quadrature and the prior densities attached to them.
//
// A grid point couples a position with the prior density evaluated there.
// Exhaustive search integrates over the noise-scale and coefficient-scale
// axes by weighted summation over these points, so the densities must be
// normalized over the explored interval rather than over the full support.
package probability

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

// RandomVariable is a single quadrature point: a position on a
// hyperparameter axis and the prior probability density at that position.
type RandomVariable struct {
	Position float64
	Prob     float64
}

// BetaDistributionParams parameterizes a Beta(alpha, beta) prior over the
// feature inclusion rate. Used by the Beta-binomial subset prior.
type BetaDistributionParams struct {
	Alpha float64
	Beta  float64
}

// LogSpace returns n points spaced evenly on a log10 scale between 10^low
// and 10^high, inclusive.
func LogSpace(low, high float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	exponents := make([]float64, n)
	if n == 1 {
		exponents[0] = low
	} else {
		floats.Span(exponents, low, high)
	}
	points := make([]float64, n)
	for i, e := range exponents {
		points[i] = math.Pow(10, e)
	}
	return points
}

// Uniform attaches a uniform density over [low, high] to the positions x.
func Uniform(x []float64, low, high float64) ([]RandomVariable, error) {
	if high <= low {
		return nil, errors.NewValidationError("high", "must be greater than low", high)
	}
	rvs := make([]RandomVariable, len(x))
	density := 1 / (high - low)
	for i, pos := range x {
		rvs[i] = RandomVariable{Position: pos, Prob: density}
	}
	return rvs, nil
}

// Gamma attaches a gamma(shape, scale) density truncated to [low, high]
// to the positions x. The truncated density is the gamma pdf divided by
// the probability mass the distribution assigns to [low, high], so the
// points integrate to one over the explored interval.
//
// A small shape with a large scale (e.g. shape=1e-3, scale=1e3) gives the
// nearly scale-free prior used for noise and coefficient scales.
func Gamma(x []float64, low, high, shape, scale float64) ([]RandomVariable, error) {
	if shape <= 0 {
		return nil, errors.NewValidationError("shape", "must be positive", shape)
	}
	if scale <= 0 {
		return nil, errors.NewValidationError("scale", "must be positive", scale)
	}
	if low <= 0 || high <= low {
		return nil, errors.NewValidationError("low/high", "must satisfy 0 < low < high", []float64{low, high})
	}

	dist := distuv.Gamma{Alpha: shape, Beta: 1 / scale}
	mass := dist.CDF(high) - dist.CDF(low)
	if mass <= 0 || math.IsNaN(mass) {
		return nil, errors.NewNumericalInstabilityError("probability.Gamma", []float64{mass})
	}

	rvs := make([]RandomVariable, len(x))
	for i, pos := range x {
		rvs[i] = RandomVariable{Position: pos, Prob: dist.Prob(pos) / mass}
	}
	return rvs, nil
}

// Positions extracts the position of every grid point.
func Positions(rvs []RandomVariable) []float64 {
	out := make([]float64, len(rvs))
	for i, rv := range rvs {
		out[i] = rv.Position
	}
	return out
}

// LogProbs extracts the log prior density of every grid point.
func LogProbs(rvs []RandomVariable) []float64 {
	out := make([]float64, len(rvs))
	for i, rv := range rvs {
		out[i] = math.Log(rv.Prob)
	}
	return out
}
