// Package integrate performs weighted quadrature over log-domain values.
//
// Marginal likelihoods are carried through the whole pipeline as logs, so
// summing grid cells naively would overflow long before float64 runs out
// of exponent. Every function here uses the log-sum-exp trick: subtract
// the maximum log value, exponentiate, accumulate, and add the maximum
// back.
package integrate

import (
	"math"

	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

// TrapezoidWeights returns the composite trapezoidal-rule weights for the
// abscissa positions x, so that sum(w[i]*f(x[i])) approximates the
// integral of f over [x[0], x[len(x)-1]]. A single point gets weight 1,
// which turns integration into plain evaluation.
func TrapezoidWeights(x []float64) []float64 {
	n := len(x)
	w := make([]float64, n)
	switch n {
	case 0:
		return w
	case 1:
		w[0] = 1
		return w
	}
	w[0] = (x[1] - x[0]) / 2
	for i := 1; i < n-1; i++ {
		w[i] = (x[i+1] - x[i-1]) / 2
	}
	w[n-1] = (x[n-1] - x[n-2]) / 2
	return w
}

// LogIntegrateLine computes log(sum_i w[i]*exp(logValues[i])) without
// intermediate overflow. Weights must be non-negative; a result of -Inf
// means the integrand carries no mass.
func LogIntegrateLine(logValues, weights []float64) (float64, error) {
	if len(logValues) == 0 {
		return 0, errors.NewValueError("integrate.LogIntegrateLine", "empty integrand")
	}
	if len(logValues) != len(weights) {
		return 0, errors.NewDimensionError("integrate.LogIntegrateLine", len(weights), len(logValues), 0)
	}

	maxVal := math.Inf(-1)
	for _, v := range logValues {
		if v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(maxVal, -1) {
		return math.Inf(-1), nil
	}
	if math.IsNaN(maxVal) || math.IsInf(maxVal, 1) {
		return 0, errors.NewNumericalInstabilityError("integrate.LogIntegrateLine", []float64{maxVal})
	}

	sum := 0.0
	for i, v := range logValues {
		sum += weights[i] * math.Exp(v-maxVal)
	}
	result := maxVal + math.Log(sum)
	if math.IsNaN(result) {
		return 0, errors.NewNumericalInstabilityError("integrate.LogIntegrateLine", []float64{sum, maxVal})
	}
	return result, nil
}

// LogIntegrateSquare computes
//
//	log( sum_i sum_j w1[i]*w2[j]*exp(logValues[i][j]) )
//
// over a 2-D grid whose rows follow w1 and columns follow w2.
func LogIntegrateSquare(logValues [][]float64, w1, w2 []float64) (float64, error) {
	if err := validateSquare("integrate.LogIntegrateSquare", logValues, len(w1), len(w2)); err != nil {
		return 0, err
	}

	maxVal := math.Inf(-1)
	for _, row := range logValues {
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}
	}
	if math.IsInf(maxVal, -1) {
		return math.Inf(-1), nil
	}
	if math.IsNaN(maxVal) || math.IsInf(maxVal, 1) {
		return 0, errors.NewNumericalInstabilityError("integrate.LogIntegrateSquare", []float64{maxVal})
	}

	sum := 0.0
	for i, row := range logValues {
		rowSum := 0.0
		for j, v := range row {
			rowSum += w2[j] * math.Exp(v-maxVal)
		}
		sum += w1[i] * rowSum
	}
	result := maxVal + math.Log(sum)
	if math.IsNaN(result) {
		return 0, errors.NewNumericalInstabilityError("integrate.LogIntegrateSquare", []float64{sum, maxVal})
	}
	return result, nil
}

// LogIntegrateSquareSigned integrates factors[i][j]*exp(logValues[i][j])
// over the weighted grid, where the factors may be negative. It returns
// the log of the absolute value of the integral and its sign (-1, 0, +1);
// sign 0 means the integral vanished and logAbs is -Inf.
func LogIntegrateSquareSigned(logValues [][]float64, w1, w2 []float64, factors [][]float64) (logAbs, sign float64, err error) {
	const op = "integrate.LogIntegrateSquareSigned"
	if err := validateSquare(op, logValues, len(w1), len(w2)); err != nil {
		return 0, 0, err
	}
	if err := validateSquare(op, factors, len(w1), len(w2)); err != nil {
		return 0, 0, err
	}

	maxVal := math.Inf(-1)
	for i, row := range logValues {
		for j, v := range row {
			if factors[i][j] != 0 && v > maxVal {
				maxVal = v
			}
		}
	}
	if math.IsInf(maxVal, -1) {
		return math.Inf(-1), 0, nil
	}
	if math.IsNaN(maxVal) || math.IsInf(maxVal, 1) {
		return 0, 0, errors.NewNumericalInstabilityError(op, []float64{maxVal})
	}

	sum := 0.0
	for i, row := range logValues {
		rowSum := 0.0
		for j, v := range row {
			if factors[i][j] == 0 {
				continue
			}
			rowSum += w2[j] * factors[i][j] * math.Exp(v-maxVal)
		}
		sum += w1[i] * rowSum
	}
	if math.IsNaN(sum) {
		return 0, 0, errors.NewNumericalInstabilityError(op, []float64{sum, maxVal})
	}

	switch {
	case sum > 0:
		sign = 1
	case sum < 0:
		sign = -1
	default:
		return math.Inf(-1), 0, nil
	}
	return maxVal + math.Log(math.Abs(sum)), sign, nil
}

func validateSquare(op string, values [][]float64, n1, n2 int) error {
	if n1 == 0 || n2 == 0 {
		return errors.NewValueError(op, "empty weight axis")
	}
	if len(values) != n1 {
		return errors.NewDimensionError(op, n1, len(values), 0)
	}
	for _, row := range values {
		if len(row) != n2 {
			return errors.NewDimensionError(op, n2, len(row), 1)
		}
	}
	return nil
}
