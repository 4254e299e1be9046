package errors

import (
	"math"
)

// CheckNumericalStability checks if values contain NaN or Inf and returns
// an error if numerical instability is detected.
func CheckNumericalStability(operation string, values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values)
		}
	}
	return nil
}

// CheckScalar checks a single scalar value for numerical instability.
// +Inf is allowed nowhere; -Inf is allowed nowhere either, log-domain
// quantities that may legitimately be -Inf are checked by the caller.
func CheckScalar(operation string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value})
	}
	return nil
}

// LogSumExp computes log(sum(exp(values))) in a numerically stable way by
// subtracting the maximum before exponentiating.
func LogSumExp(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}

	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	// All mass is zero.
	if math.IsInf(maxVal, -1) {
		return math.Inf(-1)
	}

	sum := 0.0
	for _, v := range values {
		sum += math.Exp(v - maxVal)
	}

	return maxVal + math.Log(sum)
}

// LogSumExpSigned computes log|sum(factors * exp(values))| together with
// the sign of the sum. It is the signed counterpart of LogSumExp used when
// the scaling factors may be negative, e.g. when averaging coefficients
// under a log-domain posterior.
func LogSumExpSigned(values, factors []float64) (logAbs, sign float64) {
	if len(values) == 0 || len(values) != len(factors) {
		return math.Inf(-1), 0
	}

	maxVal := math.Inf(-1)
	for i, v := range values {
		if factors[i] != 0 && v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(maxVal, -1) {
		return math.Inf(-1), 0
	}

	sum := 0.0
	for i, v := range values {
		if factors[i] == 0 {
			continue
		}
		sum += factors[i] * math.Exp(v-maxVal)
	}

	switch {
	case sum > 0:
		sign = 1
	case sum < 0:
		sign = -1
	default:
		return math.Inf(-1), 0
	}
	return maxVal + math.Log(math.Abs(sum)), sign
}
