package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

// ValidateTargetCentralization checks that the target vector has zero mean
// within tolerance. The zero-intercept model is only correct on a centered
// target.
func ValidateTargetCentralization(y mat.Matrix, tolerance float64) error {
	n, c := y.Dims()
	if n == 0 || c != 1 {
		return errors.NewValueError("ValidateTargetCentralization", "y must be a non-empty column vector")
	}

	mean := 0.0
	for i := 0; i < n; i++ {
		mean += y.At(i, 0)
	}
	mean /= float64(n)

	if math.Abs(mean) > tolerance {
		return errors.NewValidationError("y", "target must be centralized (zero mean)", mean)
	}
	return nil
}

// ValidateFeatureStandardization checks that every feature column has zero
// mean and unit standard deviation within tolerance. The isotropic
// coefficient prior is only meaningful on standardized features.
func ValidateFeatureStandardization(X mat.Matrix, tolerance float64) error {
	n, p := X.Dims()
	if n == 0 {
		return errors.Wrap(errors.ErrEmptyData, "ValidateFeatureStandardization")
	}

	for j := 0; j < p; j++ {
		mean := 0.0
		for i := 0; i < n; i++ {
			mean += X.At(i, j)
		}
		mean /= float64(n)

		variance := 0.0
		for i := 0; i < n; i++ {
			d := X.At(i, j) - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(n))

		if math.Abs(mean) > tolerance {
			return errors.NewValidationError("X", "feature columns must be centralized (zero mean)", mean)
		}
		if math.Abs(std-1) > tolerance {
			return errors.NewValidationError("X", "feature columns must be normalized (unit standard deviation)", std)
		}
	}
	return nil
}
