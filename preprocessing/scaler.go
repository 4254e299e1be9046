// Package preprocessing provides the data scaling utilities that prepare
// inputs for the zero-intercept Bayesian regression models: features are
// standardized to zero mean and unit standard deviation, targets are
// centered.
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exhbma/core/model"
	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

// StandardScaler standardizes each column to zero mean and, optionally,
// unit standard deviation. With WithStd false it only centers, which is
// the required treatment for regression targets.
type StandardScaler struct {
	state *model.StateManager

	// Mean holds the per-column means learned during Fit.
	Mean []float64

	// Scale holds the per-column standard deviations learned during Fit.
	Scale []float64

	// NFeatures is the number of columns seen during Fit.
	NFeatures int

	// WithMean controls mean subtraction (default true).
	WithMean bool

	// WithStd controls division by the standard deviation (default true).
	WithStd bool
}

// NewStandardScaler creates a scaler with explicit centering/scaling flags.
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		state:    model.NewStateManager(),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault creates a scaler that both centers and scales.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit learns per-column means and standard deviations from X.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "StandardScaler.Fit")
	}

	s.state.Reset()
	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		if s.WithMean {
			sum := 0.0
			for i := 0; i < r; i++ {
				sum += X.At(i, j)
			}
			s.Mean[j] = sum / float64(r)
		}

		s.Scale[j] = 1.0
		if s.WithStd {
			sumSquares := 0.0
			for i := 0; i < r; i++ {
				diff := X.At(i, j) - s.Mean[j]
				sumSquares += diff * diff
			}
			std := math.Sqrt(sumSquares / float64(r))
			// Constant columns keep scale 1 to avoid division by zero.
			if std > 1e-8 {
				s.Scale[j] = std
			}
		}
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

// Transform standardizes X with the learned statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits the scaler on X and returns the transformed data.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps standardized data back to the original scale.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "InverseTransform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return result, nil
}

// String returns a compact description of the scaler configuration.
func (s *StandardScaler) String() string {
	if !s.state.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures)
}
