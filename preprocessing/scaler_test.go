package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

func TestStandardScalerFitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	scaler := NewStandardScalerDefault()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	r, c := out.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 2, c)

	for j := 0; j < c; j++ {
		mean, sumSquares := 0.0, 0.0
		for i := 0; i < r; i++ {
			mean += out.At(i, j)
		}
		mean /= float64(r)
		for i := 0; i < r; i++ {
			d := out.At(i, j) - mean
			sumSquares += d * d
		}
		assert.InDelta(t, 0, mean, 1e-12)
		assert.InDelta(t, 1, math.Sqrt(sumSquares/float64(r)), 1e-12)
	}

	assert.InDelta(t, 2.5, scaler.Mean[0], 1e-12)
	assert.InDelta(t, 25, scaler.Mean[1], 1e-12)
}

func TestStandardScalerCenterOnly(t *testing.T) {
	y := mat.NewDense(3, 1, []float64{1, 2, 6})

	scaler := NewStandardScaler(true, false)
	out, err := scaler.FitTransform(y)
	require.NoError(t, err)

	assert.InDelta(t, -2, out.At(0, 0), 1e-12)
	assert.InDelta(t, -1, out.At(1, 0), 1e-12)
	assert.InDelta(t, 3, out.At(2, 0), 1e-12)
	assert.Equal(t, 1.0, scaler.Scale[0])
}

func TestStandardScalerInverseTransformRoundTrip(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1.5, -2,
		0.5, 4,
		-1, 7,
	})

	scaler := NewStandardScalerDefault()
	transformed, err := scaler.FitTransform(X)
	require.NoError(t, err)

	back, err := scaler.InverseTransform(transformed)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, X.At(i, j), back.At(i, j), 1e-12)
		}
	}
}

func TestStandardScalerConstantColumn(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})

	scaler := NewStandardScalerDefault()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	// Scale falls back to 1, so the column just gets centered.
	assert.Equal(t, 1.0, scaler.Scale[0])
	for i := 0; i < 3; i++ {
		assert.Zero(t, out.At(i, 0))
	}
}

func TestStandardScalerErrors(t *testing.T) {
	scaler := NewStandardScalerDefault()

	var notFitted *errors.NotFittedError
	_, err := scaler.Transform(mat.NewDense(1, 1, []float64{1}))
	require.Error(t, err)
	assert.True(t, errors.As(err, &notFitted))

	_, err = scaler.InverseTransform(mat.NewDense(1, 1, []float64{1}))
	require.Error(t, err)

	err = scaler.Fit(&mat.Dense{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	var dimErr *errors.DimensionError
	_, err = scaler.Transform(mat.NewDense(2, 3, nil))
	require.Error(t, err)
	assert.True(t, errors.As(err, &dimErr))
}

func TestStandardScalerString(t *testing.T) {
	scaler := NewStandardScaler(true, false)
	assert.Equal(t, "StandardScaler(with_mean=true, with_std=false)", scaler.String())

	require.NoError(t, scaler.Fit(mat.NewDense(2, 3, nil)))
	assert.Contains(t, scaler.String(), "n_features=3")
}
