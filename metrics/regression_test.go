package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

func TestMSE(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	yPred := mat.NewVecDense(4, []float64{1, 2, 5, 2})

	got, err := MSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-12)

	perfect, err := MSE(yTrue, yTrue)
	require.NoError(t, err)
	assert.Zero(t, perfect)
}

func TestRMSE(t *testing.T) {
	yTrue := mat.NewVecDense(2, []float64{0, 0})
	yPred := mat.NewVecDense(2, []float64{3, -3})

	got, err := RMSE(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got, 1e-12)
}

func TestR2Score(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 2, 3, 4})

	perfect, err := R2Score(yTrue, yTrue)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, perfect, 1e-12)

	// Predicting the mean everywhere scores zero.
	meanPred := mat.NewVecDense(4, []float64{2.5, 2.5, 2.5, 2.5})
	zero, err := R2Score(yTrue, meanPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, zero, 1e-12)

	constTrue := mat.NewVecDense(2, []float64{1, 1})
	_, err = R2Score(constTrue, meanPred.SliceVec(0, 2))
	require.Error(t, err)
}

func TestMetricErrors(t *testing.T) {
	a := mat.NewVecDense(2, []float64{1, 2})
	b := mat.NewVecDense(3, []float64{1, 2, 3})

	var dimErr *errors.DimensionError
	_, err := MSE(a, b)
	require.Error(t, err)
	assert.True(t, errors.As(err, &dimErr))

	_, err = R2Score(a, b)
	require.Error(t, err)

	_, err = MSE(&mat.VecDense{}, &mat.VecDense{})
	require.Error(t, err)
}
