package exhaustive

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exhbma/linear"
	"github.com/YuminosukeSato/exhbma/pkg/errors"
	"github.com/YuminosukeSato/exhbma/probability"
)

// standardize centers every column and scales it to unit population
// standard deviation, in place.
func standardize(X *mat.Dense) {
	r, c := X.Dims()
	for j := 0; j < c; j++ {
		mean := 0.0
		for i := 0; i < r; i++ {
			mean += X.At(i, j)
		}
		mean /= float64(r)

		variance := 0.0
		for i := 0; i < r; i++ {
			d := X.At(i, j) - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(r))

		for i := 0; i < r; i++ {
			X.Set(i, j, (X.At(i, j)-mean)/std)
		}
	}
}

// center removes the mean of a target vector, in place.
func center(y *mat.VecDense) {
	mean := 0.0
	for i := 0; i < y.Len(); i++ {
		mean += y.AtVec(i)
	}
	mean /= float64(y.Len())
	for i := 0; i < y.Len(); i++ {
		y.SetVec(i, y.AtVec(i)-mean)
	}
}

// smallGrids returns compact uniform-prior grids for property tests.
func smallGrids(t *testing.T) (noise, coef []probability.RandomVariable) {
	t.Helper()

	noisePositions := probability.LogSpace(-2, 0.5, 8)
	coefPositions := probability.LogSpace(-1.5, 1, 8)

	noise, err := probability.Uniform(noisePositions, noisePositions[0], noisePositions[len(noisePositions)-1])
	require.NoError(t, err)
	coef, err = probability.Uniform(coefPositions, coefPositions[0], coefPositions[len(coefPositions)-1])
	require.NoError(t, err)
	return noise, coef
}

// sparseData draws standardized features and a centered target from a
// sparse linear model with the given coefficients and noise level.
func sparseData(rng *rand.Rand, n int, coef []float64, noiseStd float64) (*mat.Dense, *mat.VecDense) {
	k := len(coef)
	X := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
	}
	standardize(X)

	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v := 0.0
		for j := 0; j < k; j++ {
			v += coef[j] * X.At(i, j)
		}
		y.SetVec(i, v+noiseStd*rng.NormFloat64())
	}
	center(y)
	return X, y
}

func fitSmall(t *testing.T, rng *rand.Rand, trueCoef []float64) *LinearRegression {
	t.Helper()

	noise, coefGrid := smallGrids(t)
	reg, err := NewLinearRegression(noise, coefGrid)
	require.NoError(t, err)

	X, y := sparseData(rng, 30, trueCoef, 0.1)
	require.NoError(t, reg.Fit(X, y))
	return reg
}

func TestPosteriorsSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	reg := fitSmall(t, rng, []float64{1, 0, -0.6, 0})

	posteriors, err := reg.Posteriors()
	require.NoError(t, err)
	require.Len(t, posteriors, 16)

	total := 0.0
	for _, p := range posteriors {
		require.GreaterOrEqual(t, p, 0.0)
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestFeaturePosteriorsMatchSubsetSums(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	reg := fitSmall(t, rng, []float64{0.8, 0, 0, -0.5})

	posteriors, err := reg.Posteriors()
	require.NoError(t, err)
	inclusion, err := reg.FeaturePosteriors()
	require.NoError(t, err)
	require.Len(t, inclusion, 4)

	for f := 0; f < 4; f++ {
		want := 0.0
		for mask, p := range posteriors {
			if mask&(1<<uint(f)) != 0 {
				want += p
			}
		}
		assert.InDelta(t, want, inclusion[f], 1e-12)
		assert.GreaterOrEqual(t, inclusion[f], 0.0)
		assert.LessOrEqual(t, inclusion[f], 1.0)
	}
}

func TestFitIsIdempotent(t *testing.T) {
	noise, coefGrid := smallGrids(t)
	rng := rand.New(rand.NewSource(5))
	X, y := sparseData(rng, 30, []float64{1, 0, 0.4}, 0.1)

	reg, err := NewLinearRegression(noise, coefGrid)
	require.NoError(t, err)

	require.NoError(t, reg.Fit(X, y))
	first, err := reg.FeaturePosteriors()
	require.NoError(t, err)
	firstCoef, err := reg.Coef()
	require.NoError(t, err)
	firstLL, err := reg.LogLikelihood()
	require.NoError(t, err)

	require.NoError(t, reg.Fit(X, y))
	second, err := reg.FeaturePosteriors()
	require.NoError(t, err)
	secondCoef, err := reg.Coef()
	require.NoError(t, err)
	secondLL, err := reg.LogLikelihood()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstCoef, secondCoef)
	assert.Equal(t, firstLL, secondLL)
}

func TestWorkerCountDoesNotChangeResult(t *testing.T) {
	noise, coefGrid := smallGrids(t)
	rng := rand.New(rand.NewSource(6))
	X, y := sparseData(rng, 30, []float64{0.7, 0, -0.7}, 0.1)

	serial, err := NewLinearRegression(noise, coefGrid, WithWorkers(1))
	require.NoError(t, err)
	require.NoError(t, serial.Fit(X, y))

	parallelReg, err := NewLinearRegression(noise, coefGrid, WithWorkers(8))
	require.NoError(t, err)
	require.NoError(t, parallelReg.Fit(X, y))

	a, err := serial.Posteriors()
	require.NoError(t, err)
	b, err := parallelReg.Posteriors()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmptyFeatureSet(t *testing.T) {
	noise, coefGrid := smallGrids(t)
	reg, err := NewLinearRegression(noise, coefGrid)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(8))
	y := mat.NewVecDense(20, nil)
	for i := 0; i < 20; i++ {
		y.SetVec(i, rng.NormFloat64())
	}
	center(y)

	require.NoError(t, reg.Fit(linear.EmptyDesign(20), y))

	inclusion, err := reg.FeaturePosteriors()
	require.NoError(t, err)
	assert.Empty(t, inclusion)

	coef, err := reg.Coef()
	require.NoError(t, err)
	assert.Empty(t, coef)

	posteriors, err := reg.Posteriors()
	require.NoError(t, err)
	require.Len(t, posteriors, 1)
	assert.InDelta(t, 1.0, posteriors[0], 1e-12)

	pred, err := reg.Predict(linear.EmptyDesign(3), PredictReduced)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.Zero(t, pred.At(i, 0))
	}
}

func TestProgressHook(t *testing.T) {
	noise, coefGrid := smallGrids(t)

	var calls int
	var lastDone, lastTotal int
	reg, err := NewLinearRegression(noise, coefGrid,
		WithProgress(func(done, total int) {
			calls++
			lastDone = done
			lastTotal = total
		}),
		WithWorkers(1),
	)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(9))
	X, y := sparseData(rng, 25, []float64{0.5, 0}, 0.1)
	require.NoError(t, reg.Fit(X, y))

	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, lastDone)
	assert.Equal(t, 4, lastTotal)
}

func TestNotFittedErrors(t *testing.T) {
	noise, coefGrid := smallGrids(t)
	reg, err := NewLinearRegression(noise, coefGrid)
	require.NoError(t, err)

	var notFitted *errors.NotFittedError

	_, err = reg.FeaturePosteriors()
	require.Error(t, err)
	assert.True(t, errors.As(err, &notFitted))

	_, err = reg.Coef()
	require.Error(t, err)
	_, err = reg.LogLikelihood()
	require.Error(t, err)
	_, err = reg.Posteriors()
	require.Error(t, err)
	_, err = reg.Models()
	require.Error(t, err)
	_, err = reg.LogLikelihoodOverSigma()
	require.Error(t, err)
	_, err = reg.SigmaPosterior()
	require.Error(t, err)
	_, err = reg.SelectVariables(0.5)
	require.Error(t, err)

	_, err = reg.Predict(mat.NewDense(1, 2, []float64{0, 0}), PredictReduced)
	require.Error(t, err)
	assert.True(t, errors.As(err, &notFitted))
}

func TestFailedFitLeavesEstimatorUnfitted(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	reg := fitSmall(t, rng, []float64{1, 0})

	_, err := reg.FeaturePosteriors()
	require.NoError(t, err)

	// Non-centered target must fail validation and discard the
	// previous posterior state.
	X, _ := sparseData(rng, 30, []float64{1, 0}, 0.1)
	badY := mat.NewVecDense(30, nil)
	for i := 0; i < 30; i++ {
		badY.SetVec(i, 5+rng.NormFloat64())
	}
	require.Error(t, reg.Fit(X, badY))

	var notFitted *errors.NotFittedError
	_, err = reg.FeaturePosteriors()
	require.Error(t, err)
	assert.True(t, errors.As(err, &notFitted))
}

func TestInvalidGrids(t *testing.T) {
	valid := []probability.RandomVariable{{Position: 0.1, Prob: 1}, {Position: 1, Prob: 1}}
	var gridErr *errors.InvalidGridError

	_, err := NewLinearRegression(nil, valid)
	require.Error(t, err)
	assert.True(t, errors.As(err, &gridErr))

	_, err = NewLinearRegression(valid, []probability.RandomVariable{{Position: -1, Prob: 1}})
	require.Error(t, err)
	assert.True(t, errors.As(err, &gridErr))

	_, err = NewLinearRegression([]probability.RandomVariable{{Position: 1, Prob: 1}, {Position: 0.5, Prob: 1}}, valid)
	require.Error(t, err)
	assert.True(t, errors.As(err, &gridErr))

	_, err = NewLinearRegression(valid, []probability.RandomVariable{{Position: 0.1, Prob: 0}, {Position: 1, Prob: 1}})
	require.Error(t, err)
	assert.True(t, errors.As(err, &gridErr))
}

func TestPredictShapeValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	reg := fitSmall(t, rng, []float64{1, 0, 0})

	var dimErr *errors.DimensionError
	_, err := reg.Predict(mat.NewDense(2, 2, nil), PredictFull)
	require.Error(t, err)
	assert.True(t, errors.As(err, &dimErr))

	_, _, err = reg.PredictWithStd(mat.NewDense(2, 5, nil))
	require.Error(t, err)
	assert.True(t, errors.As(err, &dimErr))

	_, err = reg.Predict(mat.NewDense(2, 3, nil), PredictMode("bogus"))
	require.Error(t, err)
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}

func TestSubsetPriors(t *testing.T) {
	bernoulli, err := BernoulliPrior(0.5)
	require.NoError(t, err)
	for size := 0; size <= 5; size++ {
		assert.InDelta(t, UniformPrior(size, 5), bernoulli(size, 5), 1e-12)
	}

	sparse, err := BernoulliPrior(0.1)
	require.NoError(t, err)
	assert.Greater(t, sparse(1, 5), sparse(4, 5))

	_, err = BernoulliPrior(0)
	require.Error(t, err)
	_, err = BernoulliPrior(1)
	require.Error(t, err)

	bb, err := BetaBinomialPrior(probability.BetaDistributionParams{Alpha: 1, Beta: 1})
	require.NoError(t, err)
	// With a flat Beta(1,1) hyper-prior every subset size class carries
	// equal mass, so larger subsets are individually less probable.
	assert.Greater(t, bb(0, 5), bb(2, 5))

	_, err = BetaBinomialPrior(probability.BetaDistributionParams{Alpha: 0, Beta: 1})
	require.Error(t, err)
}

func TestSubsetPriorChangesPosterior(t *testing.T) {
	noise, coefGrid := smallGrids(t)
	rng := rand.New(rand.NewSource(12))
	X, y := sparseData(rng, 30, []float64{0.9, 0, 0}, 0.1)

	uniform, err := NewLinearRegression(noise, coefGrid)
	require.NoError(t, err)
	require.NoError(t, uniform.Fit(X, y))

	sparsePrior, err := BernoulliPrior(0.01)
	require.NoError(t, err)
	sparse, err := NewLinearRegression(noise, coefGrid, WithSubsetPrior(sparsePrior))
	require.NoError(t, err)
	require.NoError(t, sparse.Fit(X, y))

	uInc, err := uniform.FeaturePosteriors()
	require.NoError(t, err)
	sInc, err := sparse.FeaturePosteriors()
	require.NoError(t, err)

	// A strongly sparsifying prior must push irrelevant features down.
	assert.Less(t, sInc[1], uInc[1])
	assert.Less(t, sInc[2], uInc[2])
}

func TestSigmaPosteriorNormalized(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	reg := fitSmall(t, rng, []float64{1, -0.5})

	surface, err := reg.SigmaPosterior()
	require.NoError(t, err)
	require.Len(t, surface, 8)

	total := 0.0
	for _, row := range surface {
		require.Len(t, row, 8)
		for _, p := range row {
			require.GreaterOrEqual(t, p, 0.0)
			total += p
		}
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}
