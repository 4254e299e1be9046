package exhaustive

import (
	"math"
	"math/bits"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

// PredictMode selects how the fitted posterior is turned into point
// predictions.
type PredictMode string

const (
	// PredictReduced predicts with the model-averaged coefficient vector:
	// one dot product per row.
	PredictReduced PredictMode = "reduced"

	// PredictFull predicts with the posterior-weighted mixture over all
	// subsets, each contributing its own posterior mean coefficients.
	// The expectation matches PredictReduced; the accumulation order and
	// the available predictive spread differ.
	PredictFull PredictMode = "full"

	// PredictSelect predicts with the single subset whose indicator is
	// the inclusion posterior thresholded at 0.5.
	PredictSelect PredictMode = "select"
)

// selectThreshold is the inclusion posterior cutoff used by PredictSelect.
const selectThreshold = 0.5

// Predict returns predictions for the rows of X as an n x 1 matrix.
// The posterior state is only read, so concurrent Predict calls after a
// successful Fit are safe.
func (e *LinearRegression) Predict(X mat.Matrix, mode PredictMode) (mat.Matrix, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "Predict"); err != nil {
		return nil, err
	}

	n, c := X.Dims()
	if c != e.nFeatures {
		return nil, errors.NewDimensionError("ExhaustiveLinearRegression.Predict", e.nFeatures, c, 1)
	}

	switch mode {
	case PredictReduced:
		return e.predictReduced(X, n), nil
	case PredictFull:
		pred, _ := e.predictFull(X, n)
		return pred, nil
	case PredictSelect:
		return e.predictSelect(X, n)
	default:
		return nil, errors.NewValueError("ExhaustiveLinearRegression.Predict",
			"mode must be one of \"reduced\", \"full\", \"select\"")
	}
}

// PredictWithStd returns full-mode predictions together with the standard
// deviation of the predictive mixture: the spread of the per-subset
// predictions around the mixture mean plus the posterior-mean noise
// variance from the hyperparameter surface.
func (e *LinearRegression) PredictWithStd(X mat.Matrix) (pred, std mat.Matrix, err error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "PredictWithStd"); err != nil {
		return nil, nil, err
	}

	n, c := X.Dims()
	if c != e.nFeatures {
		return nil, nil, errors.NewDimensionError("ExhaustiveLinearRegression.PredictWithStd", e.nFeatures, c, 1)
	}

	mean, secondMoment := e.predictFull(X, n)

	noiseVar, err := e.posteriorNoiseVariance()
	if err != nil {
		return nil, nil, err
	}

	stdOut := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		m := mean.At(i, 0)
		variance := secondMoment[i] - m*m + noiseVar
		if variance < 0 {
			variance = 0
		}
		stdOut.Set(i, 0, math.Sqrt(variance))
	}
	return mean, stdOut, nil
}

func (e *LinearRegression) predictReduced(X mat.Matrix, n int) *mat.Dense {
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		v := 0.0
		for f := 0; f < e.nFeatures; f++ {
			v += X.At(i, f) * e.coef[f]
		}
		out.Set(i, 0, v)
	}
	return out
}

// predictFull mixes per-subset predictions under the subset posteriors.
// It also returns the posterior second moment of the per-subset
// predictions, which PredictWithStd turns into a predictive spread.
func (e *LinearRegression) predictFull(X mat.Matrix, n int) (*mat.Dense, []float64) {
	mean := make([]float64, n)
	secondMoment := make([]float64, n)

	for m, weight := range e.posteriors {
		if weight == 0 {
			continue
		}
		info := e.models[m]
		features := subsetFeatures(m, e.nFeatures)
		for i := 0; i < n; i++ {
			v := 0.0
			for pos, f := range features {
				v += X.At(i, f) * info.Coefficient[pos]
			}
			mean[i] += weight * v
			secondMoment[i] += weight * v * v
		}
	}

	out := mat.NewDense(n, 1, mean)
	return out, secondMoment
}

func (e *LinearRegression) predictSelect(X mat.Matrix, n int) (mat.Matrix, error) {
	indicator, err := e.SelectVariables(selectThreshold)
	if err != nil {
		return nil, err
	}

	mask := 0
	for f, v := range indicator {
		if v == 1 {
			mask |= 1 << uint(f)
		}
	}
	info := e.models[mask]
	features := subsetFeatures(mask, e.nFeatures)

	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		v := 0.0
		for pos, f := range features {
			v += X.At(i, f) * info.Coefficient[pos]
		}
		out.Set(i, 0, v)
	}
	return out, nil
}

// posteriorNoiseVariance is the expectation of sigmaNoise^2 under the
// normalized hyperparameter posterior surface.
func (e *LinearRegression) posteriorNoiseVariance() (float64, error) {
	surface, err := e.SigmaPosterior()
	if err != nil {
		return 0, err
	}
	variance := 0.0
	for i, row := range surface {
		noise := e.sigmaNoisePoints[i].Position
		for _, p := range row {
			variance += p * noise * noise
		}
	}
	return variance, nil
}

// subsetFeatures returns the feature indices of the subset mask in
// ascending order, aligned with the subset's coefficient vector.
func subsetFeatures(mask, k int) []int {
	features := make([]int, 0, bits.OnesCount(uint(mask)))
	for f := 0; f < k; f++ {
		if mask&(1<<uint(f)) != 0 {
			features = append(features, f)
		}
	}
	return features
}
