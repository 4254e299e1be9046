package exhaustive

import (
	"math"
	"math/bits"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exhbma/core/parallel"
	"github.com/YuminosukeSato/exhbma/integrate"
	"github.com/YuminosukeSato/exhbma/linear"
	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

// Fit enumerates every feature subset, evaluates its marginal likelihood
// over the hyperparameter grid and aggregates the results into the
// posterior state.
//
// X must be standardized per column and y centered; violations are
// rejected up front. Subsets are independent work units, so they are
// evaluated in parallel with results written to disjoint slots and
// reduced sequentially afterwards: the posterior state is identical for
// any worker count. A failed Fit leaves the estimator un-fitted.
func (e *LinearRegression) Fit(X, y mat.Matrix) error {
	// A failed fit must leave the estimator un-fitted with no stale
	// posterior state, so discard before validating anything.
	e.resetPosterior()

	n, k := X.Dims()
	ry, cy := y.Dims()

	if n == 0 {
		return errors.Wrap(errors.ErrEmptyData, "ExhaustiveLinearRegression.Fit")
	}
	if ry != n {
		return errors.NewDimensionError("ExhaustiveLinearRegression.Fit", n, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("ExhaustiveLinearRegression.Fit", "y must be a column vector")
	}
	if k > maxFeatures {
		return errors.NewValueError("ExhaustiveLinearRegression.Fit",
			"exhaustive enumeration over 2^k subsets is infeasible for this many features")
	}

	if err := linear.ValidateTargetCentralization(y, preprocessingTolerance); err != nil {
		return err
	}
	if err := linear.ValidateFeatureStandardization(X, preprocessingTolerance); err != nil {
		return err
	}

	nModels := 1 << uint(k)
	started := time.Now()
	e.logger.Info("starting exhaustive fit",
		"n_samples", n,
		"n_features", k,
		"n_models", nModels,
		"grid_shape", []int{len(e.sigmaNoisePoints), len(e.sigmaCoefPoints)},
	)

	yVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}

	models := make([]*ModelInfo, nModels)
	fitErrs := make([]error, nModels)

	var progressMu sync.Mutex
	done := 0
	report := func() {
		if e.progress == nil {
			return
		}
		progressMu.Lock()
		done++
		e.progress(done, nModels)
		progressMu.Unlock()
	}

	parallel.Parallelize(nModels, e.maxWorkers, func(start, end int) {
		for mask := start; mask < end; mask++ {
			info, err := e.evaluateSubset(mask, k, X, yVec)
			if err != nil {
				fitErrs[mask] = err
				continue
			}
			models[mask] = info
			report()
		}
	})

	for _, err := range fitErrs {
		if err != nil {
			return errors.Wrap(err, "ExhaustiveLinearRegression.Fit")
		}
	}

	if err := e.aggregate(k, models); err != nil {
		return err
	}

	e.nFeatures = k
	e.nSamples = n
	e.state.SetDimensions(k, n)
	e.state.SetFitted()

	e.logger.Info("exhaustive fit completed",
		"n_models", nModels,
		"log_likelihood", e.logLikelihood,
		"elapsed", time.Since(started).String(),
	)
	return nil
}

// evaluateSubset fits the conjugate Gaussian model of one subset at every
// grid point and marginalizes the hyperparameters out.
func (e *LinearRegression) evaluateSubset(mask, k int, X mat.Matrix, y *mat.VecDense) (*ModelInfo, error) {
	n := y.Len()
	p := bits.OnesCount(uint(mask))

	indicator := make([]int, k)
	cols := make([]int, 0, p)
	for f := 0; f < k; f++ {
		if mask&(1<<uint(f)) != 0 {
			indicator[f] = 1
			cols = append(cols, f)
		}
	}

	var design mat.Matrix
	if p == 0 {
		design = linear.EmptyDesign(n)
	} else {
		sub := mat.NewDense(n, p, nil)
		for i := 0; i < n; i++ {
			for c, f := range cols {
				sub.Set(i, c, X.At(i, f))
			}
		}
		design = sub
	}

	nNoise := len(e.sigmaNoisePoints)
	nCoef := len(e.sigmaCoefPoints)

	logLik := make([][]float64, nNoise)
	joint := make([][]float64, nNoise)
	coefGrid := make([][][]float64, nNoise)
	for i, noise := range e.sigmaNoisePoints {
		logLik[i] = make([]float64, nCoef)
		joint[i] = make([]float64, nCoef)
		coefGrid[i] = make([][]float64, nCoef)
		for j, coef := range e.sigmaCoefPoints {
			reg, err := linear.NewLinearRegression(noise.Position, coef.Position)
			if err != nil {
				return nil, err
			}
			if err := reg.Fit(design, y); err != nil {
				return nil, err
			}
			ll, err := reg.LogLikelihood()
			if err != nil {
				return nil, err
			}
			w, err := reg.Coef()
			if err != nil {
				return nil, err
			}
			logLik[i][j] = ll
			joint[i][j] = ll + e.logPriorGrid[i][j]
			coefGrid[i][j] = w
		}
	}

	logML, err := integrate.LogIntegrateSquare(joint, e.noiseWeights, e.coefWeights)
	if err != nil {
		return nil, err
	}

	// Grid-marginalized posterior mean coefficients: the expectation of
	// each per-grid-point posterior mean under the normalized grid
	// posterior of this subset.
	coefficient := make([]float64, p)
	if !math.IsInf(logML, -1) {
		jointNorm := make([][]float64, nNoise)
		for i := range joint {
			jointNorm[i] = make([]float64, nCoef)
			for j := range joint[i] {
				jointNorm[i][j] = joint[i][j] - logML
			}
		}
		factors := make([][]float64, nNoise)
		for i := range factors {
			factors[i] = make([]float64, nCoef)
		}
		for f := 0; f < p; f++ {
			for i := range factors {
				for j := range factors[i] {
					factors[i][j] = coefGrid[i][j][f]
				}
			}
			logAbs, sign, err := integrate.LogIntegrateSquareSigned(jointNorm, e.noiseWeights, e.coefWeights, factors)
			if err != nil {
				return nil, err
			}
			coefficient[f] = sign * math.Exp(logAbs)
		}
	}

	return &ModelInfo{
		Indicator:              indicator,
		LogPrior:               e.subsetPrior(p, k),
		Coefficient:            coefficient,
		LogLikelihood:          logML,
		LogLikelihoodOverSigma: logLik,
	}, nil
}

// aggregate normalizes the per-subset results into the posterior state.
func (e *LinearRegression) aggregate(k int, models []*ModelInfo) error {
	nModels := len(models)
	nNoise := len(e.sigmaNoisePoints)
	nCoef := len(e.sigmaCoefPoints)

	logJoint := make([]float64, nModels)
	for m, info := range models {
		logJoint[m] = info.LogPrior + info.LogLikelihood
	}

	logTotal := errors.LogSumExp(logJoint)
	if math.IsNaN(logTotal) || math.IsInf(logTotal, 0) {
		return errors.NewNumericalInstabilityError("ExhaustiveLinearRegression.Fit: posterior normalization",
			[]float64{logTotal})
	}

	posteriors := make([]float64, nModels)
	for m, lj := range logJoint {
		posteriors[m] = math.Exp(lj - logTotal)
	}

	featurePosteriors := make([]float64, k)
	for m, p := range posteriors {
		for f := 0; f < k; f++ {
			if m&(1<<uint(f)) != 0 {
				featurePosteriors[f] += p
			}
		}
	}
	for f := range featurePosteriors {
		if featurePosteriors[f] > 1 {
			featurePosteriors[f] = 1
		}
	}

	// Model-averaged coefficients via signed log-sum-exp over subsets,
	// each subset contributing its zero-padded posterior mean.
	coef := make([]float64, k)
	column := make([]float64, nModels)
	for f := 0; f < k; f++ {
		for m, info := range models {
			if m&(1<<uint(f)) == 0 {
				column[m] = 0
				continue
			}
			pos := bits.OnesCount(uint(m) & ((1 << uint(f)) - 1))
			column[m] = info.Coefficient[pos]
		}
		logAbs, sign := errors.LogSumExpSigned(logJoint, column)
		coef[f] = sign * math.Exp(logAbs-logTotal)
	}

	// Subset-marginalized likelihood surface over the hyperparameter grid.
	surface := make([][]float64, nNoise)
	cell := make([]float64, nModels)
	for i := 0; i < nNoise; i++ {
		surface[i] = make([]float64, nCoef)
		for j := 0; j < nCoef; j++ {
			for m, info := range models {
				cell[m] = info.LogLikelihoodOverSigma[i][j] + info.LogPrior
			}
			surface[i][j] = errors.LogSumExp(cell)
		}
	}

	indicators := make([][]int, nModels)
	for m, info := range models {
		indicators[m] = info.Indicator
	}

	e.indicators = indicators
	e.models = models
	e.posteriors = posteriors
	e.logLikelihood = logTotal
	e.featurePosteriors = featurePosteriors
	e.coef = coef
	e.logLikelihoodOverSigma = surface
	return nil
}
