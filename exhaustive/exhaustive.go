// Package exhaustive implements exhaustive Bayesian model averaging for
// linear regression feature selection.
//
// Every subset of the feature index set is treated as a candidate linear
// model. For each subset the marginal likelihood of the targets is
// computed in closed form with the regression coefficients integrated out
// (package linear), then numerically integrated over a discretized grid
// of the two scale hyperparameters (package integrate). The normalized
// subset posteriors yield per-feature inclusion probabilities, a
// model-averaged coefficient vector and a predictive distribution.
//
// Enumeration is exhaustive over 2^k subsets, which bounds the practical
// feature count to roughly twenty.
package exhaustive

import (
	"math"

	"github.com/YuminosukeSato/exhbma/core/model"
	"github.com/YuminosukeSato/exhbma/integrate"
	"github.com/YuminosukeSato/exhbma/pkg/errors"
	"github.com/YuminosukeSato/exhbma/pkg/log"
	"github.com/YuminosukeSato/exhbma/probability"
)

// maxFeatures bounds the subset enumeration. Beyond this the 2^k model
// count is infeasible no matter the hardware.
const maxFeatures = 30

// preprocessingTolerance is the tolerance used to verify that callers
// pass centered targets and standardized features.
const preprocessingTolerance = 1e-8

// ModelInfo holds the fitted quantities of a single feature subset.
// All fields are populated once during Fit and read-only afterwards.
type ModelInfo struct {
	// Indicator is the 0/1 membership vector of the subset, one entry
	// per feature.
	Indicator []int

	// LogPrior is the log prior probability of the subset.
	LogPrior float64

	// Coefficient is the posterior mean coefficient vector of the subset
	// (subset length, not zero-padded), marginalized over the
	// hyperparameter grid.
	Coefficient []float64

	// LogLikelihood is the log marginal likelihood of the subset with
	// coefficients and both hyperparameters integrated out.
	LogLikelihood float64

	// LogLikelihoodOverSigma is the raw log likelihood grid
	// p(y | sigmaNoise_i, sigmaCoef_j, X_subset), prior densities not
	// included.
	LogLikelihoodOverSigma [][]float64
}

// LinearRegression performs exhaustive Bayesian model averaging over all
// feature subsets of a linear regression model.
//
// The intercept is fixed at zero: targets must be centered and features
// standardized (see preprocessing.StandardScaler). Fit is a blocking call
// that fully recomputes the posterior state; the fitted state is safe for
// concurrent read-only use afterwards.
type LinearRegression struct {
	state  *model.StateManager
	logger log.Logger

	sigmaNoisePoints []probability.RandomVariable
	sigmaCoefPoints  []probability.RandomVariable

	subsetPrior SubsetPrior
	progress    func(done, total int)
	maxWorkers  int

	// Quadrature pieces derived from the grids at construction time.
	noiseWeights []float64
	coefWeights  []float64
	logPriorGrid [][]float64

	// Posterior state, written exactly once per successful Fit.
	nFeatures              int
	nSamples               int
	indicators             [][]int
	models                 []*ModelInfo
	posteriors             []float64
	logLikelihood          float64
	featurePosteriors      []float64
	coef                   []float64
	logLikelihoodOverSigma [][]float64
}

// Option configures a LinearRegression at construction time.
type Option func(*LinearRegression)

// WithSubsetPrior replaces the prior over feature subsets. The function
// receives the subset size and the total feature count and returns a log
// prior probability. The default is UniformPrior.
func WithSubsetPrior(prior SubsetPrior) Option {
	return func(e *LinearRegression) {
		e.subsetPrior = prior
	}
}

// WithProgress installs a progress hook invoked after each subset
// evaluation with the number of completed subsets and the total count.
// The hook may be called from multiple goroutines, serialized by the
// estimator; done counts are monotone but not otherwise ordered.
func WithProgress(fn func(done, total int)) Option {
	return func(e *LinearRegression) {
		e.progress = fn
	}
}

// WithWorkers caps the number of goroutines used for subset evaluation.
// n <= 0 selects one worker per CPU core.
func WithWorkers(n int) Option {
	return func(e *LinearRegression) {
		e.maxWorkers = n
	}
}

// NewLinearRegression creates an exhaustive-search estimator over the
// given hyperparameter grids. Both grids must be non-empty with strictly
// positive, strictly increasing positions and strictly positive prior
// densities.
func NewLinearRegression(sigmaNoisePoints, sigmaCoefPoints []probability.RandomVariable, opts ...Option) (*LinearRegression, error) {
	if err := validateGrid("sigma_noise", sigmaNoisePoints); err != nil {
		return nil, err
	}
	if err := validateGrid("sigma_coef", sigmaCoefPoints); err != nil {
		return nil, err
	}

	e := &LinearRegression{
		state:            model.NewStateManager(),
		logger:           log.GetLoggerWithName("exhaustive"),
		sigmaNoisePoints: append([]probability.RandomVariable(nil), sigmaNoisePoints...),
		sigmaCoefPoints:  append([]probability.RandomVariable(nil), sigmaCoefPoints...),
		subsetPrior:      UniformPrior,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.noiseWeights = integrate.TrapezoidWeights(probability.Positions(e.sigmaNoisePoints))
	e.coefWeights = integrate.TrapezoidWeights(probability.Positions(e.sigmaCoefPoints))

	noiseLogProbs := probability.LogProbs(e.sigmaNoisePoints)
	coefLogProbs := probability.LogProbs(e.sigmaCoefPoints)
	e.logPriorGrid = make([][]float64, len(noiseLogProbs))
	for i, lpn := range noiseLogProbs {
		row := make([]float64, len(coefLogProbs))
		for j, lpc := range coefLogProbs {
			row[j] = lpn + lpc
		}
		e.logPriorGrid[i] = row
	}

	return e, nil
}

func validateGrid(name string, points []probability.RandomVariable) error {
	if len(points) == 0 {
		return errors.NewInvalidGridError(name, "grid must contain at least one point")
	}
	prev := 0.0
	for _, p := range points {
		if p.Position <= 0 || math.IsNaN(p.Position) || math.IsInf(p.Position, 0) {
			return errors.NewInvalidGridError(name, "positions must be strictly positive finite values")
		}
		if p.Position <= prev {
			return errors.NewInvalidGridError(name, "positions must be strictly increasing")
		}
		if p.Prob <= 0 || math.IsNaN(p.Prob) || math.IsInf(p.Prob, 0) {
			return errors.NewInvalidGridError(name, "prior densities must be strictly positive finite values")
		}
		prev = p.Position
	}
	return nil
}

// resetPosterior discards any previously fitted state so a failed Fit
// leaves the estimator equivalent to a freshly constructed one.
func (e *LinearRegression) resetPosterior() {
	e.state.Reset()
	e.nFeatures = 0
	e.nSamples = 0
	e.indicators = nil
	e.models = nil
	e.posteriors = nil
	e.logLikelihood = 0
	e.featurePosteriors = nil
	e.coef = nil
	e.logLikelihoodOverSigma = nil
}

// NFeatures returns the number of features seen during fit.
func (e *LinearRegression) NFeatures() (int, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "NFeatures"); err != nil {
		return 0, err
	}
	return e.nFeatures, nil
}

// FeaturePosteriors returns the marginal inclusion probability of every
// feature: the sum of subset posteriors over subsets containing it.
func (e *LinearRegression) FeaturePosteriors() ([]float64, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "FeaturePosteriors"); err != nil {
		return nil, err
	}
	return append([]float64(nil), e.featurePosteriors...), nil
}

// Coef returns the model-averaged coefficient vector of length k.
func (e *LinearRegression) Coef() ([]float64, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "Coef"); err != nil {
		return nil, err
	}
	return append([]float64(nil), e.coef...), nil
}

// LogLikelihood returns the log marginal likelihood of the training
// targets with coefficients, hyperparameters and subsets integrated out.
func (e *LinearRegression) LogLikelihood() (float64, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "LogLikelihood"); err != nil {
		return 0, err
	}
	return e.logLikelihood, nil
}

// Posteriors returns the normalized posterior probability of every subset,
// indexed by subset mask (bit f set means feature f is included).
func (e *LinearRegression) Posteriors() ([]float64, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "Posteriors"); err != nil {
		return nil, err
	}
	return append([]float64(nil), e.posteriors...), nil
}

// Indicators returns the indicator vector of every subset, index-aligned
// with Posteriors and Models.
func (e *LinearRegression) Indicators() ([][]int, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "Indicators"); err != nil {
		return nil, err
	}
	return e.indicators, nil
}

// Models returns the per-subset fit information, index-aligned with
// Posteriors. The returned slice and its contents must not be modified.
func (e *LinearRegression) Models() ([]*ModelInfo, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "Models"); err != nil {
		return nil, err
	}
	return e.models, nil
}

// LogLikelihoodOverSigma returns the subset-marginalized log likelihood
// surface p(y | sigmaNoise_i, sigmaCoef_j, X) over the hyperparameter
// grid. Grid prior densities are not included.
func (e *LinearRegression) LogLikelihoodOverSigma() ([][]float64, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "LogLikelihoodOverSigma"); err != nil {
		return nil, err
	}
	return e.logLikelihoodOverSigma, nil
}

// SigmaPosterior returns the joint posterior of the two hyperparameters,
// marginalized over subsets and normalized so the grid cells sum to one.
// Diagnostic only; point prediction never consumes it.
func (e *LinearRegression) SigmaPosterior() ([][]float64, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "SigmaPosterior"); err != nil {
		return nil, err
	}

	flat := make([]float64, 0, len(e.logLikelihoodOverSigma)*len(e.coefWeights))
	for i, row := range e.logLikelihoodOverSigma {
		for j, v := range row {
			flat = append(flat, v+e.logPriorGrid[i][j])
		}
	}
	logTotal := errors.LogSumExp(flat)

	out := make([][]float64, len(e.logLikelihoodOverSigma))
	idx := 0
	for i, row := range e.logLikelihoodOverSigma {
		outRow := make([]float64, len(row))
		for j := range row {
			outRow[j] = math.Exp(flat[idx] - logTotal)
			idx++
		}
		out[i] = outRow
	}
	return out, nil
}

// SelectVariables returns the indicator vector of features whose inclusion
// posterior is at least threshold.
func (e *LinearRegression) SelectVariables(threshold float64) ([]int, error) {
	if err := e.state.RequireFitted("ExhaustiveLinearRegression", "SelectVariables"); err != nil {
		return nil, err
	}
	indicator := make([]int, e.nFeatures)
	for f, p := range e.featurePosteriors {
		if p >= threshold {
			indicator[f] = 1
		}
	}
	return indicator, nil
}
