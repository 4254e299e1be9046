// Package linear implements Bayesian linear regression with a conjugate
// Gaussian prior, evaluated at a fixed pair of scale hyperparameters.
//
// The model is y = Xw + eps with eps ~ N(0, sigmaNoise^2 I) and
// w ~ N(0, sigmaCoef^2 I), zero intercept. The target is assumed to be
// centered and the features standardized; under that convention the
// posterior over w and the marginal likelihood of y are available in
// closed form. This is the per-grid-point building block that exhaustive
// search evaluates 2^k times per grid cell.
package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exhbma/core/model"
	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

const log2Pi = 1.8378770664093453

// LinearRegression fits the conjugate Gaussian linear model for one
// (sigmaNoise, sigmaCoef) pair, producing the posterior mean coefficients
// and the log marginal likelihood of the targets.
type LinearRegression struct {
	state *model.StateManager

	sigmaNoise float64
	sigmaCoef  float64

	coef          []float64
	logLikelihood float64
	nFeatures     int
}

// NewLinearRegression creates a regression model for the given noise and
// coefficient scales. Both scales must be strictly positive.
func NewLinearRegression(sigmaNoise, sigmaCoef float64) (*LinearRegression, error) {
	if sigmaNoise <= 0 || math.IsNaN(sigmaNoise) {
		return nil, errors.NewValidationError("sigmaNoise", "must be positive", sigmaNoise)
	}
	if sigmaCoef <= 0 || math.IsNaN(sigmaCoef) {
		return nil, errors.NewValidationError("sigmaCoef", "must be positive", sigmaCoef)
	}
	return &LinearRegression{
		state:      model.NewStateManager(),
		sigmaNoise: sigmaNoise,
		sigmaCoef:  sigmaCoef,
	}, nil
}

// Fit computes the posterior mean of the coefficients and the log
// marginal likelihood of y under the model.
//
// The marginal likelihood of y is N(0, sigmaNoise^2 I + sigmaCoef^2 X X^T),
// but it is evaluated through the p x p posterior precision
//
//	A = X^T X / sigmaNoise^2 + I / sigmaCoef^2
//
// so the factorization cost scales with the subset size rather than the
// number of observations. A zero-column X is valid and reduces to the
// likelihood of y under isotropic noise alone.
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	n, p := X.Dims()
	ry, cy := y.Dims()

	if n == 0 {
		return errors.Wrap(errors.ErrEmptyData, "linear.LinearRegression.Fit")
	}
	if ry != n {
		return errors.NewDimensionError("LinearRegression.Fit", n, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	lr.state.Reset()

	yVec := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}

	a := 1 / (lr.sigmaCoef * lr.sigmaCoef)
	b := 1 / (lr.sigmaNoise * lr.sigmaNoise)
	yNormSq := mat.Dot(yVec, yVec)

	if p == 0 {
		lr.coef = []float64{}
		lr.logLikelihood = 0.5*float64(n)*math.Log(b) - 0.5*b*yNormSq - 0.5*float64(n)*log2Pi
		lr.nFeatures = 0
		lr.state.SetDimensions(0, n)
		lr.state.SetFitted()
		return nil
	}

	// Posterior precision A = b*X^T X + a*I.
	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	prec := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := b * xtx.At(i, j)
			if i == j {
				v += a
			}
			prec.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(prec); !ok {
		return errors.Wrap(
			errors.NewNumericalInstabilityError("LinearRegression.Fit: Cholesky of posterior precision",
				[]float64{lr.sigmaNoise, lr.sigmaCoef}),
			errors.ErrNotPositiveDefinite.Error())
	}

	// Posterior mean m = b * A^{-1} X^T y.
	var xty mat.VecDense
	xty.MulVec(X.T(), yVec)
	xty.ScaleVec(b, &xty)

	coefVec := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(coefVec, &xty); err != nil {
		return errors.Wrap(err, "LinearRegression.Fit: posterior mean solve")
	}

	// E(m) = b/2 ||y - Xm||^2 + a/2 ||m||^2.
	var resid mat.VecDense
	resid.MulVec(X, coefVec)
	resid.SubVec(yVec, &resid)
	em := 0.5*b*mat.Dot(&resid, &resid) + 0.5*a*mat.Dot(coefVec, coefVec)

	logLikelihood := 0.5*float64(p)*math.Log(a) +
		0.5*float64(n)*math.Log(b) -
		em -
		0.5*chol.LogDet() -
		0.5*float64(n)*log2Pi

	if err := errors.CheckScalar("LinearRegression.Fit: log marginal likelihood", logLikelihood); err != nil {
		return err
	}

	coef := make([]float64, p)
	copy(coef, coefVec.RawVector().Data)
	if err := errors.CheckNumericalStability("LinearRegression.Fit: posterior mean", coef); err != nil {
		return err
	}

	lr.coef = coef
	lr.logLikelihood = logLikelihood
	lr.nFeatures = p
	lr.state.SetDimensions(p, n)
	lr.state.SetFitted()
	return nil
}

// Predict returns X * coef as an n x 1 matrix.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}

	n, p := X.Dims()
	if p != lr.nFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.nFeatures, p, 1)
	}

	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < p; j++ {
			pred += X.At(i, j) * lr.coef[j]
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Coef returns the posterior mean coefficients.
func (lr *LinearRegression) Coef() ([]float64, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Coef"); err != nil {
		return nil, err
	}
	out := make([]float64, len(lr.coef))
	copy(out, lr.coef)
	return out, nil
}

// LogLikelihood returns the log marginal likelihood of the training
// targets, with the coefficients integrated out.
func (lr *LinearRegression) LogLikelihood() (float64, error) {
	if err := lr.state.RequireFitted("LinearRegression", "LogLikelihood"); err != nil {
		return 0, err
	}
	return lr.logLikelihood, nil
}
