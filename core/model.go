// Package core defines the small estimator contracts shared by the
// regression and preprocessing packages.
package core

import "gonum.org/v1/gonum/mat"

// Fitter is a supervised model that learns from a design matrix and a
// target column.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor produces predictions for the rows of X. Implementations
// return a column matrix aligned with the input rows.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Model combines fitting and prediction. linear.LinearRegression
// implements it.
type Model interface {
	Fitter
	Predictor
}

// Transformer is an unsupervised data transform such as
// preprocessing.StandardScaler.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
