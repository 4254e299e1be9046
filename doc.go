// Package exhbma provides exhaustive Bayesian model averaging for linear
// regression feature selection.
//
// Every subset of the candidate features is evaluated as its own linear
// model. The marginal likelihood of each subset is computed in closed
// form with the regression coefficients integrated out, then numerically
// integrated over a discretized grid of the noise-scale and
// coefficient-scale hyperparameters. Normalizing across all 2^k subsets
// yields per-feature inclusion probabilities, model-averaged coefficients
// and a full predictive distribution.
//
// # Quick start
//
//	noise, _ := probability.Gamma(probability.LogSpace(-2.5, 0.5, 20), 1e-3, 1e1, 1e-3, 1e3)
//	coef, _ := probability.Gamma(probability.LogSpace(-2, 1, 20), 1e-3, 1e2, 1e-3, 1e3)
//
//	reg, _ := exhaustive.NewLinearRegression(noise, coef)
//	if err := reg.Fit(X, y); err != nil {
//	    log.Fatal(err)
//	}
//	inclusion, _ := reg.FeaturePosteriors()
//	pred, _ := reg.Predict(XNew, exhaustive.PredictFull)
//
// Targets must be centered and features standardized before fitting; see
// the preprocessing package. Enumeration is exhaustive, so the feature
// count is practically bounded at around twenty.
//
// # Packages
//
//   - exhaustive: the exhaustive-search estimator
//   - linear: conjugate Gaussian linear regression at fixed hyperparameters
//   - integrate: log-domain quadrature over hyperparameter grids
//   - probability: grid points, prior densities and grid construction
//   - preprocessing: standardization of features and targets
//   - metrics: regression metrics
//   - plot: posterior diagnostics figures
package exhbma
