package exhaustive

import (
	"math"

	"github.com/YuminosukeSato/exhbma/pkg/errors"
	"github.com/YuminosukeSato/exhbma/probability"
)

// SubsetPrior maps a subset size and the total feature count to the log
// prior probability of any subset of that size.
type SubsetPrior func(subsetSize, nFeatures int) float64

// UniformPrior assigns every subset the same prior probability 2^-k.
// Equivalent to BernoulliPrior(0.5).
func UniformPrior(subsetSize, nFeatures int) float64 {
	return -float64(nFeatures) * math.Ln2
}

// BernoulliPrior treats every feature as independently included with
// probability alpha:
//
//	p(c) = alpha^|c| * (1-alpha)^(k-|c|)
func BernoulliPrior(alpha float64) (SubsetPrior, error) {
	if alpha <= 0 || alpha >= 1 || math.IsNaN(alpha) {
		return nil, errors.NewValidationError("alpha", "must lie in (0, 1)", alpha)
	}
	logAlpha := math.Log(alpha)
	log1mAlpha := math.Log(1 - alpha)
	return func(subsetSize, nFeatures int) float64 {
		return float64(subsetSize)*logAlpha + float64(nFeatures-subsetSize)*log1mAlpha
	}, nil
}

// BetaBinomialPrior places a Beta(a, b) hyper-prior on the inclusion rate
// and marginalizes it out:
//
//	p(c) = Gamma(|c|+a) * Gamma(k-|c|+b) / Gamma(k+a+b)
//
// up to a constant. Small a with b = 1 penalizes large subsets.
func BetaBinomialPrior(params probability.BetaDistributionParams) (SubsetPrior, error) {
	if params.Alpha <= 0 || params.Beta <= 0 {
		return nil, errors.NewValidationError("alpha/beta", "must be positive", params)
	}
	return func(subsetSize, nFeatures int) float64 {
		lgIn, _ := math.Lgamma(float64(subsetSize) + params.Alpha)
		lgOut, _ := math.Lgamma(float64(nFeatures-subsetSize) + params.Beta)
		lgAll, _ := math.Lgamma(float64(nFeatures) + params.Alpha + params.Beta)
		return lgIn + lgOut - lgAll
	}, nil
}
