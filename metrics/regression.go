// Package metrics provides regression evaluation metrics.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

// MSE computes the mean squared error between the true and predicted
// values.
func MSE(yTrue, yPred mat.Vector) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("MSE", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("MSE", n, yPred.Len(), 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE computes the root mean squared error.
func RMSE(yTrue, yPred mat.Vector) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// R2Score computes the coefficient of determination.
func R2Score(yTrue, yPred mat.Vector) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("R2Score", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("R2Score", n, yPred.Len(), 0)
	}

	var mean float64
	for i := 0; i < n; i++ {
		mean += yTrue.AtVec(i)
	}
	mean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		p := yPred.AtVec(i)
		tss += (t - mean) * (t - mean)
		rss += (t - p) * (t - p)
	}
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}
