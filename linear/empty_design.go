package linear

import "gonum.org/v1/gonum/mat"

// EmptyDesign returns an n x 0 design matrix. gonum's Dense cannot hold
// zero columns, but the empty feature subset is a legitimate model, so
// this stand-in carries the row count through Fit and Predict.
func EmptyDesign(n int) mat.Matrix {
	return emptyDesign{n: n}
}

type emptyDesign struct {
	n int
}

func (d emptyDesign) Dims() (r, c int) { return d.n, 0 }

func (d emptyDesign) At(i, j int) float64 {
	panic(mat.ErrColAccess)
}

func (d emptyDesign) T() mat.Matrix { return mat.Transpose{Matrix: d} }
