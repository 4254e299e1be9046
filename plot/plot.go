// Package plot renders diagnostic figures for fitted exhaustive-search
// models: feature inclusion posteriors, the joint hyperparameter
// posterior surface and the per-subset weight diagram.
package plot

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/exhbma/exhaustive"
	"github.com/YuminosukeSato/exhbma/pkg/errors"
)

// maxDiagramRows caps the number of subsets drawn in the weight diagram;
// beyond the leading posterior mass the rows are visually empty anyway.
const maxDiagramRows = 64

// FeaturePosterior draws the inclusion posterior of every feature as a
// bar chart and saves it to path (format inferred from the extension).
func FeaturePosterior(posteriors []float64, path string) error {
	if len(posteriors) == 0 {
		return errors.NewValueError("plot.FeaturePosterior", "empty posterior vector")
	}

	p := plot.New()
	p.Title.Text = "Feature inclusion posterior"
	p.Y.Label.Text = "posterior probability"
	p.Y.Min = 0
	p.Y.Max = 1

	bars, err := plotter.NewBarChart(plotter.Values(posteriors), vg.Points(16))
	if err != nil {
		return errors.Wrap(err, "plot.FeaturePosterior")
	}
	p.Add(bars)

	labels := make([]string, len(posteriors))
	for i := range labels {
		labels[i] = fmt.Sprintf("x%d", i)
	}
	p.NominalX(labels...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "plot.FeaturePosterior")
	}
	return nil
}

// SigmaPosterior draws the joint posterior surface over the noise-scale
// and coefficient-scale grids as a heat map on log10 axes.
func SigmaPosterior(surface [][]float64, noisePositions, coefPositions []float64, path string) error {
	if len(surface) != len(noisePositions) {
		return errors.NewDimensionError("plot.SigmaPosterior", len(noisePositions), len(surface), 0)
	}
	for _, row := range surface {
		if len(row) != len(coefPositions) {
			return errors.NewDimensionError("plot.SigmaPosterior", len(coefPositions), len(row), 1)
		}
	}

	grid := &sigmaGrid{
		noise:   logPositions(noisePositions),
		coef:    logPositions(coefPositions),
		surface: surface,
	}

	p := plot.New()
	p.Title.Text = "Hyperparameter posterior"
	p.X.Label.Text = "log10 sigma_noise"
	p.Y.Label.Text = "log10 sigma_coef"

	heat := plotter.NewHeatMap(grid, moreland.SmoothBlueRed().Palette(255))
	p.Add(heat)

	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrap(err, "plot.SigmaPosterior")
	}
	return nil
}

// WeightDiagram draws the posterior-mean coefficients of the highest
// posterior subsets, one row per subset ordered by posterior mass, one
// column per feature.
func WeightDiagram(models []*exhaustive.ModelInfo, posteriors []float64, path string) error {
	if len(models) == 0 || len(models) != len(posteriors) {
		return errors.NewDimensionError("plot.WeightDiagram", len(models), len(posteriors), 0)
	}
	k := len(models[0].Indicator)
	if k == 0 {
		return errors.NewValueError("plot.WeightDiagram", "no features to draw")
	}

	order := make([]int, len(models))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return posteriors[order[a]] > posteriors[order[b]]
	})
	rows := len(order)
	if rows > maxDiagramRows {
		rows = maxDiagramRows
	}

	// Zero-padded coefficient matrix, best subset on the top row.
	weights := make([][]float64, rows)
	maxAbs := 0.0
	for r := 0; r < rows; r++ {
		info := models[order[r]]
		row := make([]float64, k)
		pos := 0
		for f, in := range info.Indicator {
			if in == 1 {
				row[f] = info.Coefficient[pos]
				pos++
			}
		}
		for _, v := range row {
			if a := math.Abs(v); a > maxAbs {
				maxAbs = a
			}
		}
		weights[r] = row
	}
	if maxAbs == 0 {
		maxAbs = 1
	}

	grid := &weightGrid{weights: weights}

	p := plot.New()
	p.Title.Text = "Weight diagram"
	p.X.Label.Text = "feature"
	p.Y.Label.Text = "model rank"

	colors := moreland.SmoothBlueRed()
	colors.SetMin(-maxAbs)
	colors.SetMax(maxAbs)
	heat := plotter.NewHeatMap(grid, colors.Palette(255))
	heat.Min = -maxAbs
	heat.Max = maxAbs
	p.Add(heat)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "plot.WeightDiagram")
	}
	return nil
}

// sigmaGrid adapts the posterior surface to plotter.GridXYZ with log10
// axis coordinates.
type sigmaGrid struct {
	noise   []float64
	coef    []float64
	surface [][]float64
}

func (g *sigmaGrid) Dims() (c, r int)   { return len(g.noise), len(g.coef) }
func (g *sigmaGrid) Z(c, r int) float64 { return g.surface[c][r] }
func (g *sigmaGrid) X(c int) float64    { return g.noise[c] }
func (g *sigmaGrid) Y(r int) float64    { return g.coef[r] }

// weightGrid adapts the padded coefficient matrix to plotter.GridXYZ.
// Row 0 is the highest posterior subset and is drawn at the top.
type weightGrid struct {
	weights [][]float64
}

func (g *weightGrid) Dims() (c, r int)   { return len(g.weights[0]), len(g.weights) }
func (g *weightGrid) Z(c, r int) float64 { return g.weights[len(g.weights)-1-r][c] }
func (g *weightGrid) X(c int) float64    { return float64(c) }
func (g *weightGrid) Y(r int) float64    { return float64(r) }

func logPositions(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Log10(v)
	}
	return out
}
