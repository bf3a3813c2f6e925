// Package charts renders dataset plots to PNG files. Rendering is kept
// separate from the analysis operations so it can be tested with plain
// slices and swapped without touching tool dispatch.
package charts

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Plots are written at 6x4 inches, a size that reads well inline in chat.
const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// Hist renders a 30-bin histogram of vals to path.
func Hist(vals []float64, column, path string) error {
	if len(vals) == 0 {
		return fmt.Errorf("column %q has no values to plot", column)
	}
	p := plot.New()
	p.X.Label.Text = column
	p.Y.Label.Text = "Frequency"
	p.Add(plotter.NewGrid())

	h, err := plotter.NewHist(plotter.Values(vals), 30)
	if err != nil {
		return fmt.Errorf("failed to build histogram: %v", err)
	}
	p.Add(h)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("failed to save histogram: %v", err)
	}
	return nil
}

// Box renders a box plot of vals to path.
func Box(vals []float64, column, path string) error {
	if len(vals) == 0 {
		return fmt.Errorf("column %q has no values to plot", column)
	}
	p := plot.New()

	b, err := plotter.NewBoxPlot(vg.Points(40), 0, plotter.Values(vals))
	if err != nil {
		return fmt.Errorf("failed to build box plot: %v", err)
	}
	p.Add(b)
	p.NominalX(column)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("failed to save box plot: %v", err)
	}
	return nil
}

// Scatter renders xs against ys to path. Both slices must have equal length.
func Scatter(xs, ys []float64, columnX, columnY, path string) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("scatter series length mismatch: %d vs %d", len(xs), len(ys))
	}
	if len(xs) == 0 {
		return fmt.Errorf("no paired values to plot for %q and %q", columnX, columnY)
	}
	p := plot.New()
	p.X.Label.Text = columnX
	p.Y.Label.Text = columnY

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("failed to build scatter plot: %v", err)
	}
	p.Add(s)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("failed to save scatter plot: %v", err)
	}
	return nil
}

// Bar renders category counts as a bar chart to path. Labels and counts are
// paired by index; labels are drawn slanted so long category names stay
// readable.
func Bar(labels []string, counts []float64, column, path string) error {
	if len(labels) != len(counts) {
		return fmt.Errorf("bar series length mismatch: %d labels vs %d counts", len(labels), len(counts))
	}
	if len(labels) == 0 {
		return fmt.Errorf("column %q has no categories to plot", column)
	}
	p := plot.New()
	p.X.Label.Text = column
	p.Y.Label.Text = "Count"

	bars, err := plotter.NewBarChart(plotter.Values(counts), vg.Points(30))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %v", err)
	}
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("failed to save bar chart: %v", err)
	}
	return nil
}
