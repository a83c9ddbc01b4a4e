package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot dimensions.
const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 6 * vg.Inch
)

var (
	curveColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	chanceColor = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	markColor   = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// ROCPlot draws the ROC curve against the chance diagonal. A non-nil
// youden marks the optimal operating point.
func ROCPlot(curve evaluate.RocCurve, youden *evaluate.YoudenResult) (*plot.Plot, error) {
	if len(curve.Points) < 2 {
		return nil, errors.NewInsufficientDataError("ROCPlot", "curve has fewer than two points")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("ROC curve (AUC = %.4f)", curve.AUC)
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(curve.Points))
	for i, pt := range curve.Points {
		pts[i] = plotter.XY{X: pt.FalsePositiveRate, Y: pt.TruePositiveRate}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = curveColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("model", line)

	chance := plotter.NewFunction(func(x float64) float64 { return x })
	chance.Color = chanceColor
	chance.Width = vg.Points(1)
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(chance)
	p.Legend.Add("chance", chance)

	if youden != nil {
		mark, err := plotter.NewScatter(plotter.XYs{{X: youden.FalsePositiveRate, Y: youden.TruePositiveRate}})
		if err != nil {
			return nil, err
		}
		mark.Color = markColor
		mark.Radius = vg.Points(4)
		p.Add(mark)
		p.Legend.Add(fmt.Sprintf("Youden cutoff %.4f", youden.Cutoff), mark)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// YoudenPlot draws Youden's index against the cutoff. The trailing
// below-minimum point has no finite cutoff and is left out.
func YoudenPlot(curve evaluate.RocCurve) (*plot.Plot, error) {
	pts := make(plotter.XYs, 0, len(curve.Points))
	for _, pt := range curve.Points {
		if math.IsInf(pt.Threshold, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: pt.Threshold, Y: pt.YoudenIndex()})
	}
	if len(pts) < 2 {
		return nil, errors.NewInsufficientDataError("YoudenPlot", "fewer than two finite cutoffs")
	}

	p := plot.New()
	p.Title.Text = "Youden's index by cutoff"
	p.X.Label.Text = "Cutoff"
	p.Y.Label.Text = "Sensitivity + specificity - 1"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = curveColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	return p, nil
}

// SavePNG writes p to path. The image format follows the file extension.
func SavePNG(p *plot.Plot, path string) error {
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}

// WritePNG renders p as PNG to w.
func WritePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("rendering plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("writing plot: %w", err)
	}
	return nil
}
