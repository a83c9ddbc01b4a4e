package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ROCPage renders an HTML page with an interactive ROC chart and, when the
// summary carries a sweep, precision/recall/F1 by cutoff.
func ROCPage(w io.Writer, s Summary) error {
	page := components.NewPage()
	page.SetPageTitle("churnscope evaluation")

	if s.Curve != nil {
		page.AddCharts(rocChart(s))
	}
	if len(s.Sweep) > 0 {
		page.AddCharts(sweepChart(s))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering HTML report: %w", err)
	}
	return nil
}

func rocChart(s Summary) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(s.Curve.Points))
	for _, pt := range s.Curve.Points {
		cutoff := interface{}(pt.Threshold)
		if math.IsInf(pt.Threshold, -1) {
			cutoff = "below min"
		}
		data = append(data, opts.ScatterData{Value: []interface{}{pt.FalsePositiveRate, pt.TruePositiveRate, cutoff}})
	}

	chance := make([]opts.ScatterData, 0, 11)
	for i := 0; i <= 10; i++ {
		x := float64(i) / 10
		chance = append(chance, opts.ScatterData{Value: []interface{}{x, x}})
	}

	subtitle := fmt.Sprintf("AUC=%.4f points=%d", s.Curve.AUC, len(s.Curve.Points))
	if s.Model != "" {
		subtitle = "model=" + s.Model + " " + subtitle
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "ROC curve", Width: "720px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "ROC curve", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: 1, Name: "FPR", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "TPR", NameLocation: "middle", NameGap: 30}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	scatter.AddSeries("roc", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("chance", chance, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	if s.Youden != nil {
		scatter.AddSeries("youden", []opts.ScatterData{
			{Value: []interface{}{s.Youden.FalsePositiveRate, s.Youden.TruePositiveRate, s.Youden.Cutoff}},
		}, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	}
	return scatter
}

func sweepChart(s Summary) *charts.Line {
	cutoffs := make([]string, len(s.Sweep))
	precision := make([]opts.LineData, len(s.Sweep))
	recall := make([]opts.LineData, len(s.Sweep))
	f1 := make([]opts.LineData, len(s.Sweep))
	for i, m := range s.Sweep {
		cutoffs[i] = formatFloat(m.Cutoff)
		precision[i] = lineValue(m.Precision.Value, m.Precision.Defined)
		recall[i] = lineValue(m.Recall.Value, m.Recall.Defined)
		f1[i] = lineValue(m.F1.Value, m.F1.Defined)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Cutoff sweep", Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Cutoff sweep", Subtitle: "undefined metrics are left as gaps"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(cutoffs).
		AddSeries("precision", precision).
		AddSeries("recall", recall).
		AddSeries("f1", f1)
	return line
}

// lineValue uses echarts' "-" placeholder so undefined metrics show as gaps
// instead of zeros.
func lineValue(v float64, defined bool) opts.LineData {
	if !defined {
		return opts.LineData{Value: "-"}
	}
	return opts.LineData{Value: v}
}
