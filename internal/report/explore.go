package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/paveg/churnscope/internal/explore"
)

// Exploration is the descriptive overview of a customer table.
type Exploration struct {
	Rows        int                 `json:"rows"`
	Describe    []explore.Summary   `json:"describe"`
	Correlation explore.Correlation `json:"correlation"`
	Target      string              `json:"target"`
	Unique      []explore.Unique    `json:"unique"`
}

// ExplorationText writes the summaries, the correlations against Target
// and the distinct-value counts.
func ExplorationText(w io.Writer, e Exploration) error {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Customer table: %d rows", e.Rows)) + "\n\n")

	if len(e.Describe) > 0 {
		b.WriteString(SectionStyle.Render("Summary statistics") + "\n")
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "column\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax\t")
		for _, s := range e.Describe {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", s.Column, s.Count,
				stat(s.Mean), stat(s.Std), stat(s.Min), stat(s.Q1), stat(s.Median), stat(s.Q3), stat(s.Max))
		}
		tw.Flush()
		b.WriteString("\n")
	}

	if ranked := e.Correlation.RankAgainst(e.Target); len(ranked) > 0 {
		b.WriteString(SectionStyle.Render("Correlation with "+e.Target) + "\n")
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		for _, r := range ranked {
			fmt.Fprintf(tw, "%s\t%s\n", r.Column, stat(r.Value))
		}
		tw.Flush()
		b.WriteString("\n")
	}

	if len(e.Unique) > 0 {
		b.WriteString(SectionStyle.Render("Distinct values") + "\n")
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		for _, u := range e.Unique {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", u.Column, u.Count, strings.Join(u.Values, ", "))
		}
		tw.Flush()
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// stat formats a descriptive statistic; NaN (e.g. the std of one row)
// prints as the undefined marker.
func stat(v float64) string {
	if math.IsNaN(v) {
		return SubtleStyle.Render("undefined")
	}
	return formatFloat(v)
}

// CorrelationPage renders the correlation matrix as an HTML heatmap.
func CorrelationPage(w io.Writer, c explore.Correlation) error {
	data := make([]opts.HeatMapData, 0, len(c.Columns)*len(c.Columns))
	for i := range c.Columns {
		for j := range c.Columns {
			var v interface{} = "-"
			if !math.IsNaN(c.Values[i][j]) {
				v = math.Round(c.Values[i][j]*1000) / 1000
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Correlation", Width: "900px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: "Pearson correlation"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: c.Columns, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: []string{"#313695", "#f7f7f7", "#a50026"}},
		}),
	)
	hm.SetXAxis(c.Columns).AddSeries("correlation", data)

	page := components.NewPage()
	page.SetPageTitle("churnscope exploration")
	page.AddCharts(hm)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering correlation page: %w", err)
	}
	return nil
}
