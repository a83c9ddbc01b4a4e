// Package report renders evaluation results: a terminal text report, PNG
// plots of the ROC and Youden curves, and an interactive HTML page.
//
// Undefined metrics are always rendered with evaluate.UndefinedMarker,
// never as a number.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/paveg/churnscope/internal/evaluate"
	"github.com/paveg/churnscope/internal/monitoring"
)

// Summary is everything one evaluation produced.
type Summary struct {
	Model   string
	Cutoff  evaluate.CutoffMetrics
	Curve   *evaluate.RocCurve
	Youden  *evaluate.YoudenResult
	Sweep   []evaluate.CutoffMetrics
	Stages  []monitoring.StageMetrics
	Notes   []string
	RunID   string
	Created time.Time
}

// Text writes a human-readable report to w.
func Text(w io.Writer, s Summary) error {
	var b strings.Builder

	title := "Churn model evaluation"
	if s.Model != "" {
		title += ": " + s.Model
	}
	b.WriteString(TitleStyle.Render(title) + "\n")
	if s.RunID != "" {
		b.WriteString(SubtleStyle.Render("run "+s.RunID) + "\n")
	}

	c := s.Cutoff.Counts
	fmt.Fprintf(&b, "predictions: %d (churned %d, stayed %d)\n\n",
		c.Total(), c.ActualPositives(), c.ActualNegatives())

	b.WriteString(SectionStyle.Render(fmt.Sprintf("Confusion matrix at cutoff %s", formatFloat(s.Cutoff.Cutoff))) + "\n")
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tpredicted churn\tpredicted stay")
	fmt.Fprintf(tw, "actual churn\t%d\t%d\n", c.TruePositive, c.FalseNegative)
	fmt.Fprintf(tw, "actual stay\t%d\t%d\n", c.FalsePositive, c.TrueNegative)
	tw.Flush()
	b.WriteString("\n")

	tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "precision\t%s\n", metric(s.Cutoff.Precision))
	fmt.Fprintf(tw, "recall\t%s\n", metric(s.Cutoff.Recall))
	fmt.Fprintf(tw, "f1\t%s\n", metric(s.Cutoff.F1))
	fmt.Fprintf(tw, "accuracy\t%s\n", metric(s.Cutoff.Accuracy))
	tw.Flush()
	b.WriteString("\n")

	b.WriteString(SectionStyle.Render("ROC") + "\n")
	if s.Curve == nil {
		b.WriteString(WarningStyle.Render("ROC curve unavailable") + "\n")
	} else {
		verdict := "better than random"
		if !s.Curve.BetterThanRandom() {
			verdict = WarningStyle.Render("no better than random")
		}
		fmt.Fprintf(&b, "AUC %s (%s), %d points\n", formatFloat(s.Curve.AUC), verdict, len(s.Curve.Points))
	}
	if s.Youden != nil {
		fmt.Fprintf(&b, "Youden cutoff %s (index %s, tpr %s, fpr %s)\n",
			formatFloat(s.Youden.Cutoff), formatFloat(s.Youden.IndexValue),
			formatFloat(s.Youden.TruePositiveRate), formatFloat(s.Youden.FalsePositiveRate))
	}

	if len(s.Sweep) > 0 {
		b.WriteString("\n" + SectionStyle.Render("Cutoff sweep") + "\n")
		tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "cutoff\ttp\tfp\ttn\tfn\tprecision\trecall\tf1\taccuracy\t")
		for _, m := range s.Sweep {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t\n",
				formatFloat(m.Cutoff), m.Counts.TruePositive, m.Counts.FalsePositive,
				m.Counts.TrueNegative, m.Counts.FalseNegative,
				metric(m.Precision), metric(m.Recall), metric(m.F1), metric(m.Accuracy))
		}
		tw.Flush()
	}

	if len(s.Stages) > 0 {
		b.WriteString("\n" + SectionStyle.Render("Stages") + "\n")
		tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "stage\trows\tduration\tstatus")
		for _, st := range s.Stages {
			status := "ok"
			if st.Failed {
				status = WarningStyle.Render("failed")
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", st.Stage, st.RowsProcessed, st.Duration.Round(time.Microsecond), status)
		}
		tw.Flush()
	}

	for _, n := range s.Notes {
		b.WriteString(WarningStyle.Render("note: "+n) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func metric(m evaluate.Metric) string {
	if !m.Defined {
		return WarningStyle.Render(m.String())
	}
	return m.String()
}

func formatFloat(v float64) string {
	return evaluate.Defined(v).String()
}
