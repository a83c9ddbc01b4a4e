// Package evaluate turns a model's predicted probabilities and the true
// labels into classification-quality measures: confusion counts,
// precision and recall at a cutoff, the ROC curve with its AUC, and the
// Youden's-index-optimal cutoff.
//
// Every function is pure. Inputs are never mutated and no state is kept
// between calls, so the package is safe for concurrent use.
//
// Classification rule: a prediction is positive iff score > cutoff.
// Ties at exactly the cutoff are negative.
package evaluate

import (
	"encoding/json"
	"math"
	"strconv"
)

// UndefinedMarker is what reports print in place of an undefined metric.
const UndefinedMarker = "undefined"

// LabeledPrediction pairs the ground-truth label with a model score.
type LabeledPrediction struct {
	Actual bool    `json:"actual" csv:"actual"`
	Score  float64 `json:"score" csv:"score"`
}

// ConfusionCounts holds the four confusion-matrix quadrants for one cutoff.
// The counts always sum to the number of predictions they were derived from.
type ConfusionCounts struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
}

// Total returns the number of predictions the counts cover.
func (c ConfusionCounts) Total() int {
	return c.TruePositive + c.FalsePositive + c.TrueNegative + c.FalseNegative
}

// ActualPositives returns TP + FN.
func (c ConfusionCounts) ActualPositives() int {
	return c.TruePositive + c.FalseNegative
}

// ActualNegatives returns FP + TN.
func (c ConfusionCounts) ActualNegatives() int {
	return c.FalsePositive + c.TrueNegative
}

// PredictedPositives returns TP + FP.
func (c ConfusionCounts) PredictedPositives() int {
	return c.TruePositive + c.FalsePositive
}

// Add returns the quadrant-wise sum of c and o.
func (c ConfusionCounts) Add(o ConfusionCounts) ConfusionCounts {
	return ConfusionCounts{
		TruePositive:  c.TruePositive + o.TruePositive,
		FalsePositive: c.FalsePositive + o.FalsePositive,
		TrueNegative:  c.TrueNegative + o.TrueNegative,
		FalseNegative: c.FalseNegative + o.FalseNegative,
	}
}

// RocPoint is one operating point of the ROC curve. Threshold is the
// cutoff that produced it under the strict score > cutoff rule.
type RocPoint struct {
	Threshold         float64 `json:"threshold"`
	TruePositiveRate  float64 `json:"tpr"`
	FalsePositiveRate float64 `json:"fpr"`
}

type rocPointJSON struct {
	Threshold         json.RawMessage `json:"threshold"`
	TruePositiveRate  float64         `json:"tpr"`
	FalsePositiveRate float64         `json:"fpr"`
}

// MarshalJSON writes a non-finite threshold (the final -Inf point) as a
// string such as "-Inf", since JSON numbers cannot hold infinities.
func (p RocPoint) MarshalJSON() ([]byte, error) {
	var threshold []byte
	if math.IsInf(p.Threshold, 0) || math.IsNaN(p.Threshold) {
		threshold = strconv.AppendQuote(nil, strconv.FormatFloat(p.Threshold, 'g', -1, 64))
	} else {
		threshold = strconv.AppendFloat(nil, p.Threshold, 'g', -1, 64)
	}
	return json.Marshal(rocPointJSON{
		Threshold:         threshold,
		TruePositiveRate:  p.TruePositiveRate,
		FalsePositiveRate: p.FalsePositiveRate,
	})
}

// UnmarshalJSON accepts thresholds written by MarshalJSON.
func (p *RocPoint) UnmarshalJSON(data []byte) error {
	var raw rocPointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.TruePositiveRate = raw.TruePositiveRate
	p.FalsePositiveRate = raw.FalsePositiveRate

	var text string
	if err := json.Unmarshal(raw.Threshold, &text); err == nil {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return err
		}
		p.Threshold = v
		return nil
	}
	return json.Unmarshal(raw.Threshold, &p.Threshold)
}

// TrueNegativeRate returns 1 - FPR (specificity).
func (p RocPoint) TrueNegativeRate() float64 {
	return 1 - p.FalsePositiveRate
}

// YoudenIndex returns sensitivity + specificity - 1 at this point.
func (p RocPoint) YoudenIndex() float64 {
	return p.TruePositiveRate + (1 - p.FalsePositiveRate) - 1
}

// RocCurve is the ROC curve ordered by ascending false positive rate
// (equivalently, descending threshold), with its area precomputed.
type RocCurve struct {
	Points []RocPoint `json:"points"`
	AUC    float64    `json:"auc"`
}

// BetterThanRandom reports whether the curve's AUC exceeds 0.5.
// An AUC at or below 0.5 is legal but means the scores carry no ranking signal.
func (c RocCurve) BetterThanRandom() bool {
	return c.AUC > 0.5
}

// Thresholds returns the curve's thresholds in curve order.
func (c RocCurve) Thresholds() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Threshold
	}
	return out
}

// Rates returns the FPR and TPR columns in curve order.
func (c RocCurve) Rates() (fpr, tpr []float64) {
	fpr = make([]float64, len(c.Points))
	tpr = make([]float64, len(c.Points))
	for i, p := range c.Points {
		fpr[i] = p.FalsePositiveRate
		tpr[i] = p.TruePositiveRate
	}
	return fpr, tpr
}

// YoudenResult is the Youden-optimal operating point.
type YoudenResult struct {
	Cutoff            float64 `json:"cutoff"`
	IndexValue        float64 `json:"index_value"`
	TruePositiveRate  float64 `json:"tpr"`
	FalsePositiveRate float64 `json:"fpr"`
}

// Metric is a scalar that may be undefined. Reports must render an
// undefined metric with UndefinedMarker, never as zero.
type Metric struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// Defined wraps a computed value.
func Defined(v float64) Metric {
	return Metric{Value: v, Defined: true}
}

// Undefined is the metric for a zero denominator.
func Undefined() Metric {
	return Metric{}
}

// String formats the metric with four decimals or the undefined marker.
func (m Metric) String() string {
	if !m.Defined {
		return UndefinedMarker
	}
	return strconv.FormatFloat(m.Value, 'f', 4, 64)
}

// CutoffMetrics summarizes classification quality at a single cutoff.
type CutoffMetrics struct {
	Cutoff    float64         `json:"cutoff"`
	Counts    ConfusionCounts `json:"counts"`
	Precision Metric          `json:"precision"`
	Recall    Metric          `json:"recall"`
	F1        Metric          `json:"f1"`
	Accuracy  Metric          `json:"accuracy"`
}
