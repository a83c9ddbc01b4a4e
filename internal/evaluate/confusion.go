package evaluate

import (
	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/validation"
)

// FromSlices zips parallel label and score slices into predictions.
func FromSlices(actual []bool, scores []float64) ([]LabeledPrediction, error) {
	if err := validation.NewCompoundValidator(
		validation.NewLengthValidator(len(actual), len(scores), "FromSlices", "scores"),
		validation.NewFiniteValidator(scores, "score", "FromSlices"),
	).Validate(); err != nil {
		return nil, err
	}

	out := make([]LabeledPrediction, len(actual))
	for i := range actual {
		out[i] = LabeledPrediction{Actual: actual[i], Score: scores[i]}
	}
	return out, nil
}

// Confusion classifies every prediction with score > cutoff and tallies
// the four quadrants. It fails with an EmptyInput error on an empty slice,
// since every rate derived from all-zero counts would be undefined, and
// with an InvalidInput error on a NaN cutoff. Infinite cutoffs are the ROC
// boundary thresholds and are accepted.
func Confusion(predictions []LabeledPrediction, cutoff float64) (ConfusionCounts, error) {
	if err := validation.ValidateNotEmpty(len(predictions), "Confusion"); err != nil {
		return ConfusionCounts{}, err
	}
	if err := validation.ValidateFinite([]float64{cutoff}, "cutoff", "Confusion"); err != nil {
		return ConfusionCounts{}, err
	}
	return tally(predictions, cutoff), nil
}

func tally(predictions []LabeledPrediction, cutoff float64) ConfusionCounts {
	var c ConfusionCounts
	for _, p := range predictions {
		predicted := p.Score > cutoff
		switch {
		case p.Actual && predicted:
			c.TruePositive++
		case !p.Actual && predicted:
			c.FalsePositive++
		case !p.Actual && !predicted:
			c.TrueNegative++
		default:
			c.FalseNegative++
		}
	}
	return c
}

// Precision returns TP / (TP + FP). With no predicted positives it fails
// with an UndefinedMetric error.
func Precision(c ConfusionCounts) (float64, error) {
	denom := c.PredictedPositives()
	if denom == 0 {
		return 0, errors.NewUndefinedMetricError("Precision", "precision", "no predicted positives")
	}
	return float64(c.TruePositive) / float64(denom), nil
}

// Recall returns TP / (TP + FN). With no actual positives it fails with
// an UndefinedMetric error.
func Recall(c ConfusionCounts) (float64, error) {
	denom := c.ActualPositives()
	if denom == 0 {
		return 0, errors.NewUndefinedMetricError("Recall", "recall", "no actual positives")
	}
	return float64(c.TruePositive) / float64(denom), nil
}

// PrecisionRecall computes both metrics. When either is undefined the
// returned error names it; the other value is still returned if it is
// defined, so callers can report it alongside the marker. Use
// PrecisionRecallMetrics when both should be carried independently.
func PrecisionRecall(c ConfusionCounts) (precision, recall float64, err error) {
	precision, err = Precision(c)
	if err != nil {
		recall, _ = Recall(c)
		return precision, recall, err
	}
	recall, err = Recall(c)
	return precision, recall, err
}

// PrecisionRecallMetrics returns both values as Metrics, each flagged
// undefined on its own.
func PrecisionRecallMetrics(c ConfusionCounts) (precision, recall Metric) {
	return toMetric(Precision(c)), toMetric(Recall(c))
}

// F1 returns the harmonic mean of precision and recall. It is undefined
// when either input is undefined or both are zero.
func F1(c ConfusionCounts) (float64, error) {
	p, r, err := PrecisionRecall(c)
	if err != nil {
		return 0, err
	}
	if p+r == 0 {
		return 0, errors.NewUndefinedMetricError("F1", "f1", "precision and recall are both zero")
	}
	return 2 * p * r / (p + r), nil
}

// Accuracy returns (TP + TN) / total.
func Accuracy(c ConfusionCounts) (float64, error) {
	total := c.Total()
	if total == 0 {
		return 0, errors.NewUndefinedMetricError("Accuracy", "accuracy", "no predictions")
	}
	return float64(c.TruePositive+c.TrueNegative) / float64(total), nil
}

// Classify builds the full metric set for one cutoff.
func Classify(predictions []LabeledPrediction, cutoff float64) (CutoffMetrics, error) {
	counts, err := Confusion(predictions, cutoff)
	if err != nil {
		return CutoffMetrics{}, err
	}
	return Summarize(cutoff, counts), nil
}

// Summarize derives precision, recall, F1 and accuracy from counts
// already tallied at cutoff.
func Summarize(cutoff float64, counts ConfusionCounts) CutoffMetrics {
	precision, recall := PrecisionRecallMetrics(counts)
	return CutoffMetrics{
		Cutoff:    cutoff,
		Counts:    counts,
		Precision: precision,
		Recall:    recall,
		F1:        toMetric(F1(counts)),
		Accuracy:  toMetric(Accuracy(counts)),
	}
}

func toMetric(v float64, err error) Metric {
	if err != nil {
		return Undefined()
	}
	return Defined(v)
}
