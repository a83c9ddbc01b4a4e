// Package churnscope evaluates binary churn classifiers: confusion
// counts, precision and recall at a cutoff, the ROC curve with its AUC,
// and the Youden-optimal cutoff.
//
// This package is the public API. The classification rule is strict:
// a prediction is positive iff its score is greater than the cutoff.
package churnscope

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
	predio "github.com/paveg/churnscope/internal/io"
)

// Core result types.
type (
	// LabeledPrediction pairs a true label with a model score.
	LabeledPrediction = evaluate.LabeledPrediction
	// ConfusionCounts holds TP, FP, TN and FN for one cutoff.
	ConfusionCounts = evaluate.ConfusionCounts
	// RocPoint is one operating point of a ROC curve.
	RocPoint = evaluate.RocPoint
	// RocCurve is a ROC curve in ascending false positive rate order.
	RocCurve = evaluate.RocCurve
	// YoudenResult is the cutoff maximizing sensitivity + specificity - 1.
	YoudenResult = evaluate.YoudenResult
	// Metric is a value that may be undefined.
	Metric = evaluate.Metric
	// CutoffMetrics is the full metric set at one cutoff.
	CutoffMetrics = evaluate.CutoffMetrics
	// SweepOptions controls parallelism of Sweep.
	SweepOptions = evaluate.SweepOptions
	// EvalError is the error type returned by every operation.
	EvalError = errors.EvalError
)

// Sentinel errors for errors.Is.
var (
	ErrEmptyInput       = errors.ErrEmptyInput
	ErrInsufficientData = errors.ErrInsufficientData
	ErrUndefinedMetric  = errors.ErrUndefinedMetric
	ErrInvalidInput     = errors.ErrInvalidInput
	ErrInvalidRecord    = errors.ErrInvalidRecord
)

// FromSlices zips parallel label and score slices.
func FromSlices(actual []bool, scores []float64) ([]LabeledPrediction, error) {
	return evaluate.FromSlices(actual, scores)
}

// Confusion tallies the confusion matrix at cutoff.
func Confusion(predictions []LabeledPrediction, cutoff float64) (ConfusionCounts, error) {
	return evaluate.Confusion(predictions, cutoff)
}

// Precision returns TP / (TP + FP), or an UndefinedMetric error when no
// prediction is positive.
func Precision(counts ConfusionCounts) (float64, error) {
	return evaluate.Precision(counts)
}

// Recall returns TP / (TP + FN), or an UndefinedMetric error when no
// actual positive exists.
func Recall(counts ConfusionCounts) (float64, error) {
	return evaluate.Recall(counts)
}

// PrecisionRecall returns both metrics. The first undefined one is reported
// as the error.
func PrecisionRecall(counts ConfusionCounts) (precision, recall float64, err error) {
	return evaluate.PrecisionRecall(counts)
}

// Classify returns every metric at cutoff, carrying undefined values as
// undefined Metrics instead of errors.
func Classify(predictions []LabeledPrediction, cutoff float64) (CutoffMetrics, error) {
	return evaluate.Classify(predictions, cutoff)
}

// ROC builds the ROC curve from every distinct score.
func ROC(predictions []LabeledPrediction) (RocCurve, error) {
	return evaluate.ROC(predictions)
}

// AUC integrates TPR over FPR with the trapezoidal rule.
func AUC(curve RocCurve) (float64, error) {
	return evaluate.AUC(curve)
}

// YoudenOptimalCutoff returns the first point of curve with the largest
// Youden index.
func YoudenOptimalCutoff(curve RocCurve) (YoudenResult, error) {
	return evaluate.YoudenOptimalCutoff(curve)
}

// Sweep evaluates several cutoffs, in parallel for large inputs.
func Sweep(ctx context.Context, predictions []LabeledPrediction, cutoffs []float64, opts SweepOptions) ([]CutoffMetrics, error) {
	return evaluate.Sweep(ctx, predictions, cutoffs, opts)
}

// ReadPredictions loads a CSV, JSON, JSON-lines or Parquet prediction
// file, chosen by extension.
func ReadPredictions(path string) ([]LabeledPrediction, error) {
	return predio.ReadFile(path, memory.DefaultAllocator)
}

// WritePredictions writes predictions in the format named by path's
// extension.
func WritePredictions(path string, predictions []LabeledPrediction) error {
	return predio.WriteFile(path, predictions, memory.DefaultAllocator)
}
