package evaluate_test

import (
	"math"
	"testing"

	everrors "github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
	"github.com/paveg/churnscope/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestROC_ReferenceScenario(t *testing.T) {
	curve, err := evaluate.ROC(testutil.ScenarioPredictions())
	require.NoError(t, err)

	expected := []evaluate.RocPoint{
		{Threshold: 0.9, TruePositiveRate: 0, FalsePositiveRate: 0},
		{Threshold: 0.8, TruePositiveRate: 1.0 / 3, FalsePositiveRate: 0},
		{Threshold: 0.7, TruePositiveRate: 2.0 / 3, FalsePositiveRate: 0},
		{Threshold: 0.6, TruePositiveRate: 2.0 / 3, FalsePositiveRate: 0.2},
		{Threshold: 0.4, TruePositiveRate: 1, FalsePositiveRate: 0.2},
		{Threshold: 0.3, TruePositiveRate: 1, FalsePositiveRate: 0.4},
		{Threshold: 0.2, TruePositiveRate: 1, FalsePositiveRate: 0.6},
		{Threshold: 0.1, TruePositiveRate: 1, FalsePositiveRate: 0.8},
		{Threshold: math.Inf(-1), TruePositiveRate: 1, FalsePositiveRate: 1},
	}

	require.Len(t, curve.Points, len(expected))
	for i, want := range expected {
		got := curve.Points[i]
		assert.Equal(t, want.Threshold, got.Threshold, "point %d", i)
		assert.InDelta(t, want.TruePositiveRate, got.TruePositiveRate, 1e-12, "point %d", i)
		assert.InDelta(t, want.FalsePositiveRate, got.FalsePositiveRate, 1e-12, "point %d", i)
	}

	// 14 of the 15 positive/negative pairs are ranked correctly.
	assert.InDelta(t, 14.0/15.0, curve.AUC, 1e-12)
	assert.True(t, curve.BetterThanRandom())
}

func TestROC_SpansUnitSquare(t *testing.T) {
	curve, err := evaluate.ROC(testutil.RandomPredictions(300, 3))
	require.NoError(t, err)

	first := curve.Points[0]
	last := curve.Points[len(curve.Points)-1]
	assert.Zero(t, first.TruePositiveRate)
	assert.Zero(t, first.FalsePositiveRate)
	assert.InDelta(t, 1.0, last.TruePositiveRate, 1e-12)
	assert.InDelta(t, 1.0, last.FalsePositiveRate, 1e-12)
	assert.True(t, math.IsInf(last.Threshold, -1))
}

func TestROC_MonotoneAsCutoffDecreases(t *testing.T) {
	curve, err := evaluate.ROC(testutil.RandomPredictions(1000, 5))
	require.NoError(t, err)

	for i := 1; i < len(curve.Points); i++ {
		prev, cur := curve.Points[i-1], curve.Points[i]
		assert.Less(t, cur.Threshold, prev.Threshold, "thresholds strictly descending at %d", i)
		assert.GreaterOrEqual(t, cur.TruePositiveRate, prev.TruePositiveRate, "tpr at %d", i)
		assert.GreaterOrEqual(t, cur.FalsePositiveRate, prev.FalsePositiveRate, "fpr at %d", i)
	}
}

func TestROC_PointsAgreeWithConfusion(t *testing.T) {
	predictions := testutil.RandomPredictions(200, 9)
	curve, err := evaluate.ROC(predictions)
	require.NoError(t, err)

	for _, p := range curve.Points {
		counts, err := evaluate.Confusion(predictions, p.Threshold)
		require.NoError(t, err)
		tpr := float64(counts.TruePositive) / float64(counts.ActualPositives())
		fpr := float64(counts.FalsePositive) / float64(counts.ActualNegatives())
		assert.InDelta(t, tpr, p.TruePositiveRate, 1e-12, "threshold %g", p.Threshold)
		assert.InDelta(t, fpr, p.FalsePositiveRate, 1e-12, "threshold %g", p.Threshold)
	}
}

func TestROC_DuplicateScoresCollapse(t *testing.T) {
	predictions := []evaluate.LabeledPrediction{
		{Actual: true, Score: 0.5},
		{Actual: false, Score: 0.5},
		{Actual: true, Score: 0.5},
		{Actual: false, Score: 0.5},
	}

	curve, err := evaluate.ROC(predictions)
	require.NoError(t, err)

	require.Len(t, curve.Points, 2)
	assert.Equal(t, evaluate.RocPoint{Threshold: 0.5}, curve.Points[0])
	assert.InDelta(t, 0.5, curve.AUC, 1e-12)
	assert.False(t, curve.BetterThanRandom())
}

func TestROC_Errors(t *testing.T) {
	tests := []struct {
		name        string
		predictions []evaluate.LabeledPrediction
		target      error
	}{
		{"empty", nil, everrors.ErrEmptyInput},
		{"only positives", []evaluate.LabeledPrediction{{Actual: true, Score: 0.4}, {Actual: true, Score: 0.9}}, everrors.ErrInsufficientData},
		{"only negatives", []evaluate.LabeledPrediction{{Actual: false, Score: 0.4}}, everrors.ErrInsufficientData},
		{"NaN score", []evaluate.LabeledPrediction{{Actual: true, Score: math.NaN()}, {Actual: false, Score: 0.1}}, everrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluate.ROC(tt.predictions)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestROC_DoesNotMutateInput(t *testing.T) {
	predictions := testutil.ScenarioPredictions()
	predictions[0], predictions[7] = predictions[7], predictions[0]
	snapshot := append([]evaluate.LabeledPrediction(nil), predictions...)

	_, err := evaluate.ROC(predictions)
	require.NoError(t, err)
	assert.Equal(t, snapshot, predictions)
}

func TestAUC_PerfectClassifier(t *testing.T) {
	curve, err := evaluate.ROC(testutil.PerfectPredictions(100))
	require.NoError(t, err)

	auc, err := evaluate.AUC(curve)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, auc, 1e-12)
}

func TestAUC_InvertedClassifier(t *testing.T) {
	predictions := testutil.PerfectPredictions(50)
	for i := range predictions {
		predictions[i].Actual = !predictions[i].Actual
	}

	curve, err := evaluate.ROC(predictions)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, curve.AUC, 1e-12)
	assert.False(t, curve.BetterThanRandom(), "AUC below 0.5 is no better than random")
}

func TestAUC_RandomScoresNearHalf(t *testing.T) {
	curve, err := evaluate.ROC(testutil.RandomPredictions(20000, 42))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, curve.AUC, 0.03)
}

func TestAUC_Idempotent(t *testing.T) {
	curve, err := evaluate.ROC(testutil.RandomPredictions(500, 8))
	require.NoError(t, err)

	first, err := evaluate.AUC(curve)
	require.NoError(t, err)
	second, err := evaluate.AUC(curve)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, curve.AUC, first)
}

func TestAUC_RepeatedFalsePositiveRates(t *testing.T) {
	curve := evaluate.RocCurve{Points: []evaluate.RocPoint{
		{TruePositiveRate: 0, FalsePositiveRate: 0},
		{TruePositiveRate: 0.5, FalsePositiveRate: 0},
		{TruePositiveRate: 1, FalsePositiveRate: 0},
		{TruePositiveRate: 1, FalsePositiveRate: 1},
	}}

	auc, err := evaluate.AUC(curve)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, auc, 1e-12)
}

func TestAUC_Errors(t *testing.T) {
	_, err := evaluate.AUC(evaluate.RocCurve{Points: []evaluate.RocPoint{{}}})
	assert.ErrorIs(t, err, everrors.ErrInsufficientData)

	_, err = evaluate.AUC(evaluate.RocCurve{Points: []evaluate.RocPoint{
		{FalsePositiveRate: 0.5},
		{FalsePositiveRate: 0.1},
	}})
	assert.ErrorIs(t, err, everrors.ErrInvalidInput)
}
