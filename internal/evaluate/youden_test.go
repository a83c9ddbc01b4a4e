package evaluate_test

import (
	"testing"

	everrors "github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
	"github.com/paveg/churnscope/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYoudenOptimalCutoff_ReferenceScenario(t *testing.T) {
	curve, err := evaluate.ROC(testutil.ScenarioPredictions())
	require.NoError(t, err)

	result, err := evaluate.YoudenOptimalCutoff(curve)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, result.Cutoff, 1e-12)
	assert.InDelta(t, 0.8, result.IndexValue, 1e-12)
	assert.InDelta(t, 1.0, result.TruePositiveRate, 1e-12)
	assert.InDelta(t, 0.2, result.FalsePositiveRate, 1e-12)
}

func TestYoudenOptimalCutoff_IsArgmax(t *testing.T) {
	curve, err := evaluate.ROC(testutil.RandomPredictions(2000, 21))
	require.NoError(t, err)

	result, err := evaluate.YoudenOptimalCutoff(curve)
	require.NoError(t, err)

	for _, idx := range evaluate.YoudenCurve(curve) {
		assert.GreaterOrEqual(t, result.IndexValue, idx)
	}
}

func TestYoudenOptimalCutoff_TieGoesToFirstPoint(t *testing.T) {
	// Thresholds 0.6 and 0.2 both reach index 0.5; 0.6 comes first in
	// ascending-FPR order.
	predictions := []evaluate.LabeledPrediction{
		{Actual: true, Score: 0.8},
		{Actual: false, Score: 0.6},
		{Actual: true, Score: 0.4},
		{Actual: false, Score: 0.2},
	}

	curve, err := evaluate.ROC(predictions)
	require.NoError(t, err)

	indices := evaluate.YoudenCurve(curve)
	require.Equal(t, []float64{0, 0.5, 0, 0.5, 0}, indices)

	result, err := evaluate.YoudenOptimalCutoff(curve)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, result.Cutoff, 1e-12)
	assert.InDelta(t, 0.5, result.IndexValue, 1e-12)
}

func TestYoudenOptimalCutoff_PerfectClassifier(t *testing.T) {
	predictions := testutil.PerfectPredictions(40)
	curve, err := evaluate.ROC(predictions)
	require.NoError(t, err)

	result, err := evaluate.YoudenOptimalCutoff(curve)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.IndexValue, 1e-12)

	// Applying the cutoff reproduces a perfect split.
	counts, err := evaluate.Confusion(predictions, result.Cutoff)
	require.NoError(t, err)
	assert.Zero(t, counts.FalsePositive)
	assert.Zero(t, counts.FalseNegative)
}

func TestYoudenOptimalCutoff_InsufficientData(t *testing.T) {
	_, err := evaluate.YoudenOptimalCutoff(evaluate.RocCurve{})
	assert.ErrorIs(t, err, everrors.ErrInsufficientData)
}
