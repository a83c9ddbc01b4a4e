package pipeline_test

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paveg/churnscope/internal/config"
	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
	predio "github.com/paveg/churnscope/internal/io"
	"github.com/paveg/churnscope/internal/model"
	"github.com/paveg/churnscope/internal/pipeline"
	"github.com/paveg/churnscope/internal/store"
	"github.com/paveg/churnscope/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const significantModel = "../model/testdata/significant.yaml"

func newPipeline(t *testing.T, cfg config.Config, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.New(cfg, nil, opts...)
	require.NoError(t, err)
	return p
}

func TestEvaluateScenario(t *testing.T) {
	p := newPipeline(t, config.NewConfig())

	res, err := p.Evaluate(context.Background(), "scenario", testutil.ScenarioPredictions())
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, "scenario", s.Model)
	assert.Equal(t, evaluate.ConfusionCounts{TruePositive: 3, FalsePositive: 1, TrueNegative: 4, FalseNegative: 0}, s.Cutoff.Counts)
	assert.InDelta(t, 0.75, s.Cutoff.Precision.Value, 1e-12)
	assert.InDelta(t, 1.0, s.Cutoff.Recall.Value, 1e-12)

	require.NotNil(t, s.Curve)
	assert.InDelta(t, 14.0/15.0, s.Curve.AUC, 1e-12)
	require.NotNil(t, s.Youden)
	assert.Equal(t, 0.4, s.Youden.Cutoff)
	assert.InDelta(t, 0.8, s.Youden.IndexValue, 1e-12)

	assert.Len(t, s.Sweep, len(config.DefaultSweepCutoffs()))
	assert.Empty(t, s.Notes)
	assert.Empty(t, s.Stages, "metrics collection is off by default")
	assert.Empty(t, res.Artifacts)
	assert.Empty(t, s.RunID)
}

func TestEvaluateSingleClassKeepsConfusion(t *testing.T) {
	p := newPipeline(t, config.NewConfig())
	preds := []evaluate.LabeledPrediction{
		{Actual: false, Score: 0.2},
		{Actual: false, Score: 0.7},
		{Actual: false, Score: 0.4},
	}

	res, err := p.Evaluate(context.Background(), "", preds)
	require.NoError(t, err)

	s := res.Summary
	assert.Nil(t, s.Curve)
	assert.Nil(t, s.Youden)
	assert.Equal(t, 1, s.Cutoff.Counts.FalsePositive)
	assert.False(t, s.Cutoff.Recall.Defined)
	require.Len(t, s.Notes, 1)
	assert.Contains(t, s.Notes[0], "ROC curve unavailable")
}

func TestEvaluateEmpty(t *testing.T) {
	p := newPipeline(t, config.NewConfig())
	_, err := p.Evaluate(context.Background(), "", nil)
	assert.ErrorIs(t, err, errors.ErrEmptyInput)
}

func TestEvaluateUninformativeNote(t *testing.T) {
	p := newPipeline(t, config.NewConfig())
	preds := []evaluate.LabeledPrediction{
		{Actual: true, Score: 0.3},
		{Actual: false, Score: 0.3},
	}

	res, err := p.Evaluate(context.Background(), "", preds)
	require.NoError(t, err)
	require.NotNil(t, res.Summary.Curve)
	assert.InDelta(t, 0.5, res.Summary.Curve.AUC, 1e-12)
	require.Len(t, res.Summary.Notes, 1)
	assert.Contains(t, res.Summary.Notes[0], "no better than random")
}

func TestRunWithModelFile(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	cfg := config.NewConfig()
	cfg.MetricsCollection = true
	p := newPipeline(t, cfg, pipeline.WithAllocator(mem.Allocator))

	res, err := p.Run(context.Background(), pipeline.Inputs{
		Customers: testutil.SampleCustomers(200),
		ModelPath: significantModel,
	})
	require.NoError(t, err)

	assert.Equal(t, 200, res.TrainRows+res.TestRows)
	assert.Equal(t, 100, res.TestRows)
	assert.Len(t, res.Predictions, res.TestRows)
	assert.Equal(t, "significant", res.Summary.Model)
	assert.Equal(t, res.TestRows, res.Summary.Cutoff.Counts.Total())

	require.NotNil(t, res.Summary.Curve)
	assert.Greater(t, res.Summary.Curve.AUC, 0.5)

	stages := make([]string, 0, len(res.Summary.Stages))
	for _, st := range res.Summary.Stages {
		stages = append(stages, st.Stage)
		assert.False(t, st.Failed)
	}
	assert.Equal(t, []string{"split", "predict", "confusion", "roc", "sweep"}, stages)
}

func TestRunFromCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "churn.csv")
	writeFile(t, path, testutil.RawChurnCSV(testutil.SampleCustomers(60)))

	cfg := config.NewConfig()
	cfg.TestFraction = 0.25
	p := newPipeline(t, cfg)

	res, err := p.Run(context.Background(), pipeline.Inputs{
		DataPath:  path,
		ModelPath: significantModel,
		ModelName: "custom name",
	})
	require.NoError(t, err)
	assert.Equal(t, 15, res.TestRows)
	assert.Equal(t, "custom name", res.Summary.Model)
}

func TestRunWithPredictor(t *testing.T) {
	p := newPipeline(t, config.NewConfig())

	res, err := p.Run(context.Background(), pipeline.Inputs{
		Customers: testutil.SampleCustomers(40),
		Predictor: model.Constant(0.9),
		ModelName: "always churn",
	})
	require.NoError(t, err)

	c := res.Summary.Cutoff.Counts
	assert.Zero(t, c.TrueNegative+c.FalseNegative)
	assert.Equal(t, res.TestRows, c.PredictedPositives())
}

func TestRunErrors(t *testing.T) {
	p := newPipeline(t, config.NewConfig())
	ctx := context.Background()

	_, err := p.Run(ctx, pipeline.Inputs{ModelPath: significantModel})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = p.Run(ctx, pipeline.Inputs{Customers: testutil.SampleCustomers(10)})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = p.Run(ctx, pipeline.Inputs{
		Customers: testutil.SampleCustomers(10),
		ModelPath: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	assert.Error(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Run(canceled, pipeline.Inputs{
		Customers: testutil.SampleCustomers(10),
		ModelPath: significantModel,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Cutoff = config.Float64(2)
	_, err := pipeline.New(cfg, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestNewRejectsNaNCutoff(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Cutoff = config.Float64(math.NaN())
	_, err := pipeline.New(cfg, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	cfg = config.NewConfig()
	cfg.SweepCutoffs = []float64{0.5, math.NaN()}
	_, err = pipeline.New(cfg, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestEvaluateZeroCutoff(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Cutoff = config.Float64(0)
	p := newPipeline(t, cfg)
	assert.Equal(t, 0.0, p.Config().ClassificationCutoff())

	res, err := p.Evaluate(context.Background(), "scenario", testutil.ScenarioPredictions())
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Summary.Cutoff.Cutoff)
	assert.Equal(t, evaluate.ConfusionCounts{TruePositive: 3, FalsePositive: 5, TrueNegative: 0, FalseNegative: 0}, res.Summary.Cutoff.Counts)
}

func TestStageTimingsArePerCall(t *testing.T) {
	cfg := config.NewConfig()
	cfg.MetricsCollection = true
	p := newPipeline(t, cfg)
	ctx := context.Background()

	first, err := p.Evaluate(ctx, "first", testutil.ScenarioPredictions())
	require.NoError(t, err)
	second, err := p.Evaluate(ctx, "second", testutil.ScenarioPredictions())
	require.NoError(t, err)

	assert.Len(t, first.Summary.Stages, 3)
	assert.Len(t, second.Summary.Stages, 3)

	run, err := p.Run(ctx, pipeline.Inputs{
		Customers: testutil.SampleCustomers(40),
		ModelPath: significantModel,
	})
	require.NoError(t, err)

	stages := make([]string, 0, len(run.Summary.Stages))
	for _, st := range run.Summary.Stages {
		stages = append(stages, st.Stage)
	}
	assert.Equal(t, []string{"split", "predict", "confusion", "roc", "sweep"}, stages)
}

func TestNewFillsDefaults(t *testing.T) {
	p, err := pipeline.New(config.Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCutoff, p.Config().ClassificationCutoff())
	assert.Equal(t, config.DefaultFeatureSet, p.Config().FeatureSet)
}

func TestEvaluateWritesArtifacts(t *testing.T) {
	cfg := config.NewConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	p := newPipeline(t, cfg)

	preds := testutil.ScenarioPredictions()
	res, err := p.Evaluate(context.Background(), "scenario", preds)
	require.NoError(t, err)

	var names []string
	for _, a := range res.Artifacts {
		assert.FileExists(t, a)
		names = append(names, filepath.Base(a))
	}
	assert.ElementsMatch(t, []string{
		pipeline.PredictionsFile, pipeline.ROCPlotFile, pipeline.YoudenPlotFile, pipeline.HTMLReportFile,
	}, names)

	back, err := predio.ReadFile(filepath.Join(cfg.OutputDir, pipeline.PredictionsFile), nil)
	require.NoError(t, err)
	assert.Equal(t, preds, back)

	html := readFile(t, filepath.Join(cfg.OutputDir, pipeline.HTMLReportFile))
	assert.True(t, strings.Contains(html, "echarts"))
}

func TestEvaluateRecordsHistory(t *testing.T) {
	cfg := config.NewConfig()
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history.db")
	p := newPipeline(t, cfg)

	res, err := p.Evaluate(context.Background(), "scenario", testutil.ScenarioPredictions())
	require.NoError(t, err)
	require.NotEmpty(t, res.Summary.RunID)

	db, err := store.Open(cfg.HistoryPath)
	require.NoError(t, err)
	defer db.Close()

	run, err := db.GetRun(context.Background(), res.Summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, "scenario", run.Model)
	assert.Equal(t, 8, run.Rows)
	require.NotNil(t, run.AUC)
	assert.InDelta(t, 14.0/15.0, *run.AUC, 1e-12)
	require.NotNil(t, run.YoudenCutoff)
	assert.Equal(t, 0.4, *run.YoudenCutoff)
	assert.Contains(t, string(run.ParamsJSON), `"cutoff":0.5`)
}
