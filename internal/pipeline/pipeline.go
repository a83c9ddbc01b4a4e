// Package pipeline wires the churnscope stages together: load customers,
// split, encode, score with a fitted model, evaluate, then optionally
// write plots, an HTML report and a history record.
package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/churnscope/internal/config"
	"github.com/paveg/churnscope/internal/dataset"
	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
	predio "github.com/paveg/churnscope/internal/io"
	"github.com/paveg/churnscope/internal/model"
	"github.com/paveg/churnscope/internal/monitoring"
	"github.com/paveg/churnscope/internal/report"
	"github.com/paveg/churnscope/internal/store"
)

// Output file names written under Config.OutputDir.
const (
	ROCPlotFile     = "roc.png"
	YoudenPlotFile  = "youden.png"
	HTMLReportFile  = "report.html"
	PredictionsFile = "predictions.parquet"
)

// Inputs names what to evaluate. Customers and Predictor take precedence
// over DataPath and ModelPath when set.
type Inputs struct {
	DataPath  string
	ModelPath string

	Customers []dataset.Customer
	Predictor model.Predictor
	// Features used to encode rows for Predictor. Defaults to the model
	// file's features, then the configured preset.
	Features  []dataset.Feature
	ModelName string
}

// Result is what a run produced.
type Result struct {
	Summary     report.Summary
	Predictions []evaluate.LabeledPrediction
	TrainRows   int
	TestRows    int
	Artifacts   []string
}

// Pipeline runs evaluations with a fixed configuration.
type Pipeline struct {
	cfg     config.Config
	logger  *slog.Logger
	mem     memory.Allocator
	metrics *monitoring.MetricsCollector
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithAllocator sets the Arrow allocator used for encoding and Parquet IO.
func WithAllocator(mem memory.Allocator) Option {
	return func(p *Pipeline) { p.mem = mem }
}

// WithCollector replaces the stage metrics collector. Nil is ignored.
// The collector is cleared at the start of every Run and Evaluate.
func WithCollector(mc *monitoring.MetricsCollector) Option {
	return func(p *Pipeline) {
		if mc != nil {
			p.metrics = mc
		}
	}
}

// New validates cfg (after filling defaults) and returns a Pipeline.
// A nil logger discards log output.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewValidationError("pipeline.New", "config", err.Error())
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Pipeline{
		cfg:     cfg,
		logger:  logger,
		mem:     memory.DefaultAllocator,
		metrics: monitoring.NewMetricsCollector(cfg.MetricsCollection),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the resolved configuration.
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// Run loads customers, holds out the test split, scores it and evaluates
// the result. Stage timings in the result cover this call only.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	p.metrics.Clear()

	customers, err := p.loadCustomers(in)
	if err != nil {
		return nil, err
	}

	predictor, name, features, err := p.loadModel(in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var train, test []dataset.Customer
	err = p.metrics.RecordStage("split", len(customers), func() error {
		var splitErr error
		train, test, splitErr = dataset.Split(customers, p.cfg.TestFraction, p.cfg.SplitSeed)
		return splitErr
	})
	if err != nil {
		return nil, fmt.Errorf("splitting customers: %w", err)
	}
	p.logger.Info("split customers",
		"train", len(train), "test", len(test),
		"test_fraction", p.cfg.TestFraction, "seed", p.cfg.SplitSeed)

	var scores []float64
	err = p.metrics.RecordStage("predict", len(test), func() error {
		rec, encErr := dataset.Encode(test, features, p.mem)
		if encErr != nil {
			return encErr
		}
		defer rec.Release()

		var predErr error
		scores, predErr = predictor.Predict(rec)
		return predErr
	})
	if err != nil {
		return nil, fmt.Errorf("scoring test rows: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	predictions, err := evaluate.FromSlices(dataset.Labels(test), scores)
	if err != nil {
		return nil, err
	}

	res, err := p.runEvaluation(ctx, name, predictions)
	if err != nil {
		return nil, err
	}
	res.TrainRows = len(train)
	res.TestRows = len(test)
	return res, nil
}

func (p *Pipeline) loadCustomers(in Inputs) ([]dataset.Customer, error) {
	if len(in.Customers) > 0 {
		return in.Customers, nil
	}
	if in.DataPath == "" {
		return nil, errors.NewInvalidInputError("pipeline.Run", "no customer data given")
	}

	var customers []dataset.Customer
	err := p.metrics.RecordStage("load", 0, func() error {
		var loadErr error
		customers, loadErr = dataset.LoadCSVFile(in.DataPath)
		return loadErr
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("loaded customers", "path", in.DataPath, "rows", len(customers))
	return customers, nil
}

func (p *Pipeline) loadModel(in Inputs) (model.Predictor, string, []dataset.Feature, error) {
	predictor := in.Predictor
	name := in.ModelName
	features := in.Features

	if predictor == nil {
		if in.ModelPath == "" {
			return nil, "", nil, errors.NewInvalidInputError("pipeline.Run", "no model given")
		}
		lr, err := model.LoadLogistic(in.ModelPath)
		if err != nil {
			return nil, "", nil, err
		}
		predictor = lr
		if name == "" {
			name = lr.Name
		}
		if len(features) == 0 && len(lr.Features) > 0 {
			if features, err = lr.DatasetFeatures(); err != nil {
				return nil, "", nil, err
			}
		}
		p.logger.Debug("loaded model", "path", in.ModelPath, "terms", len(lr.Coefficients))
	}

	if name == "" && in.ModelPath != "" {
		name = strings.TrimSuffix(filepath.Base(in.ModelPath), filepath.Ext(in.ModelPath))
	}
	if len(features) == 0 {
		preset, err := dataset.Preset(p.cfg.FeatureSet)
		if err != nil {
			return nil, "", nil, err
		}
		features = preset
	}
	return predictor, name, features, nil
}

// Evaluate computes every metric for predictions and writes the
// configured outputs. An ROC curve that cannot be built because only one
// class is present is reported as a note, not an error. Stage timings in
// the result cover this call only.
func (p *Pipeline) Evaluate(ctx context.Context, name string, predictions []evaluate.LabeledPrediction) (*Result, error) {
	p.metrics.Clear()
	return p.runEvaluation(ctx, name, predictions)
}

func (p *Pipeline) runEvaluation(ctx context.Context, name string, predictions []evaluate.LabeledPrediction) (*Result, error) {
	summary := report.Summary{Model: name, Created: time.Now()}
	n := len(predictions)

	err := p.metrics.RecordStage("confusion", n, func() error {
		var classifyErr error
		summary.Cutoff, classifyErr = evaluate.Classify(predictions, p.cfg.ClassificationCutoff())
		return classifyErr
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("classified predictions",
		"cutoff", p.cfg.ClassificationCutoff(),
		"precision", summary.Cutoff.Precision.String(),
		"recall", summary.Cutoff.Recall.String())

	err = p.metrics.RecordStage("roc", n, func() error {
		curve, rocErr := evaluate.ROC(predictions)
		if rocErr != nil {
			return rocErr
		}
		summary.Curve = &curve

		youden, youdenErr := evaluate.YoudenOptimalCutoff(curve)
		if youdenErr != nil {
			return youdenErr
		}
		summary.Youden = &youden
		return nil
	})
	switch {
	case stderrors.Is(err, errors.ErrInsufficientData):
		p.logger.Warn("ROC curve unavailable", "error", err)
		summary.Notes = append(summary.Notes, "ROC curve unavailable: "+err.Error())
	case err != nil:
		return nil, err
	default:
		p.logger.Info("built ROC curve",
			"points", len(summary.Curve.Points), "auc", summary.Curve.AUC,
			"youden_cutoff", summary.Youden.Cutoff)
		if !summary.Curve.BetterThanRandom() {
			summary.Notes = append(summary.Notes, "AUC is at or below 0.5: scores are no better than random")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(p.cfg.SweepCutoffs) > 0 {
		record := p.metrics.RecordStage
		if n >= p.cfg.ParallelThreshold {
			record = p.metrics.RecordParallelStage
		}
		err = record("sweep", n, func() error {
			var sweepErr error
			summary.Sweep, sweepErr = evaluate.Sweep(ctx, predictions, p.cfg.SweepCutoffs, evaluate.SweepOptions{
				ParallelThreshold: p.cfg.ParallelThreshold,
				Workers:           p.cfg.Workers(),
			})
			return sweepErr
		})
		if err != nil {
			return nil, err
		}
	}

	res := &Result{Predictions: predictions}

	if p.cfg.OutputDir != "" {
		artifacts, err := p.writeArtifacts(summary, predictions)
		res.Artifacts = artifacts
		if err != nil {
			return nil, err
		}
	}

	if p.cfg.HistoryPath != "" {
		runID, err := p.saveHistory(ctx, summary, n)
		if err != nil {
			return nil, err
		}
		summary.RunID = runID
	}

	if p.metrics.IsEnabled() {
		summary.Stages = p.metrics.GetMetrics()
		stats := p.metrics.GetSummary()
		p.logger.Debug("stage timings",
			"stages", stats.TotalStages, "failed", stats.FailedStages,
			"total", stats.TotalDuration, "slowest", stats.SlowestStage)
	}
	res.Summary = summary
	return res, nil
}

func (p *Pipeline) writeArtifacts(s report.Summary, predictions []evaluate.LabeledPrediction) ([]string, error) {
	dir := p.cfg.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var written []string
	err := p.metrics.RecordStage("artifacts", len(predictions), func() error {
		path := filepath.Join(dir, PredictionsFile)
		if err := predio.WriteFile(path, predictions, p.mem); err != nil {
			return err
		}
		written = append(written, path)

		if s.Curve != nil {
			rocPlot, err := report.ROCPlot(*s.Curve, s.Youden)
			if err != nil {
				return err
			}
			path = filepath.Join(dir, ROCPlotFile)
			if err := report.SavePNG(rocPlot, path); err != nil {
				return err
			}
			written = append(written, path)

			youdenPlot, err := report.YoudenPlot(*s.Curve)
			if err != nil {
				return err
			}
			path = filepath.Join(dir, YoudenPlotFile)
			if err := report.SavePNG(youdenPlot, path); err != nil {
				return err
			}
			written = append(written, path)
		}

		path = filepath.Join(dir, HTMLReportFile)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating HTML report: %w", err)
		}
		if err := report.ROCPage(f, s); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing HTML report: %w", err)
		}
		written = append(written, path)
		return nil
	})
	for _, path := range written {
		p.logger.Info("wrote artifact", "path", path)
	}
	return written, err
}

func (p *Pipeline) saveHistory(ctx context.Context, s report.Summary, n int) (string, error) {
	params, err := json.Marshal(p.cfg)
	if err != nil {
		return "", fmt.Errorf("encoding run parameters: %w", err)
	}

	run := &store.Run{
		Model:      s.Model,
		Cutoff:     s.Cutoff.Cutoff,
		Rows:       n,
		Counts:     s.Cutoff.Counts,
		Precision:  store.MetricPtr(s.Cutoff.Precision),
		Recall:     store.MetricPtr(s.Cutoff.Recall),
		ParamsJSON: params,
		CreatedAt:  s.Created.UnixNano(),
	}
	if s.Curve != nil {
		auc := s.Curve.AUC
		run.AUC = &auc
	}
	if s.Youden != nil {
		cut, idx := s.Youden.Cutoff, s.Youden.IndexValue
		run.YoudenCutoff = &cut
		run.YoudenIndex = &idx
	}

	db, err := store.Open(p.cfg.HistoryPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if err := db.SaveRun(ctx, run); err != nil {
		return "", err
	}
	p.logger.Info("recorded run", "run_id", run.RunID, "history", p.cfg.HistoryPath)
	return run.RunID, nil
}
