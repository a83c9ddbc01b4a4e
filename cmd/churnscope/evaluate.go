package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/churnscope/internal/config"
	"github.com/paveg/churnscope/internal/dataset"
	predio "github.com/paveg/churnscope/internal/io"
	"github.com/paveg/churnscope/internal/pipeline"
	"github.com/paveg/churnscope/internal/report"
	"github.com/spf13/cobra"
)

// evalFlags are shared by evaluate and run.
type evalFlags struct {
	cutoff    float64
	sweep     []float64
	outputDir string
	history   string
	metrics   bool
	asJSON    bool
}

func (f *evalFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.cutoff, "cutoff", config.DefaultCutoff, "classification cutoff (positive iff score > cutoff)")
	cmd.Flags().Float64SliceVar(&f.sweep, "sweep", nil, "additional cutoffs to report")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "write plots, HTML report and predictions here")
	cmd.Flags().StringVar(&f.history, "history", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "report per-stage timings")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the summary as JSON")
}

// apply overrides cfg with every flag the user set explicitly.
func (f *evalFlags) apply(cmd *cobra.Command, cfg config.Config) config.Config {
	flags := cmd.Flags()
	if flags.Changed("cutoff") {
		cfg.Cutoff = config.Float64(f.cutoff)
	}
	if flags.Changed("sweep") {
		cfg.SweepCutoffs = f.sweep
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if flags.Changed("history") {
		cfg.HistoryPath = f.history
	}
	if flags.Changed("metrics") {
		cfg.MetricsCollection = f.metrics
	}
	return cfg
}

func (f *evalFlags) print(w io.Writer, res *pipeline.Result) error {
	if f.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Summary)
	}
	return report.Text(w, res.Summary)
}

func (a *app) evaluateCmd() *cobra.Command {
	var (
		flags     evalFlags
		modelName string
	)

	cmd := &cobra.Command{
		Use:   "evaluate <predictions>",
		Short: "Evaluate a file of labeled predictions",
		Long: `Evaluate a prediction file with an actual and a score column. The format
follows the extension: .csv, .json, .jsonl/.ndjson or .parquet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := flags.apply(cmd, a.cfg)
			p, err := pipeline.New(cfg, a.logger)
			if err != nil {
				return err
			}
			config.SetGlobalConfig(p.Config())

			predictions, err := predio.ReadFile(args[0], memory.DefaultAllocator)
			if err != nil {
				return err
			}
			a.logger.Info("Loaded predictions", "path", args[0], "count", len(predictions))

			name := modelName
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			res, err := p.Evaluate(cmd.Context(), name, predictions)
			if err != nil {
				return err
			}
			return flags.print(cmd.OutOrStdout(), res)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&modelName, "model-name", "", "name recorded for the model (default: file name)")
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	var (
		flags        evalFlags
		dataPath     string
		modelPath    string
		features     string
		testFraction float64
		seed         uint64
		savePreds    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Split customer data, score the test rows with a model and evaluate",
		Long: `Load the raw customer export, hold out a deterministic test split, encode
it, score it with a logistic model coefficient file, and evaluate the scores.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := flags.apply(cmd, a.cfg)
			if cmd.Flags().Changed("test-fraction") {
				cfg.TestFraction = testFraction
			}
			if cmd.Flags().Changed("seed") {
				cfg.SplitSeed = seed
			}

			in := pipeline.Inputs{DataPath: dataPath, ModelPath: modelPath}
			if features != "" {
				feats, err := resolveFeatures(features)
				if err != nil {
					return err
				}
				in.Features = feats
			}

			p, err := pipeline.New(cfg, a.logger)
			if err != nil {
				return err
			}
			config.SetGlobalConfig(p.Config())

			res, err := p.Run(cmd.Context(), in)
			if err != nil {
				return err
			}
			if savePreds != "" {
				if err := predio.WriteFile(savePreds, res.Predictions, memory.DefaultAllocator); err != nil {
					return err
				}
				a.logger.Info("Saved predictions", "path", savePreds, "count", len(res.Predictions))
			}
			return flags.print(cmd.OutOrStdout(), res)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&dataPath, "data", "", "customer CSV export")
	cmd.Flags().StringVar(&modelPath, "model", "", "logistic model coefficient file (YAML)")
	cmd.Flags().StringVar(&features, "features", "",
		fmt.Sprintf("feature preset (%s) or comma separated feature list", strings.Join(dataset.PresetNames(), ", ")))
	cmd.Flags().Float64Var(&testFraction, "test-fraction", config.DefaultTestFraction, "share of rows held out for evaluation")
	cmd.Flags().Uint64Var(&seed, "seed", config.DefaultSplitSeed, "train/test split seed")
	cmd.Flags().StringVar(&savePreds, "save-predictions", "", "write the scored test rows to this prediction file")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func resolveFeatures(list string) ([]dataset.Feature, error) {
	if !strings.Contains(list, ",") {
		if preset, err := dataset.Preset(list); err == nil {
			return preset, nil
		}
	}
	return dataset.ParseFeatures(list)
}
