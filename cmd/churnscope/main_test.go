package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	predio "github.com/paveg/churnscope/internal/io"
	"github.com/paveg/churnscope/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelFile = "../../internal/model/testdata/significant.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func scenarioFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, predio.WriteFile(path, testutil.ScenarioPredictions(), memory.DefaultAllocator))
	return path
}

func customerFile(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "churn.csv")
	require.NoError(t, os.WriteFile(path, []byte(testutil.RawChurnCSV(testutil.SampleCustomers(n))), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "churnscope")

	out, err = execute(t, "version", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Go Version:")
}

func TestEvaluateCommand(t *testing.T) {
	for _, name := range []string{"preds.csv", "preds.parquet"} {
		t.Run(name, func(t *testing.T) {
			out, err := execute(t, "evaluate", scenarioFile(t, name), "--sweep", "0.5,0.95")
			require.NoError(t, err)

			assert.Contains(t, out, "Churn model evaluation: preds")
			assert.Contains(t, out, "Confusion matrix at cutoff 0.5000")
			assert.Contains(t, out, "AUC 0.9333")
			assert.Contains(t, out, "Youden cutoff 0.4000")
			assert.Contains(t, out, "undefined", "precision at 0.95 is undefined")
		})
	}
}

func TestEvaluateCommandJSON(t *testing.T) {
	out, err := execute(t, "evaluate", scenarioFile(t, "preds.jsonl"), "--json", "--cutoff", "0.4", "--model-name", "m1")
	require.NoError(t, err)

	var summary struct {
		Model  string
		Cutoff struct {
			Cutoff float64 `json:"cutoff"`
			Counts struct {
				TruePositive int `json:"true_positive"`
			} `json:"counts"`
		}
		Curve struct {
			AUC float64 `json:"auc"`
		}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "m1", summary.Model)
	assert.Equal(t, 0.4, summary.Cutoff.Cutoff)
	assert.Equal(t, 3, summary.Cutoff.Counts.TruePositive)
	assert.InDelta(t, 14.0/15.0, summary.Curve.AUC, 1e-12)
}

func TestEvaluateCommandZeroCutoff(t *testing.T) {
	out, err := execute(t, "evaluate", scenarioFile(t, "preds.csv"), "--json", "--cutoff", "0")
	require.NoError(t, err)

	var summary struct {
		Cutoff struct {
			Cutoff float64 `json:"cutoff"`
			Counts struct {
				TruePositive  int `json:"true_positive"`
				FalsePositive int `json:"false_positive"`
			} `json:"counts"`
		}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 0.0, summary.Cutoff.Cutoff)
	assert.Equal(t, 3, summary.Cutoff.Counts.TruePositive)
	assert.Equal(t, 5, summary.Cutoff.Counts.FalsePositive)
}

func TestEvaluateCommandErrors(t *testing.T) {
	_, err := execute(t, "evaluate")
	assert.Error(t, err)

	_, err = execute(t, "evaluate", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = execute(t, "evaluate", scenarioFile(t, "preds.csv"), "--cutoff", "3")
	assert.Error(t, err)

	_, err = execute(t, "evaluate", scenarioFile(t, "preds.csv"), "--cutoff", "NaN")
	assert.Error(t, err)

	_, err = execute(t, "--log-level", "loud", "version")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestRunAndHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	history := filepath.Join(dir, "history.db")
	saved := filepath.Join(dir, "scored.parquet")

	out, err := execute(t, "run",
		"--data", customerFile(t, 120),
		"--model", modelFile,
		"--history", history,
		"--save-predictions", saved,
		"--output-dir", filepath.Join(dir, "out"),
		"--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "Churn model evaluation: significant")
	assert.Contains(t, out, "Stages")
	assert.FileExists(t, filepath.Join(dir, "out", "roc.png"))

	preds, err := predio.ReadFile(saved, memory.DefaultAllocator)
	require.NoError(t, err)
	assert.Len(t, preds, 60)

	out, err = execute(t, "history", "--history", history)
	require.NoError(t, err)
	assert.Contains(t, out, "significant")
	assert.Contains(t, out, "youden cutoff")

	_, err = execute(t, "history", "delete", "no-such-run", "--history", history)
	assert.Error(t, err)
}

func TestRunCommandFeatures(t *testing.T) {
	out, err := execute(t, "run", "--data", customerFile(t, 40), "--model", modelFile,
		"--features", "Age,Balance,IsActiveMember,Geography,Gender", "--test-fraction", "0.25")
	require.NoError(t, err)
	assert.Contains(t, out, "predictions: 10")

	_, err = execute(t, "run", "--data", customerFile(t, 40), "--model", modelFile, "--features", "Age,Shoe")
	assert.Error(t, err)

	_, err = execute(t, "run", "--data", customerFile(t, 40))
	assert.Error(t, err, "--model is required")
}

func TestHistoryCommandWithoutDatabase(t *testing.T) {
	t.Setenv("CHURNSCOPE_HISTORY_PATH", "")
	_, err := execute(t, "history")
	assert.ErrorContains(t, err, "no history database configured")
}

func TestHistoryCommandEmpty(t *testing.T) {
	out, err := execute(t, "history", "--history", filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "no runs recorded")
}

func TestExploreCommand(t *testing.T) {
	html := filepath.Join(t.TempDir(), "corr.html")
	out, err := execute(t, "explore", "--data", customerFile(t, 50), "--html", html)
	require.NoError(t, err)

	assert.Contains(t, out, "Customer table: 50 rows")
	assert.Contains(t, out, "Correlation with Exited")
	assert.FileExists(t, html)
}

func TestConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "churnscope.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("cutoff: 0.65\nsweep_cutoffs: [0.3]\n"), 0o600))

	out, err := execute(t, "--config", cfgPath, "evaluate", scenarioFile(t, "preds.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "Confusion matrix at cutoff 0.6500")
	assert.Contains(t, out, "0.3000")
}
