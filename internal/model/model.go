// Package model scores encoded customer rows with a previously fitted
// classifier. Fitting is out of scope: coefficients come from a file
// exported by whatever tool trained the model.
package model

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/paveg/churnscope/internal/dataset"
	"github.com/paveg/churnscope/internal/errors"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// Predictor produces one churn probability per row of an encoded design
// matrix.
type Predictor interface {
	Predict(rec arrow.Record) ([]float64, error)
}

// Logistic is a fitted logistic regression. Coefficients are keyed by
// encoded column name, e.g. "Age" or "Geography[T.Germany]".
type Logistic struct {
	Name         string             `yaml:"name" json:"name"`
	Features     []string           `yaml:"features" json:"features"`
	Intercept    float64            `yaml:"intercept" json:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients" json:"coefficients"`
}

// ParseLogistic decodes a YAML coefficient file.
func ParseLogistic(data []byte) (*Logistic, error) {
	var m Logistic
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadLogistic reads and decodes a YAML coefficient file.
func LoadLogistic(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	m, err := ParseLogistic(data)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return m, nil
}

// Validate checks that the model can be applied: it needs at least one
// finite coefficient, a finite intercept, and features that cover every
// coefficient column.
func (m *Logistic) Validate() error {
	const op = "Logistic.Validate"
	if len(m.Coefficients) == 0 {
		return errors.NewValidationError(op, "coefficients", "model has no coefficients")
	}
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return errors.NewValidationError(op, "intercept", "intercept must be finite")
	}
	for name, c := range m.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return errors.NewValidationError(op, name, "coefficient must be finite")
		}
	}
	if len(m.Features) == 0 {
		return nil
	}

	features, err := m.DatasetFeatures()
	if err != nil {
		return err
	}
	cols, err := dataset.Columns(features)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}
	for _, name := range m.terms() {
		if !have[name] {
			return errors.NewValidationError(op, name, "coefficient has no matching feature")
		}
	}
	return nil
}

// DatasetFeatures returns the features the model was fitted on.
func (m *Logistic) DatasetFeatures() ([]dataset.Feature, error) {
	out := make([]dataset.Feature, len(m.Features))
	for i, f := range m.Features {
		out[i] = dataset.Feature(f)
	}
	if _, err := dataset.Columns(out); err != nil {
		return nil, err
	}
	return out, nil
}

// terms returns the coefficient names in a fixed order so the linear
// predictor is summed identically on every call.
func (m *Logistic) terms() []string {
	names := make([]string, 0, len(m.Coefficients))
	for name := range m.Coefficients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Predict returns sigmoid(intercept + sum(coef * column)) for every row.
// Every coefficient must have a matching non-null float64 column in rec;
// extra columns are ignored.
func (m *Logistic) Predict(rec arrow.Record) ([]float64, error) {
	const op = "Logistic.Predict"
	n := int(rec.NumRows())
	if n == 0 {
		return nil, errors.NewEmptyInputError(op)
	}

	logits := make([]float64, n)
	for i := range logits {
		logits[i] = m.Intercept
	}

	schema := rec.Schema()
	for _, name := range m.terms() {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			return nil, errors.NewValidationError(op, name, "column missing from design matrix")
		}
		col, ok := rec.Column(idx[0]).(*array.Float64)
		if !ok {
			return nil, errors.NewValidationError(op, name,
				fmt.Sprintf("expected float64 column, got %s", rec.Column(idx[0]).DataType()))
		}
		if col.NullN() > 0 {
			return nil, errors.NewValidationError(op, name, "column contains nulls")
		}
		floats.AddScaled(logits, m.Coefficients[name], col.Float64Values())
	}

	for i, z := range logits {
		logits[i] = sigmoid(z)
	}
	return logits, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Constant predicts the same probability for every row.
type Constant float64

// Predict implements Predictor.
func (c Constant) Predict(rec arrow.Record) ([]float64, error) {
	n := int(rec.NumRows())
	if n == 0 {
		return nil, errors.NewEmptyInputError("Constant.Predict")
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(c)
	}
	return out, nil
}
