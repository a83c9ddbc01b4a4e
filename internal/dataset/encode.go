package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/validation"
)

// Feature names an input column of the model formula.
type Feature string

// Model features. Categorical features expand to several indicator columns.
const (
	FeatureCreditScore     Feature = "CreditScore"
	FeatureGeography       Feature = "Geography"
	FeatureGender          Feature = "Gender"
	FeatureAge             Feature = "Age"
	FeatureTenure          Feature = "Tenure"
	FeatureBalance         Feature = "Balance"
	FeatureNumOfProducts   Feature = "NumOfProducts"
	FeatureHasCrCard       Feature = "HasCrCard"
	FeatureIsActiveMember  Feature = "IsActiveMember"
	FeatureEstimatedSalary Feature = "EstimatedSalary"
)

// Indicator column names, in the treatment-coded form regression
// summaries print them.
const (
	ColumnGermany = "Geography[T.Germany]"
	ColumnSpain   = "Geography[T.Spain]"
	ColumnMale    = "Gender[T.Male]"
)

// Named feature presets.
var presets = map[string][]Feature{
	// the three columns most correlated with Exited
	"activity": {FeatureAge, FeatureBalance, FeatureIsActiveMember},
	"full": {
		FeatureAge, FeatureBalance, FeatureIsActiveMember, FeatureCreditScore, FeatureGeography,
		FeatureGender, FeatureTenure, FeatureNumOfProducts, FeatureHasCrCard, FeatureEstimatedSalary,
	},
	// the terms that stayed significant in the full fit
	"significant": {FeatureAge, FeatureBalance, FeatureIsActiveMember, FeatureGeography, FeatureGender},
}

// Preset returns the features for a named preset.
func Preset(name string) ([]Feature, error) {
	features, ok := presets[name]
	if !ok {
		return nil, errors.NewValidationError("Preset", "feature_set",
			fmt.Sprintf("unknown preset %q (known: %s)", name, strings.Join(PresetNames(), ", ")))
	}
	return append([]Feature(nil), features...), nil
}

// PresetNames lists the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseFeatures turns a comma separated list into features, rejecting
// unknown names.
func ParseFeatures(list string) ([]Feature, error) {
	var out []Feature
	for _, part := range strings.Split(list, ",") {
		f := Feature(strings.TrimSpace(part))
		if f == "" {
			continue
		}
		if _, ok := extractors[f]; !ok {
			return nil, errors.NewValidationError("ParseFeatures", string(f), "unknown feature")
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, errors.NewValidationError("ParseFeatures", "", "no features given")
	}
	return out, nil
}

// column is one encoded design-matrix column.
type column struct {
	name  string
	value func(*Customer) float64
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var extractors = map[Feature][]column{
	FeatureCreditScore: {{string(FeatureCreditScore), func(c *Customer) float64 { return float64(c.CreditScore) }}},
	FeatureGeography: {
		{ColumnGermany, func(c *Customer) float64 { return indicator(c.Geography == Germany) }},
		{ColumnSpain, func(c *Customer) float64 { return indicator(c.Geography == Spain) }},
	},
	FeatureGender:          {{ColumnMale, func(c *Customer) float64 { return indicator(c.Gender == Male) }}},
	FeatureAge:             {{string(FeatureAge), func(c *Customer) float64 { return float64(c.Age) }}},
	FeatureTenure:          {{string(FeatureTenure), func(c *Customer) float64 { return float64(c.Tenure) }}},
	FeatureBalance:         {{string(FeatureBalance), func(c *Customer) float64 { return c.Balance }}},
	FeatureNumOfProducts:   {{string(FeatureNumOfProducts), func(c *Customer) float64 { return float64(c.NumOfProducts) }}},
	FeatureHasCrCard:       {{string(FeatureHasCrCard), func(c *Customer) float64 { return indicator(c.HasCrCard) }}},
	FeatureIsActiveMember:  {{string(FeatureIsActiveMember), func(c *Customer) float64 { return indicator(c.IsActiveMember) }}},
	FeatureEstimatedSalary: {{string(FeatureEstimatedSalary), func(c *Customer) float64 { return c.EstimatedSalary }}},
}

// Columns returns the encoded column names for features, in order.
func Columns(features []Feature) ([]string, error) {
	cols, err := expand(features)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names, nil
}

func expand(features []Feature) ([]column, error) {
	if len(features) == 0 {
		return nil, errors.NewValidationError("Encode", "", "no features given")
	}
	seen := make(map[Feature]bool, len(features))
	var cols []column
	for _, f := range features {
		ext, ok := extractors[f]
		if !ok {
			return nil, errors.NewValidationError("Encode", string(f), "unknown feature")
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		cols = append(cols, ext...)
	}
	return cols, nil
}

// Encode builds the float64 design matrix for rows as an Arrow record,
// one column per encoded feature. The caller owns the record and must
// Release it.
func Encode(rows []Customer, features []Feature, mem memory.Allocator) (arrow.Record, error) {
	if err := validation.ValidateNotEmpty(len(rows), "Encode"); err != nil {
		return nil, err
	}
	cols, err := expand(features)
	if err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.name, Type: arrow.PrimitiveTypes.Float64}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	values := make([]float64, len(rows))
	for i, c := range cols {
		for j := range rows {
			values[j] = c.value(&rows[j])
		}
		b.Field(i).(*array.Float64Builder).AppendValues(values, nil)
	}

	return b.NewRecord(), nil
}
