// Package explore computes the descriptive statistics used to get a feel
// for the churn table before modeling: per-column summaries, the
// correlation matrix and distinct-value counts.
package explore

import (
	"math"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/paveg/churnscope/internal/dataset"
	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/validation"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Number is any column value that can be summarized numerically.
type Number interface {
	constraints.Integer | constraints.Float
}

// numericColumn extracts one numeric column as float64.
type numericColumn struct {
	name  string
	value func(*dataset.Customer) float64
}

func asFloat[T Number](get func(*dataset.Customer) T) func(*dataset.Customer) float64 {
	return func(c *dataset.Customer) float64 { return float64(get(c)) }
}

func boolFloat(get func(*dataset.Customer) bool) func(*dataset.Customer) float64 {
	return func(c *dataset.Customer) float64 {
		if get(c) {
			return 1
		}
		return 0
	}
}

var numericColumns = []numericColumn{
	{"CreditScore", asFloat(func(c *dataset.Customer) int { return c.CreditScore })},
	{"Age", asFloat(func(c *dataset.Customer) int { return c.Age })},
	{"Tenure", asFloat(func(c *dataset.Customer) int { return c.Tenure })},
	{"Balance", asFloat(func(c *dataset.Customer) float64 { return c.Balance })},
	{"NumOfProducts", asFloat(func(c *dataset.Customer) int { return c.NumOfProducts })},
	{"HasCrCard", boolFloat(func(c *dataset.Customer) bool { return c.HasCrCard })},
	{"IsActiveMember", boolFloat(func(c *dataset.Customer) bool { return c.IsActiveMember })},
	{"EstimatedSalary", asFloat(func(c *dataset.Customer) float64 { return c.EstimatedSalary })},
	{"Exited", boolFloat(func(c *dataset.Customer) bool { return c.Exited })},
}

// NumericColumns lists the columns Describe and Correlation cover.
func NumericColumns() []string {
	out := make([]string, len(numericColumns))
	for i, c := range numericColumns {
		out[i] = c.name
	}
	return out
}

func extract(rows []dataset.Customer, col numericColumn) []float64 {
	out := make([]float64, len(rows))
	for i := range rows {
		out[i] = col.value(&rows[i])
	}
	return out
}

// Summary is the describe() row for one column.
type Summary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Describe summarizes every numeric column. Std is the sample standard
// deviation and is NaN for a single row. Quartiles are empirical: the
// smallest observed value covering the requested fraction of rows.
func Describe(rows []dataset.Customer) ([]Summary, error) {
	if err := validation.ValidateNotEmpty(len(rows), "Describe"); err != nil {
		return nil, err
	}

	out := make([]Summary, len(numericColumns))
	for i, col := range numericColumns {
		out[i] = summarize(col.name, extract(rows, col))
	}
	return out, nil
}

func summarize(name string, values []float64) Summary {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = math.NaN()
	}
	return Summary{
		Column: name,
		Count:  len(sorted),
		Mean:   mean,
		Std:    std,
		Min:    sorted[0],
		Q1:     stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
}

// Correlation is a Pearson correlation matrix over NumericColumns.
type Correlation struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// At returns the correlation between two named columns.
func (c Correlation) At(a, b string) (float64, bool) {
	i, j := indexOf(c.Columns, a), indexOf(c.Columns, b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return c.Values[i][j], true
}

// Ranked pairs a column with its correlation against a target.
type Ranked struct {
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

// RankAgainst orders every other column by the absolute value of its
// correlation with target, strongest first. Columns with an undefined
// (NaN) correlation sort last.
func (c Correlation) RankAgainst(target string) []Ranked {
	t := indexOf(c.Columns, target)
	if t < 0 {
		return nil
	}
	out := make([]Ranked, 0, len(c.Columns)-1)
	for i, name := range c.Columns {
		if i == t {
			continue
		}
		out = append(out, Ranked{Column: name, Value: c.Values[t][i]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := math.Abs(out[i].Value), math.Abs(out[j].Value)
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})
	return out
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// CorrelationMatrix computes pairwise Pearson correlations between the
// numeric columns. A constant column yields NaN off-diagonal entries.
func CorrelationMatrix(rows []dataset.Customer) (Correlation, error) {
	if err := validation.ValidateNotEmpty(len(rows), "CorrelationMatrix"); err != nil {
		return Correlation{}, err
	}
	if len(rows) < 2 {
		return Correlation{}, errors.NewInsufficientDataError("CorrelationMatrix", "need at least two rows")
	}

	k := len(numericColumns)
	data := mat.NewDense(len(rows), k, nil)
	for j, col := range numericColumns {
		data.SetCol(j, extract(rows, col))
	}

	var sym mat.SymDense
	stat.CorrelationMatrix(&sym, data, nil)

	values := make([][]float64, k)
	for i := range values {
		values[i] = make([]float64, k)
		for j := range values[i] {
			values[i][j] = sym.At(i, j)
		}
	}
	return Correlation{Columns: NumericColumns(), Values: values}, nil
}

// listLimit is the distinct-count below which UniqueCounts lists values.
const listLimit = 6

// Unique describes the distinct values of one column.
type Unique struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Values []string `json:"values,omitempty"`
}

// UniqueCounts counts distinct values in every column, listing them
// (sorted) when there are fewer than six.
func UniqueCounts(rows []dataset.Customer) ([]Unique, error) {
	if err := validation.ValidateNotEmpty(len(rows), "UniqueCounts"); err != nil {
		return nil, err
	}

	type textColumn struct {
		name  string
		value func(*dataset.Customer) string
	}
	cols := []textColumn{
		{"Geography", func(c *dataset.Customer) string { return string(c.Geography) }},
		{"Gender", func(c *dataset.Customer) string { return string(c.Gender) }},
	}
	for _, nc := range numericColumns {
		cols = append(cols, textColumn{nc.name, func(c *dataset.Customer) string {
			return strconv.FormatFloat(nc.value(c), 'g', -1, 64)
		}})
	}

	out := make([]Unique, len(cols))
	for i, col := range cols {
		seen := make(map[uint64]string)
		for r := range rows {
			v := col.value(&rows[r])
			seen[xxhash.Sum64String(v)] = v
		}
		u := Unique{Column: col.name, Count: len(seen)}
		if len(seen) < listLimit {
			for _, v := range seen {
				u.Values = append(u.Values, v)
			}
			sort.Strings(u.Values)
		}
		out[i] = u
	}
	return out, nil
}
