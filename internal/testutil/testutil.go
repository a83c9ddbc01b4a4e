// Package testutil provides common testing utilities shared by the
// churnscope test suites.
//
// It consolidates the fixtures several packages need:
// - Arrow allocator setup with leak checking
// - The eight-prediction reference scenario
// - Perfect and uninformative prediction sets
// - Deterministic synthetic customer rows and raw CSV exports
package testutil

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/churnscope/internal/dataset"
	"github.com/paveg/churnscope/internal/evaluate"
)

// TestMemoryContext provides a checked allocator that fails the test on leaks.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a checked allocator. Release asserts that every
// Arrow buffer allocated through it was freed.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	checked := memory.NewCheckedAllocator(memory.NewGoAllocator())

	return &TestMemoryContext{
		Allocator: checked,
		cleanup: func() {
			checked.AssertSize(tb, 0)
		},
	}
}

// ScenarioPredictions is the reference scenario: at cutoff 0.5 it gives
// TP=3, FP=1, TN=4, FN=0, precision 0.75 and recall 1.0.
func ScenarioPredictions() []evaluate.LabeledPrediction {
	return []evaluate.LabeledPrediction{
		{Actual: true, Score: 0.9},
		{Actual: true, Score: 0.8},
		{Actual: false, Score: 0.7},
		{Actual: true, Score: 0.6},
		{Actual: false, Score: 0.4},
		{Actual: false, Score: 0.3},
		{Actual: false, Score: 0.2},
		{Actual: false, Score: 0.1},
	}
}

// PerfectPredictions returns n predictions (n >= 2) whose scores fully
// separate the classes: every positive outscores every negative.
func PerfectPredictions(n int) []evaluate.LabeledPrediction {
	out := make([]evaluate.LabeledPrediction, n)
	for i := range out {
		actual := i%2 == 0
		score := 0.1 + 0.3*float64(i)/float64(n)
		if actual {
			score += 0.5
		}
		out[i] = evaluate.LabeledPrediction{Actual: actual, Score: score}
	}
	return out
}

// RandomPredictions returns n predictions whose scores are drawn
// independently of the labels.
func RandomPredictions(n int, seed uint64) []evaluate.LabeledPrediction {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]evaluate.LabeledPrediction, n)
	for i := range out {
		out[i] = evaluate.LabeledPrediction{
			Actual: rng.Float64() < 0.3,
			Score:  rng.Float64(),
		}
	}
	return out
}

// SampleCustomers generates n deterministic, valid customer rows.
// Churners skew older, less active and more German, so a logistic scorer
// on these rows has real signal.
func SampleCustomers(n int) []dataset.Customer {
	geos := dataset.Geographies()
	rows := make([]dataset.Customer, n)
	for i := range rows {
		exited := i%5 == 0
		age := 30 + i%15
		if exited {
			age += 15
		}
		geo := geos[i%len(geos)]
		if exited && i%2 == 0 {
			geo = dataset.Germany
		}
		gender := dataset.Male
		if i%3 == 0 {
			gender = dataset.Female
		}
		rows[i] = dataset.Customer{
			CreditScore:     500 + (i*37)%350,
			Geography:       geo,
			Gender:          gender,
			Age:             age,
			Tenure:          i % 11,
			Balance:         float64((i * 7919) % 150000),
			NumOfProducts:   1 + i%4,
			HasCrCard:       i%4 != 0,
			IsActiveMember:  !exited && i%3 != 1,
			EstimatedSalary: 20000 + float64((i*104729)%180000),
			Exited:          exited,
		}
	}
	return rows
}

// RawChurnCSV renders rows the way the raw export looks, including the
// identifier columns the loader drops and 0/1 booleans.
func RawChurnCSV(rows []dataset.Customer) string {
	var buf bytes.Buffer
	buf.WriteString("RowNumber,CustomerId,Surname,CreditScore,Geography,Gender,Age,Tenure,Balance," +
		"NumOfProducts,HasCrCard,IsActiveMember,EstimatedSalary,Exited\n")
	for i, r := range rows {
		fmt.Fprintf(&buf, "%d,%d,Surname%d,%d,%s,%s,%d,%d,%g,%d,%d,%d,%g,%d\n",
			i+1, 15600000+i, i, r.CreditScore, r.Geography, r.Gender, r.Age, r.Tenure, r.Balance,
			r.NumOfProducts, flag(r.HasCrCard), flag(r.IsActiveMember), r.EstimatedSalary, flag(r.Exited))
	}
	return buf.String()
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
