package dataset_test

import (
	"testing"

	"github.com/paveg/churnscope/internal/dataset"
	everrors "github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Sizes(t *testing.T) {
	rows := testutil.SampleCustomers(101)

	tests := []struct {
		fraction  float64
		wantTest  int
		wantTrain int
	}{
		{0.5, 51, 50},
		{0.2, 21, 80},
		{0.01, 2, 99},
		{0.999, 100, 1},
	}

	for _, tt := range tests {
		train, test, err := dataset.Split(rows, tt.fraction, 7)
		require.NoError(t, err)
		assert.Len(t, test, tt.wantTest, "fraction %g", tt.fraction)
		assert.Len(t, train, tt.wantTrain, "fraction %g", tt.fraction)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	rows := testutil.SampleCustomers(60)

	train1, test1, err := dataset.Split(rows, 0.5, 42)
	require.NoError(t, err)
	train2, test2, err := dataset.Split(rows, 0.5, 42)
	require.NoError(t, err)

	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)

	_, test3, err := dataset.Split(rows, 0.5, 43)
	require.NoError(t, err)
	assert.NotEqual(t, test1, test3)
}

func TestSplit_PartitionsRows(t *testing.T) {
	rows := testutil.SampleCustomers(50)
	train, test, err := dataset.Split(rows, 0.3, 1)
	require.NoError(t, err)

	// SampleCustomers rows are distinct, so a multiset comparison is exact.
	combined := append(append([]dataset.Customer(nil), train...), test...)
	assert.ElementsMatch(t, rows, combined)
}

func TestSplit_Errors(t *testing.T) {
	_, _, err := dataset.Split(nil, 0.5, 1)
	assert.ErrorIs(t, err, everrors.ErrEmptyInput)

	rows := testutil.SampleCustomers(5)
	for _, f := range []float64{0, 1, -0.2, 1.5} {
		_, _, err := dataset.Split(rows, f, 1)
		assert.ErrorIs(t, err, everrors.ErrInvalidInput, "fraction %g", f)
	}
}
