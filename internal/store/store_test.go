package store_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/paveg/churnscope/internal/evaluate"
	"github.com/paveg/churnscope/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	run := &store.Run{
		Model:  "significant",
		Cutoff: 0.5,
		Rows:   8,
		Counts: evaluate.ConfusionCounts{
			TruePositive:  3,
			FalsePositive: 0,
			TrueNegative:  4,
			FalseNegative: 1,
		},
		Precision:    ptr(1),
		Recall:       ptr(0.75),
		AUC:          ptr(14.0 / 15.0),
		YoudenCutoff: ptr(0.4),
		YoudenIndex:  ptr(0.8),
		ParamsJSON:   json.RawMessage(`{"cutoff":0.5}`),
	}
	require.NoError(t, s.SaveRun(ctx, run))
	assert.NotEmpty(t, run.RunID)
	assert.NotZero(t, run.CreatedAt)

	got, err := s.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Model, got.Model)
	assert.Equal(t, run.Counts, got.Counts)
	assert.Equal(t, 8, got.Rows)
	require.NotNil(t, got.AUC)
	assert.InDelta(t, 14.0/15.0, *got.AUC, 1e-12)
	require.NotNil(t, got.YoudenCutoff)
	assert.Equal(t, 0.4, *got.YoudenCutoff)
	assert.JSONEq(t, `{"cutoff":0.5}`, string(got.ParamsJSON))
}

func TestUndefinedMetricsStayNull(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	run := &store.Run{
		RunID:     "fixed-id",
		Model:     "constant",
		Cutoff:    0.95,
		Rows:      4,
		Counts:    evaluate.ConfusionCounts{TrueNegative: 2, FalseNegative: 2},
		Precision: store.MetricPtr(evaluate.Undefined()),
		Recall:    store.MetricPtr(evaluate.Defined(0)),
	}
	require.NoError(t, s.SaveRun(ctx, run))
	assert.Equal(t, "fixed-id", run.RunID)

	got, err := s.GetRun(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Nil(t, got.Precision)
	require.NotNil(t, got.Recall)
	assert.Equal(t, 0.0, *got.Recall)
	assert.Nil(t, got.AUC)
	assert.Nil(t, got.YoudenIndex)
	assert.Empty(t, got.ParamsJSON)
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, s.SaveRun(ctx, &store.Run{
			Model:     name,
			Cutoff:    0.5,
			Rows:      10,
			CreatedAt: int64(1000 + i),
		}))
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "third", runs[0].Model)
	assert.Equal(t, "first", runs[2].Model)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "second", limited[1].Model)
}

func TestListRunsEmpty(t *testing.T) {
	runs, err := openStore(t).ListRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestGetAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, "nope"), store.ErrNotFound)
}

func TestDeleteRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	run := &store.Run{Model: "m", Cutoff: 0.5, Rows: 1}
	require.NoError(t, s.SaveRun(ctx, run))
	require.NoError(t, s.DeleteRun(ctx, run.RunID))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestDuplicateRunID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.SaveRun(ctx, &store.Run{RunID: "dup", Model: "m"}))
	assert.Error(t, s.SaveRun(ctx, &store.Run{RunID: "dup", Model: "m"}))
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, &store.Run{RunID: "kept", Model: "m", Cutoff: 0.3}))
	require.NoError(t, s.Close())

	reopened, err := store.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetRun(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, 0.3, got.Cutoff)
}
