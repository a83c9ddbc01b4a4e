package io_test

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	everrors "github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
	"github.com/paveg/churnscope/internal/io"
	"github.com/paveg/churnscope/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquet_RoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	predictions := testutil.RandomPredictions(2500, 6)

	for _, codec := range []string{"snappy", "gzip", "zstd", "uncompressed"} {
		t.Run(codec, func(t *testing.T) {
			opts := io.ParquetOptions{Compression: codec, BatchSize: 700}

			var buf bytes.Buffer
			require.NoError(t, io.NewParquetWriter(&buf, opts, mem).Write(predictions))

			got, err := io.NewParquetReader(bytes.NewReader(buf.Bytes()), opts, mem).Read()
			require.NoError(t, err)
			assert.Equal(t, predictions, got)
		})
	}
}

// writeCustomParquet writes a file with an integer label column, as
// exported by tools that store Exited as 0/1.
func writeCustomParquet(t *testing.T, labels []int64, scores []float64, valid []bool) []byte {
	t.Helper()
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "actual", Type: arrow.PrimitiveTypes.Int64},
	}, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Float64Builder).AppendValues(scores, valid)
	b.Field(1).(*array.Int64Builder).AppendValues(labels, nil)
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w, err := pqarrow.NewFileWriter(schema, &buf, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestParquetReader_IntegerLabels(t *testing.T) {
	data := writeCustomParquet(t, []int64{1, 0, 1}, []float64{0.8, 0.3, 0.6}, nil)

	got, err := io.NewParquetReader(bytes.NewReader(data), io.DefaultParquetOptions(), memory.NewGoAllocator()).Read()
	require.NoError(t, err)
	assert.Equal(t, []evaluate.LabeledPrediction{
		{Actual: true, Score: 0.8},
		{Actual: false, Score: 0.3},
		{Actual: true, Score: 0.6},
	}, got)
}

func TestParquetReader_Errors(t *testing.T) {
	mem := memory.NewGoAllocator()

	_, err := io.NewParquetReader(bytes.NewReader(nil), io.DefaultParquetOptions(), mem).Read()
	assert.ErrorIs(t, err, everrors.ErrEmptyInput)

	_, err = io.NewParquetReader(bytes.NewReader([]byte("not parquet")), io.DefaultParquetOptions(), mem).Read()
	assert.Error(t, err)

	nulls := writeCustomParquet(t, []int64{1, 0}, []float64{0.8, 0}, []bool{true, false})
	_, err = io.NewParquetReader(bytes.NewReader(nulls), io.DefaultParquetOptions(), mem).Read()
	assert.ErrorIs(t, err, everrors.ErrInvalidRecord)

	badLabel := writeCustomParquet(t, []int64{1, 3}, []float64{0.8, 0.1}, nil)
	_, err = io.NewParquetReader(bytes.NewReader(badLabel), io.DefaultParquetOptions(), mem).Read()
	assert.ErrorIs(t, err, everrors.ErrInvalidRecord)
}

func TestParquetWriter_EmptyReadsBackAsEmpty(t *testing.T) {
	mem := memory.NewGoAllocator()

	var buf bytes.Buffer
	require.NoError(t, io.NewParquetWriter(&buf, io.DefaultParquetOptions(), mem).Write(nil))

	_, err := io.NewParquetReader(bytes.NewReader(buf.Bytes()), io.DefaultParquetOptions(), mem).Read()
	assert.ErrorIs(t, err, everrors.ErrEmptyInput)
}
