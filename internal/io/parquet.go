package io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
)

// PredictionSchema is the Arrow schema prediction files are written with.
var PredictionSchema = arrow.NewSchema([]arrow.Field{
	{Name: ColumnActual, Type: arrow.FixedWidthTypes.Boolean},
	{Name: ColumnScore, Type: arrow.PrimitiveTypes.Float64},
}, nil)

// Read reads Parquet data and returns the predictions in row order.
// The label column may be boolean or integer (0/1); the score column may
// be double or float.
func (r *ParquetReader) Read() ([]evaluate.LabeledPrediction, error) {
	// Read all data into memory for Parquet reading
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.NewEmptyInputError("ParquetReader.Read")
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	mem := r.mem
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{
		BatchSize: int64(r.batchSize()),
	}, mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	return r.tableToPredictions(table)
}

func (r *ParquetReader) batchSize() int {
	if r.options.BatchSize > 0 {
		return r.options.BatchSize
	}
	return DefaultBatchSize
}

// tableToPredictions walks the table in record batches so multi-chunk
// columns are handled without assuming a single chunk.
func (r *ParquetReader) tableToPredictions(table arrow.Table) ([]evaluate.LabeledPrediction, error) {
	const op = "ParquetReader.Read"
	schema := table.Schema()
	actualIdx := schema.FieldIndices(ColumnActual)
	scoreIdx := schema.FieldIndices(ColumnScore)
	if len(actualIdx) == 0 {
		return nil, errors.NewValidationError(op, ColumnActual, "required column missing")
	}
	if len(scoreIdx) == 0 {
		return nil, errors.NewValidationError(op, ColumnScore, "required column missing")
	}

	predictions := make([]evaluate.LabeledPrediction, 0, table.NumRows())
	tr := array.NewTableReader(table, int64(r.batchSize()))
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		base := len(predictions)
		actual, err := labelValues(rec.Column(actualIdx[0]), base)
		if err != nil {
			return nil, err
		}
		scores, err := scoreValues(rec.Column(scoreIdx[0]), base)
		if err != nil {
			return nil, err
		}
		for i := range actual {
			predictions = append(predictions, evaluate.LabeledPrediction{Actual: actual[i], Score: scores[i]})
		}
	}
	return checkPredictions(op, predictions)
}

// labelValues converts one chunk of the label column. base is the number
// of rows already read, for error messages.
func labelValues(arr arrow.Array, base int) ([]bool, error) {
	out := make([]bool, arr.Len())
	for i := range out {
		if arr.IsNull(i) {
			return nil, nullError(ColumnActual, base+i)
		}
	}

	switch a := arr.(type) {
	case *array.Boolean:
		for i := range out {
			out[i] = a.Value(i)
		}
	case *array.Int64:
		for i := range out {
			v, err := binary(a.Value(i), base+i)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
	case *array.Int32:
		for i := range out {
			v, err := binary(int64(a.Value(i)), base+i)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
	default:
		return nil, errors.NewValidationError("ParquetReader.Read", ColumnActual,
			fmt.Sprintf("unsupported label type %s", arr.DataType()))
	}
	return out, nil
}

func binary(v int64, row int) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.NewInvalidRecordError("ParquetReader.Read", ColumnActual, row+1,
			fmt.Errorf("label must be 0 or 1, got %d", v))
	}
}

func scoreValues(arr arrow.Array, base int) ([]float64, error) {
	out := make([]float64, arr.Len())
	for i := range out {
		if arr.IsNull(i) {
			return nil, nullError(ColumnScore, base+i)
		}
	}

	switch a := arr.(type) {
	case *array.Float64:
		copy(out, a.Float64Values())
	case *array.Float32:
		for i := range out {
			out[i] = float64(a.Value(i))
		}
	default:
		return nil, errors.NewValidationError("ParquetReader.Read", ColumnScore,
			fmt.Sprintf("unsupported score type %s", arr.DataType()))
	}
	return out, nil
}

func nullError(column string, row int) error {
	return errors.NewInvalidRecordError("ParquetReader.Read", column, row+1, fmt.Errorf("null value"))
}

// Write writes the predictions as a Parquet file with PredictionSchema.
func (w *ParquetWriter) Write(predictions []evaluate.LabeledPrediction) (err error) {
	mem := w.mem
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	rec := buildPredictionRecord(predictions, mem)
	defer rec.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compressionCodec(w.options.Compression)),
		parquet.WithBatchSize(int64(w.batchSize())),
		parquet.WithAllocator(mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem))

	writer, err := pqarrow.NewFileWriter(PredictionSchema, w.writer, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing file writer: %w", closeErr)
		}
	}()

	if err := writer.Write(rec); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

func (w *ParquetWriter) batchSize() int {
	if w.options.BatchSize > 0 {
		return w.options.BatchSize
	}
	return DefaultBatchSize
}

func compressionCodec(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Codecs.Gzip
	case "lz4":
		return compress.Codecs.Lz4Raw
	case "zstd":
		return compress.Codecs.Zstd
	case "uncompressed":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

func buildPredictionRecord(predictions []evaluate.LabeledPrediction, mem memory.Allocator) arrow.Record {
	b := array.NewRecordBuilder(mem, PredictionSchema)
	defer b.Release()

	actual := b.Field(0).(*array.BooleanBuilder)
	score := b.Field(1).(*array.Float64Builder)
	actual.Reserve(len(predictions))
	score.Reserve(len(predictions))
	for _, p := range predictions {
		actual.Append(p.Actual)
		score.Append(p.Score)
	}
	return b.NewRecord()
}
