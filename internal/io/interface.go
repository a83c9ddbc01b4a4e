// Package io reads and writes labeled prediction files.
//
// A prediction file holds one row per test sample with two columns:
// "actual" (the true churn label) and "score" (the predicted probability).
// Three on-disk formats are supported and chosen by file extension:
//   - CSV (.csv): header row, labels as true/false or 1/0
//   - JSON (.json array, .jsonl/.ndjson one object per line)
//   - Parquet (.parquet): a bool "actual" column and a double "score" column
//
// Readers validate every row: a missing column, an unparsable value or a
// NaN score is rejected rather than silently skipped.
package io

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/churnscope/internal/evaluate"
)

const (
	// ColumnActual is the label column name.
	ColumnActual = "actual"
	// ColumnScore is the score column name.
	ColumnScore = "score"
	// DefaultBatchSize is the default batch size for I/O operations
	DefaultBatchSize = 1000
)

// PredictionReader reads labeled predictions from a source.
type PredictionReader interface {
	Read() ([]evaluate.LabeledPrediction, error)
}

// PredictionWriter writes labeled predictions to a destination.
type PredictionWriter interface {
	Write(predictions []evaluate.LabeledPrediction) error
}

// Format identifies an on-disk prediction format.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatJSON
	FormatJSONLines
	FormatParquet
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	case FormatJSONLines:
		return "jsonl"
	case FormatParquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONLines
	case ".parquet", ".pq":
		return FormatParquet
	default:
		return FormatUnknown
	}
}

// CSVOptions contains configuration options for CSV operations
type CSVOptions struct {
	// Delimiter is the field delimiter (default: comma)
	Delimiter rune
	// Comment is the comment character (default: 0 = disabled)
	Comment rune
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ','}
}

// CSVReader reads labeled predictions from CSV.
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
}

// NewCSVReader creates a new CSV reader with the specified options
func NewCSVReader(reader io.Reader, options CSVOptions) *CSVReader {
	return &CSVReader{reader: reader, options: options}
}

// CSVWriter writes labeled predictions as CSV.
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a new CSV writer with the specified options
func NewCSVWriter(writer io.Writer, options CSVOptions) *CSVWriter {
	return &CSVWriter{writer: writer, options: options}
}

// JSONFormat selects between a JSON array and JSON Lines.
type JSONFormat int

const (
	// JSONArray is a single top-level array of objects.
	JSONArray JSONFormat = iota
	// JSONLines is one object per line.
	JSONLines
)

// JSONReader reads labeled predictions from JSON.
type JSONReader struct {
	reader io.Reader
	format JSONFormat
}

// NewJSONReader creates a new JSON reader.
func NewJSONReader(reader io.Reader, format JSONFormat) *JSONReader {
	return &JSONReader{reader: reader, format: format}
}

// JSONWriter writes labeled predictions as JSON.
type JSONWriter struct {
	writer io.Writer
	format JSONFormat
	indent bool
}

// NewJSONWriter creates a new JSON writer. indent only applies to JSONArray.
func NewJSONWriter(writer io.Writer, format JSONFormat, indent bool) *JSONWriter {
	return &JSONWriter{writer: writer, format: format, indent: indent}
}

// ParquetOptions contains configuration options for Parquet operations
type ParquetOptions struct {
	// Compression type for Parquet files
	Compression string
	// BatchSize for reading/writing operations
	BatchSize int
}

// DefaultParquetOptions returns default Parquet options
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression: "snappy",
		BatchSize:   DefaultBatchSize,
	}
}

// ParquetReader reads labeled predictions from Parquet.
type ParquetReader struct {
	reader  io.Reader
	options ParquetOptions
	mem     memory.Allocator
}

// NewParquetReader creates a new Parquet reader with the specified options
func NewParquetReader(reader io.Reader, options ParquetOptions, mem memory.Allocator) *ParquetReader {
	return &ParquetReader{reader: reader, options: options, mem: mem}
}

// ParquetWriter writes labeled predictions as Parquet.
type ParquetWriter struct {
	writer  io.Writer
	options ParquetOptions
	mem     memory.Allocator
}

// NewParquetWriter creates a new Parquet writer with the specified options
func NewParquetWriter(writer io.Writer, options ParquetOptions, mem memory.Allocator) *ParquetWriter {
	return &ParquetWriter{writer: writer, options: options, mem: mem}
}

// readerFor returns the reader for a known format; callers have already
// rejected FormatUnknown.
func readerFor(r io.Reader, format Format, mem memory.Allocator) PredictionReader {
	switch format {
	case FormatJSON:
		return NewJSONReader(r, JSONArray)
	case FormatJSONLines:
		return NewJSONReader(r, JSONLines)
	case FormatParquet:
		return NewParquetReader(r, DefaultParquetOptions(), mem)
	default:
		return NewCSVReader(r, DefaultCSVOptions())
	}
}

func writerFor(w io.Writer, format Format, mem memory.Allocator) PredictionWriter {
	switch format {
	case FormatJSON:
		return NewJSONWriter(w, JSONArray, true)
	case FormatJSONLines:
		return NewJSONWriter(w, JSONLines, false)
	case FormatParquet:
		return NewParquetWriter(w, DefaultParquetOptions(), mem)
	default:
		return NewCSVWriter(w, DefaultCSVOptions())
	}
}

// ReadFile reads a prediction file, choosing the format by extension.
func ReadFile(path string, mem memory.Allocator) ([]evaluate.LabeledPrediction, error) {
	format := FormatFromPath(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%s: unsupported prediction format", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening predictions: %w", err)
	}
	defer f.Close()

	predictions, err := readerFor(f, format, mem).Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return predictions, nil
}

// WriteFile writes predictions to path, choosing the format by extension.
func WriteFile(path string, predictions []evaluate.LabeledPrediction, mem memory.Allocator) (err error) {
	format := FormatFromPath(path)
	if format == FormatUnknown {
		return fmt.Errorf("%s: unsupported prediction format", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating predictions file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing predictions file: %w", closeErr)
		}
	}()

	if err := writerFor(f, format, mem).Write(predictions); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
