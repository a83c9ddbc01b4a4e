package io

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
	"github.com/paveg/churnscope/internal/validation"
)

// Read reads CSV data and returns the predictions in file order.
func (r *CSVReader) Read() ([]evaluate.LabeledPrediction, error) {
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading CSV data: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewEmptyInputError("CSVReader.Read")
	}

	header, err := r.newCSVReader(data).Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	for _, col := range []string{ColumnActual, ColumnScore} {
		if !slices.Contains(header, col) {
			return nil, errors.NewValidationError("CSVReader.Read", col, "required column missing")
		}
	}

	var predictions []evaluate.LabeledPrediction
	if err := gocsv.UnmarshalCSV(r.newCSVReader(data), &predictions); err != nil {
		return nil, errors.NewInvalidRecordError("CSVReader.Read", "", 0, err)
	}
	return checkPredictions("CSVReader.Read", predictions)
}

func (r *CSVReader) newCSVReader(data []byte) *csv.Reader {
	cr := csv.NewReader(bytes.NewReader(data))
	if r.options.Delimiter != 0 {
		cr.Comma = r.options.Delimiter
	}
	cr.Comment = r.options.Comment
	cr.TrimLeadingSpace = true
	return cr
}

// Write writes the predictions as CSV with an actual,score header.
func (w *CSVWriter) Write(predictions []evaluate.LabeledPrediction) error {
	cw := csv.NewWriter(w.writer)
	if w.options.Delimiter != 0 {
		cw.Comma = w.options.Delimiter
	}
	if err := gocsv.MarshalCSV(&predictions, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}

// checkPredictions rejects empty input and NaN scores.
func checkPredictions(op string, predictions []evaluate.LabeledPrediction) ([]evaluate.LabeledPrediction, error) {
	if err := validation.ValidateNotEmpty(len(predictions), op); err != nil {
		return nil, err
	}
	scores := make([]float64, len(predictions))
	for i, p := range predictions {
		scores[i] = p.Score
	}
	if err := validation.ValidateFinite(scores, ColumnScore, op); err != nil {
		return nil, err
	}
	return predictions, nil
}
