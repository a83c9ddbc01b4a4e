package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
)

// jsonRecord accepts the label as a bool or as 0/1.
type jsonRecord struct {
	Actual *json.RawMessage `json:"actual"`
	Score  *float64         `json:"score"`
}

// Read reads JSON data and returns the predictions in input order.
func (r *JSONReader) Read() ([]evaluate.LabeledPrediction, error) {
	var (
		records []jsonRecord
		err     error
	)
	switch r.format {
	case JSONArray:
		records, err = r.readJSONArray()
	case JSONLines:
		records, err = r.readJSONLines()
	default:
		return nil, fmt.Errorf("unsupported JSON format: %d", r.format)
	}
	if err != nil {
		return nil, err
	}

	predictions := make([]evaluate.LabeledPrediction, len(records))
	for i, rec := range records {
		p, err := rec.toPrediction(i + 1)
		if err != nil {
			return nil, err
		}
		predictions[i] = p
	}
	return checkPredictions("JSONReader.Read", predictions)
}

// readJSONArray reads JSON array format.
func (r *JSONReader) readJSONArray() ([]jsonRecord, error) {
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading JSON data: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.NewEmptyInputError("JSONReader.Read")
	}

	var records []jsonRecord
	if unmarshalErr := json.Unmarshal(data, &records); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshaling JSON array: %w", unmarshalErr)
	}
	return records, nil
}

// readJSONLines reads JSON Lines format.
func (r *JSONReader) readJSONLines() ([]jsonRecord, error) {
	scanner := bufio.NewScanner(r.reader)
	var records []jsonRecord

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue // Skip empty lines
		}

		var record jsonRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("unmarshaling JSON line %d: %w", lineNum, err)
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning JSON lines: %w", err)
	}
	return records, nil
}

func (rec jsonRecord) toPrediction(row int) (evaluate.LabeledPrediction, error) {
	const op = "JSONReader.Read"
	if rec.Actual == nil {
		return evaluate.LabeledPrediction{}, errors.NewInvalidRecordError(op, ColumnActual, row,
			fmt.Errorf("missing field"))
	}
	if rec.Score == nil {
		return evaluate.LabeledPrediction{}, errors.NewInvalidRecordError(op, ColumnScore, row,
			fmt.Errorf("missing field"))
	}

	var actual bool
	switch strings.TrimSpace(string(*rec.Actual)) {
	case "true", "1":
		actual = true
	case "false", "0":
		actual = false
	default:
		return evaluate.LabeledPrediction{}, errors.NewInvalidRecordError(op, ColumnActual, row,
			fmt.Errorf("label must be a boolean or 0/1, got %s", *rec.Actual))
	}
	return evaluate.LabeledPrediction{Actual: actual, Score: *rec.Score}, nil
}

// Write writes the predictions as JSON.
func (w *JSONWriter) Write(predictions []evaluate.LabeledPrediction) error {
	switch w.format {
	case JSONArray:
		return w.writeJSONArray(predictions)
	case JSONLines:
		return w.writeJSONLines(predictions)
	default:
		return fmt.Errorf("unsupported JSON format: %d", w.format)
	}
}

// writeJSONArray writes predictions as a JSON array.
func (w *JSONWriter) writeJSONArray(predictions []evaluate.LabeledPrediction) error {
	if predictions == nil {
		predictions = []evaluate.LabeledPrediction{}
	}
	encoder := json.NewEncoder(w.writer)
	if w.indent {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(predictions); err != nil {
		return fmt.Errorf("encoding JSON array: %w", err)
	}
	return nil
}

// writeJSONLines writes one JSON object per line.
func (w *JSONWriter) writeJSONLines(predictions []evaluate.LabeledPrediction) error {
	encoder := json.NewEncoder(w.writer)
	for i, p := range predictions {
		if err := encoder.Encode(p); err != nil {
			return fmt.Errorf("encoding JSON line %d: %w", i+1, err)
		}
	}
	return nil
}
