package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/paveg/churnscope/internal/errors"
)

// LoadCSV reads the churn table, drops the identifier columns and
// validates every row. Boolean columns accept 0/1 as well as true/false.
func LoadCSV(r io.Reader) ([]Customer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewEmptyInputError("LoadCSV")
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	for _, col := range RequiredColumns() {
		if !slices.Contains(header, col) {
			return nil, errors.NewValidationError("LoadCSV", col, "required column missing")
		}
	}

	var rows []Customer
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, errors.NewInvalidRecordError("LoadCSV", "", 0, err)
	}
	if len(rows) == 0 {
		return nil, errors.NewEmptyInputError("LoadCSV")
	}

	for i := range rows {
		rows[i].normalize()
		if err := rows[i].validate(i + 1); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// LoadCSVFile opens path and calls LoadCSV.
func LoadCSVFile(path string) ([]Customer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()

	rows, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", path, err)
	}
	return rows, nil
}

// WriteCSV writes rows back out with the cleaned column set.
func WriteCSV(w io.Writer, rows []Customer) error {
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}
