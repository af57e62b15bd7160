package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"emcal/domain/ingestion"
	apperrors "emcal/internal/errors"
)

// DataReader loads Excel and CSV files into raw tables for the schema
// normalizer. It makes no attempt to interpret the shape; that is the
// normalizer's job.
type DataReader struct {
	name      string
	filePaths []string
}

// NewDataReader creates a reader over one or more files. The name labels
// the source ("simulated", "measured") in diagnostics.
func NewDataReader(name string, filePaths ...string) *DataReader {
	return &DataReader{name: name, filePaths: filePaths}
}

// Name identifies the source.
func (r *DataReader) Name() string { return r.name }

// Tables reads every configured file. Context is accepted to satisfy the
// source contract; file reads are not cancellable mid-file.
func (r *DataReader) Tables(_ context.Context) ([]*ingestion.RawTable, error) {
	out := make([]*ingestion.RawTable, 0, len(r.filePaths))
	for _, path := range r.filePaths {
		table, err := r.readFile(path)
		if err != nil {
			return nil, apperrors.Wrapf(err, "reading %s", path)
		}
		out = append(out, table)
	}
	return out, nil
}

func (r *DataReader) readFile(path string) (*ingestion.RawTable, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("file not found: %s", path))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return r.readCSV(path)
	case ".xlsx":
		return r.readExcel(path)
	default:
		return nil, apperrors.New(apperrors.CodeBadInput,
			fmt.Sprintf("unsupported file type: %s", filepath.Ext(path)))
	}
}

func (r *DataReader) readExcel(path string) (*ingestion.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return buildTable(filepath.Base(path), rows)
}

func (r *DataReader) readCSV(path string) (*ingestion.RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return buildTable(filepath.Base(path), records)
}

// buildTable converts header + data rows into the raw table shape.
func buildTable(name string, rows [][]string) (*ingestion.RawTable, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	table := &ingestion.RawTable{Name: name, Headers: headers}
	for _, record := range rows[1:] {
		row := make(ingestion.RawRow, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
