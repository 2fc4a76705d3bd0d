package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"reflect"

	"github.com/gocarina/gocsv"
)

// CSVExporter renders slices of csv-tagged structs.
type CSVExporter struct {
	delimiter rune
}

// NewCSVExporter builds a CSV exporter. A zero delimiter means a comma.
func NewCSVExporter(delimiter rune) *CSVExporter {
	if delimiter == 0 {
		delimiter = ','
	}
	return &CSVExporter{delimiter: delimiter}
}

// Render produces CSV bytes with a header row taken from the csv struct tags.
func (e *CSVExporter) Render(rows interface{}) ([]byte, error) {
	if err := requireSlice(rows); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = e.delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(writer)); err != nil {
		return nil, fmt.Errorf("marshal csv: %w", err)
	}
	return buf.Bytes(), nil
}

// TableOf converts csv-tagged rows into a Table using the same column names.
func TableOf(title string, rows interface{}) (Table, error) {
	if err := requireSlice(rows); err != nil {
		return Table{}, err
	}
	raw, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return Table{}, fmt.Errorf("marshal rows: %w", err)
	}
	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read rows: %w", err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("rows have no csv columns")
	}
	return Table{Title: title, Headers: records[0], Rows: records[1:]}, nil
}

func requireSlice(rows interface{}) error {
	v := reflect.ValueOf(rows)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice {
		return fmt.Errorf("export rows must be a slice, got %T", rows)
	}
	return nil
}
