package normalize

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Table is a parsed CSV upload: the header row in file order plus data
// rows keyed by those headers. Keeping the header slice preserves column
// order for Normalize.
type Table struct {
	Headers []string
	Rows    []map[string]any
}

// ReadCSV parses CSV data into a Table ready for Normalize. The first
// line is the header row. Short records pad with empty cells; cells
// beyond the header row (malformed trailing delimiters) are dropped.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	table := &Table{Headers: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", len(table.Rows)+2, err)
		}
		row := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Normalize re-keys every row to the canonical key set, overlaying
// values in the file's column order. When two columns alias the same
// canonical key, the later column wins.
func (t *Table) Normalize() []map[string]any {
	records := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		records = append(records, normalizeRow(t.Headers, row))
	}
	return records
}
