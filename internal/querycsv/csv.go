// Package querycsv reads the CSV that bean-query prints with -f csv.
package querycsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// AccountHeader is the first header cell of an account balance query.
const AccountHeader = "account"

// Row is one account balance row: the account name followed by one or more
// amount cells.
type Row struct {
	Account string
	Cells   []string
}

// Raw joins the amount cells back into a single comma-separated inventory.
func (r Row) Raw() string {
	return strings.Join(r.Cells, ", ")
}

// ReadRows reads account balance rows. A first row whose first cell is
// "account" (any case) is treated as a header and skipped. Rows with an
// empty account cell are ignored.
func ReadRows(r io.Reader) ([]Row, error) {
	records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	if strings.EqualFold(records[0][0], AccountHeader) {
		records = records[1:]
	}

	var rows []Row
	for _, rec := range records {
		if rec[0] == "" {
			continue
		}
		rows = append(rows, UnmarshalRow(rec))
	}
	return rows, nil
}

// UnmarshalRow converts a trimmed CSV record into a Row. Empty trailing
// amount cells are dropped.
func UnmarshalRow(record []string) Row {
	row := Row{Account: record[0]}
	for _, cell := range record[1:] {
		if cell != "" {
			row.Cells = append(row.Cells, cell)
		}
	}
	return row
}

// Table is a generic query result: a header and its records.
type Table struct {
	Header  []string
	Records [][]string
	index   map[string]int
}

// ReadTable reads a query result whose first row is the header.
func ReadTable(r io.Reader) (*Table, error) {
	records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	t := &Table{index: make(map[string]int)}
	if len(records) == 0 {
		return t, nil
	}
	t.Header = records[0]
	for i, h := range t.Header {
		t.index[strings.ToLower(h)] = i
	}
	t.Records = records[1:]
	return t, nil
}

// Get returns the named column of record i, or "" if the column is absent.
func (t *Table) Get(i int, column string) string {
	col, ok := t.index[strings.ToLower(column)]
	if !ok || i < 0 || i >= len(t.Records) {
		return ""
	}
	rec := t.Records[i]
	if col >= len(rec) {
		return ""
	}
	return rec[col]
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Records)
}

func readAll(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading query CSV: %w", err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
