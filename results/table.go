// Package results reads evaluation result tables and loads them, by their
// manifest metadata, into long-format tables for reporting.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carbocation/rtorder"
	"gopkg.in/guregu/null.v3"
)

// Table is a header plus rows of text cells. Rows always have len(Header)
// cells once they have passed through ReadTable or Append.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable reads a delimited table. The delimiter is sniffed, defaulting to
// a comma. Short rows are padded with empty cells.
func ReadTable(r io.Reader) (Table, error) {
	delim, full, err := rtorder.DelimitedReader(r, ',')
	if err != nil {
		return Table{}, err
	}

	cr := csv.NewReader(full)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return Table{}, err
	}
	if len(rows) == 0 {
		return Table{}, fmt.Errorf("table has no header")
	}

	t := Table{Header: UniqueNames(rows[0]), Rows: make([][]string, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		if len(row) > len(t.Header) {
			return Table{}, fmt.Errorf("row %d has %d cells but the header has %d", i+2, len(row), len(t.Header))
		}
		t.Rows = append(t.Rows, pad(row, len(t.Header)))
	}

	return t, nil
}

// UniqueNames returns names with every name that repeats an earlier one, or
// one of reserved, suffixed with _2, _3, ... until it is unique. Append aligns
// columns by name, so duplicate names would lose data.
func UniqueNames(names []string, reserved ...string) []string {
	seen := make(map[string]struct{}, len(names)+len(reserved))
	for _, name := range reserved {
		seen[name] = struct{}{}
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		unique := name
		for n := 2; ; n++ {
			if _, exists := seen[unique]; !exists {
				break
			}
			unique = fmt.Sprintf("%s_%d", name, n)
		}
		seen[unique] = struct{}{}
		out = append(out, unique)
	}

	return out
}

func pad(row []string, n int) []string {
	if len(row) == n {
		return row
	}
	out := make([]string, n)
	copy(out, row)

	return out
}

// WriteTable writes t with the given delimiter.
func WriteTable(w io.Writer, t Table, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim

	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}

	return cw.Error()
}

// Index returns the position of the named column, or -1.
func (t Table) Index(name string) int {
	for i, v := range t.Header {
		if v == name {
			return i
		}
	}

	return -1
}

// Column returns the cells of the named column.
func (t Table) Column(name string) ([]string, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("no column named %q", name)
	}

	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[idx])
	}

	return out, nil
}

// Floats parses the named column. Empty, NA and NaN cells are null.
func (t Table) Floats(name string) ([]null.Float, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}

	out := make([]null.Float, 0, len(cells))
	for i, cell := range cells {
		v, err := ParseFloatCell(cell)
		if err != nil {
			return nil, fmt.Errorf("column %q, row %d: %w", name, i+1, err)
		}
		out = append(out, v)
	}

	return out, nil
}

// ParseFloatCell treats empty, NA and NaN cells as missing.
func ParseFloatCell(cell string) (null.Float, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToUpper(cell) {
	case "", "NA", "NAN", "NULL":
		return null.Float{}, nil
	}

	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return null.Float{}, err
	}

	return null.FloatFrom(v), nil
}

// IsNumeric reports whether every non-missing cell of the named column parses
// as a number and at least one cell is present.
func (t Table) IsNumeric(name string) bool {
	vals, err := t.Floats(name)
	if err != nil {
		return false
	}

	for _, v := range vals {
		if v.Valid {
			return true
		}
	}

	return false
}

// Valid drops the missing values.
func Valid(vals []null.Float) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v.Valid {
			out = append(out, v.Float64)
		}
	}

	return out
}

// Append adds the rows of other, aligning columns by name. Columns unknown to
// t are appended to its header; cells missing from either side are empty.
func (t *Table) Append(other Table) {
	for _, name := range other.Header {
		if t.Index(name) < 0 {
			t.Header = append(t.Header, name)
		}
	}

	for i, row := range t.Rows {
		t.Rows[i] = pad(row, len(t.Header))
	}

	positions := make([]int, len(other.Header))
	for i, name := range other.Header {
		positions[i] = t.Index(name)
	}

	for _, row := range other.Rows {
		out := make([]string, len(t.Header))
		for i, cell := range row {
			out[positions[i]] = cell
		}
		t.Rows = append(t.Rows, out)
	}
}
