// Package query implements case-insensitive substring filtering over tabular
// data. The catalog search and the CSV query tool share it.
package query

import (
	"fmt"
	"strings"
)

// Contains reports whether value contains query, ignoring case. An empty
// query matches everything.
func Contains(value, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(query))
}

// Match is Contains for a cell that may be missing. Missing and empty cells
// never match a non-empty query.
func Match(value string, present bool, query string) bool {
	if query == "" {
		return true
	}
	if !present || value == "" {
		return false
	}
	return Contains(value, query)
}

// Filter restricts a column to cells containing Query. A Filter with an empty
// Query is inactive.
type Filter struct {
	Column string
	Query  string
}

// Active reports whether the filter restricts anything.
func (f Filter) Active() bool {
	return f.Query != ""
}

// MissingColumnError is returned when an active filter names a column the
// table does not have.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// Table is a header plus rows of cells. Rows may be shorter than the header;
// the absent trailing cells are treated as missing.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Cell returns the cell at col in row, and whether it exists.
func Cell(row []string, col int) (string, bool) {
	if col < 0 || col >= len(row) {
		return "", false
	}
	return row[col], true
}

// Filter returns a new table holding the rows that satisfy every active
// filter. Row order is preserved and rows are shared with t, not copied.
func (t *Table) Filter(filters ...Filter) (*Table, error) {
	type bound struct {
		col   int
		query string
	}

	active := make([]bound, 0, len(filters))
	for _, f := range filters {
		if !f.Active() {
			continue
		}
		idx, ok := t.ColumnIndex(f.Column)
		if !ok {
			return nil, &MissingColumnError{Column: f.Column}
		}
		active = append(active, bound{col: idx, query: f.Query})
	}

	out := &Table{Columns: t.Columns}
	if len(active) == 0 {
		out.Rows = t.Rows
		return out, nil
	}

	out.Rows = make([][]string, 0, len(t.Rows))
rows:
	for _, row := range t.Rows {
		for _, b := range active {
			v, ok := Cell(row, b.col)
			if !Match(v, ok, b.query) {
				continue rows
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
