// Package dataset holds the tabular data the wizard moves between steps:
// parsing of imported files, the handle-based store that keeps raw blobs out
// of the workflow state, a watcher for the data directory and summaries of
// profiling reports.
package dataset

import (
	"fmt"
	"math"
	"strconv"
)

// Table is the normalized column/row shape every parser produces and every
// service exchanges: {columns: [...], data: [{col: value}, ...]}.
type Table struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"data"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the table declares the column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Project returns a table restricted to the given columns. Unknown columns
// are an error; an empty list returns the table unchanged.
func (t *Table) Project(columns []string) (*Table, error) {
	if len(columns) == 0 {
		return t, nil
	}
	for _, c := range columns {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}
	out := &Table{Columns: append([]string(nil), columns...), Rows: make([]map[string]any, len(t.Rows))}
	for i, row := range t.Rows {
		r := make(map[string]any, len(columns))
		for _, c := range columns {
			r[c] = row[c]
		}
		out.Rows[i] = r
	}
	return out, nil
}

// Head returns up to n rows rendered as strings, in column order.
func (t *Table) Head(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := make([][]string, 0, n)
	for _, row := range t.Rows[:n] {
		cells := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			cells[j] = FormatScalar(row[c])
		}
		out = append(out, cells)
	}
	return out
}

// FormatScalar renders a cell value for display.
func FormatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', 6, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// parseScalar turns a text cell into a float, bool or string. Empty cells
// and NaN or infinite numbers become nil so services see them as missing
// values; JSON has no encoding for the latter.
func parseScalar(s string) any {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	}
	switch s {
	case "true", "TRUE", "True":
		return true
	case "false", "FALSE", "False":
		return false
	}
	return s
}
