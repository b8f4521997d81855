package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a supported input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for file extensions no parser handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DetectFormat derives the format from a file name's extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Supported reports whether a file name has a parseable extension.
func Supported(name string) bool {
	_, err := DetectFormat(name)
	return err == nil
}

// Parse decodes raw file content into a Table.
func Parse(format Format, raw []byte) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch format {
	case FormatCSV:
		t, err = parseDelimited(raw, ',')
	case FormatTSV:
		t, err = parseDelimited(raw, '\t')
	case FormatJSON:
		t, err = parseJSON(raw)
	case FormatXLSX:
		t, err = parseXLSX(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("failed to parse %s: no columns found", format)
	}
	return t, nil
}

func parseDelimited(raw []byte, sep rune) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = sep == ','

	header, err := r.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	return fromRecords(header, func() ([]string, error) { return r.Read() })
}

func parseXLSX(raw []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	next := 1
	return fromRecords(rows[0], func() ([]string, error) {
		if next >= len(rows) {
			return nil, io.EOF
		}
		next++
		return rows[next-1], nil
	})
}

// fromRecords builds a table from a header and a record iterator. Short rows
// are padded with missing values, extra cells are dropped, blank header
// cells get positional names and repeated names get a numeric suffix.
func fromRecords(header []string, next func() ([]string, error)) (*Table, error) {
	cols := headerNames(header)
	t := &Table{Columns: cols}
	for {
		rec, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(rec) {
			continue
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if i < len(rec) {
				row[c] = parseScalar(strings.TrimSpace(rec[i]))
			} else {
				row[c] = nil
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// headerNames cleans a header row into unique column names: "a,a,a" becomes
// a, a_2, a_3.
func headerNames(header []string) []string {
	cols := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		taken[h] = true
		cols[i] = h
	}
	seen := make(map[string]bool, len(header))
	for i, c := range cols {
		if !seen[c] {
			seen[c] = true
			continue
		}
		name := c
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", c, n)
		}
		taken[name] = true
		seen[name] = true
		cols[i] = name
	}
	return cols
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseJSON accepts three layouts: an array of records, the service shape
// {"columns": [...], "data": [...]}, and a column map {"col": [values]}.
func parseJSON(raw []byte) (*Table, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &Table{}, nil
	}

	if trimmed[0] == '[' {
		var rows []map[string]any
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, err
		}
		cols, err := recordKeyOrder(trimmed)
		if err != nil {
			return nil, err
		}
		return &Table{Columns: mergeColumns(cols, rows), Rows: rows}, nil
	}

	var shaped Table
	if err := json.Unmarshal(trimmed, &shaped); err == nil && len(shaped.Columns) > 0 {
		return &shaped, nil
	}

	cols, err := objectKeyOrder(json.NewDecoder(bytes.NewReader(trimmed)))
	if err != nil {
		return nil, err
	}
	var byColumn map[string][]any
	if err := json.Unmarshal(trimmed, &byColumn); err != nil {
		return nil, fmt.Errorf("expected records, {columns,data} or column arrays: %w", err)
	}
	n := 0
	for _, vals := range byColumn {
		if len(vals) > n {
			n = len(vals)
		}
	}
	t := &Table{Columns: cols, Rows: make([]map[string]any, n)}
	for i := 0; i < n; i++ {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			if vals := byColumn[c]; i < len(vals) {
				row[c] = vals[i]
			} else {
				row[c] = nil
			}
		}
		t.Rows[i] = row
	}
	return t, nil
}

// recordKeyOrder returns the key order of the first record of a JSON array.
func recordKeyOrder(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // [
		return nil, err
	}
	if !dec.More() {
		return nil, nil
	}
	return objectKeyOrder(dec)
}

// objectKeyOrder reads one JSON object from dec and returns its keys in
// document order.
func objectKeyOrder(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	_, err = dec.Token() // }
	return keys, err
}

// mergeColumns appends, sorted, the keys that appear only in later records.
func mergeColumns(cols []string, rows []map[string]any) []string {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[c] = true
	}
	var extra []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}
