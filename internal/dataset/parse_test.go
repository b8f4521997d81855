package dataset

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"breath.csv", FormatCSV, false},
		{"BREATH.CSV", FormatCSV, false},
		{"raw.txt", FormatCSV, false},
		{"sensors.tsv", FormatTSV, false},
		{"records.json", FormatJSON, false},
		{"book.xlsx", FormatXLSX, false},
		{"notes.pdf", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_CSV(t *testing.T) {
	raw := []byte("\xef\xbb\xbfsensor_1, sensor_2,label,\n0.5,1.2,healthy,x\n\n0.7,,sick\n")
	tbl, err := Parse(FormatCSV, raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"sensor_1", "sensor_2", "label", "column_4"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	want := []map[string]any{
		{"sensor_1": 0.5, "sensor_2": 1.2, "label": "healthy", "column_4": "x"},
		{"sensor_1": 0.7, "sensor_2": nil, "label": "sick", "column_4": nil},
	}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_TSV(t *testing.T) {
	tbl, err := Parse(FormatTSV, []byte("a\tb\n1\ttrue\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
	assert.Equal(t, map[string]any{"a": 1.0, "b": true}, tbl.Rows[0])
}

func TestParse_NaNAndInfAreMissing(t *testing.T) {
	tbl, err := Parse(FormatCSV, []byte("t,v\n0,1.5\n1,NaN\n2,nan\n3,inf\n4,-Infinity\n"))
	require.NoError(t, err)

	require.Equal(t, 5, tbl.Len())
	assert.Equal(t, 1.5, tbl.Rows[0]["v"])
	for _, row := range tbl.Rows[1:] {
		assert.Nil(t, row["v"], "row %v", row["t"])
	}
	_, err = json.Marshal(tbl.Rows)
	assert.NoError(t, err)
}

func TestParse_DuplicateHeaders(t *testing.T) {
	tbl, err := Parse(FormatCSV, []byte("a,a,a_2,,b\n1,2,3,4,5\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a_3", "a_2", "column_4", "b"}, tbl.Columns)
	assert.Equal(t, map[string]any{"a": 1.0, "a_3": 2.0, "a_2": 3.0, "column_4": 4.0, "b": 5.0}, tbl.Rows[0])
}

func TestParse_EmptyFileHasNoColumns(t *testing.T) {
	_, err := Parse(FormatCSV, nil)
	assert.ErrorContains(t, err, "no columns")
}

func TestParse_JSONLayouts(t *testing.T) {
	t.Run("records keep document key order", func(t *testing.T) {
		tbl, err := Parse(FormatJSON, []byte(`[{"z":1,"a":"x"},{"z":2,"a":"y","m":true}]`))
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "a", "m"}, tbl.Columns)
		assert.Equal(t, 2, tbl.Len())
	})

	t.Run("service shape", func(t *testing.T) {
		tbl, err := Parse(FormatJSON, []byte(`{"columns":["f1","f2"],"data":[{"f1":1,"f2":2}]}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"f1", "f2"}, tbl.Columns)
		assert.Equal(t, 2.0, tbl.Rows[0]["f2"])
	})

	t.Run("column map pads short columns", func(t *testing.T) {
		tbl, err := Parse(FormatJSON, []byte(`{"b":[1,2,3],"a":["x"]}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, tbl.Columns)
		require.Equal(t, 3, tbl.Len())
		assert.Nil(t, tbl.Rows[2]["a"])
	})

	t.Run("scalar is rejected", func(t *testing.T) {
		_, err := Parse(FormatJSON, []byte(`42`))
		assert.Error(t, err)
	})
}

func TestParse_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"time", "co2"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{1, 410.5}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{2, 415}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := Parse(FormatXLSX, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "co2"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, 410.5, tbl.Rows[0]["co2"])
}

func TestTable_ProjectAndHead(t *testing.T) {
	tbl := &Table{
		Columns: []string{"a", "b", "c"},
		Rows: []map[string]any{
			{"a": 1.0, "b": "x", "c": nil},
			{"a": 2.5, "b": "y", "c": true},
		},
	}

	p, err := tbl.Project([]string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, p.Columns)
	assert.Equal(t, map[string]any{"c": true, "a": 2.5}, p.Rows[1])

	_, err = tbl.Project([]string{"nope"})
	assert.Error(t, err)

	same, err := tbl.Project(nil)
	require.NoError(t, err)
	assert.Same(t, tbl, same)

	assert.Equal(t, [][]string{{"1", "x", ""}}, tbl.Head(1))
	assert.Len(t, tbl.Head(10), 2)
}
