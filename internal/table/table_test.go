package table

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/dicomharvest/internal/extract"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, ""},
		{"string", "FLAIR", "FLAIR"},
		{"empty string", "", ""},
		{"true", true, "True"},
		{"false", false, "False"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"integral float", 5.0, "5.0"},
		{"fractional float", 0.9765625, "0.9765625"},
		{"negative float", -118.5, "-118.5"},
		{"zero float", 0.0, "0.0"},
		{"large float", 1234567.0, "1234567.0"},
		{"tiny float", 0.00001, "1e-05"},
		{"nan", math.NaN(), "nan"},
		{"time", time.Date(2021, 7, 1, 12, 30, 0, 0, time.UTC), "2021-07-01T12:30:00Z"},
		{"strings", []string{"ORIGINAL", "PRIMARY"}, "['ORIGINAL', 'PRIMARY']"},
		{"quoted string", []string{"it's"}, `['it\'s']`},
		{"ints", []int64{256, 256}, "[256, 256]"},
		{"floats", []float64{1, 0, 0, 0, 1, 0}, "[1.0, 0.0, 0.0, 0.0, 1.0, 0.0]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Format(tc.value); got != tc.expected {
				t.Errorf("Format(%#v) = %q, want %q", tc.value, got, tc.expected)
			}
		})
	}
}

func TestFromRecords_ColumnUnion(t *testing.T) {
	records := []extract.Record{
		{Fields: []extract.Field{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}},
		{Fields: []extract.Field{{Name: "c", Value: "3"}, {Name: "a", Value: "4"}}},
		{},
	}

	tbl := FromRecords(records)
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns)
	assert.Equal(t, [][]any{
		{"1", "2", nil},
		{"4", nil, "3"},
		{nil, nil, nil},
	}, tbl.Rows)
}

func TestWriteCSV(t *testing.T) {
	tbl := Table{
		Columns: []string{"PatientID", "PixelSpacing", "SAR"},
		Rows: [][]any{
			{"00001", []float64{0.5, 0.5}, nil},
			{"00023, b", nil, 1.25},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, false))
	assert.Equal(t,
		"PatientID,PixelSpacing,SAR\n"+
			"00001,\"[0.5, 0.5]\",\n"+
			"\"00023, b\",,1.25\n",
		buf.String())
}

func TestWriteCSV_PositionComponents(t *testing.T) {
	tbl := FromRecords([]extract.Record{{Fields: []extract.Field{
		{Name: "image_position_x", Value: 12.5},
		{Name: "image_position_y", Value: -3.0},
		{Name: "image_position_z", Value: 44.2},
	}}})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, false))
	assert.Equal(t,
		"image_position_x,image_position_y,image_position_z\n"+
			"12.5,-3.0,44.2\n",
		buf.String())
}

func TestWriteCSV_Index(t *testing.T) {
	tbl := Table{Columns: []string{"x"}, Rows: [][]any{{int64(1)}, {int64(2)}}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, true))
	assert.Equal(t, ",x\n0,1\n1,2\n", buf.String())
}

func TestWriteCSV_ShortRowPadsNulls(t *testing.T) {
	tbl := Table{Columns: []string{"a", "b"}, Rows: [][]any{{"1"}}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, false))
	assert.Equal(t, "a,b\n1,\n", buf.String())
}

func TestWriteFile_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "train_metadata.csv")
	tbl := Table{
		Columns: []string{"PatientID", "image_plane"},
		Rows:    [][]any{{"00001", "Axial"}, {"00023", nil}},
	}

	require.NoError(t, WriteFile(path, tbl, false))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, tbl, false))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}
