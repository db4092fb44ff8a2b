// Package table assembles extracted records into a rectangular table and
// writes it as CSV.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mrsinham/dicomharvest/internal/extract"
)

// Table is a header plus rows of cell values aligned with it.
type Table struct {
	Columns []string
	Rows    [][]any
}

// FromRecords builds a table whose columns are the union of all record field
// names in first-seen order. A record lacking a column gets a null cell.
func FromRecords(records []extract.Record) Table {
	var t Table
	pos := make(map[string]int)
	for _, r := range records {
		for _, f := range r.Fields {
			if _, ok := pos[f.Name]; !ok {
				pos[f.Name] = len(t.Columns)
				t.Columns = append(t.Columns, f.Name)
			}
		}
	}

	t.Rows = make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(t.Columns))
		for _, f := range r.Fields {
			row[pos[f.Name]] = f.Value
		}
		t.Rows[i] = row
	}
	return t
}

// WriteCSV writes t to w. With includeIndex the row number is written as a
// leading column with an empty header.
func WriteCSV(w io.Writer, t Table, includeIndex bool) error {
	cw := csv.NewWriter(w)

	header := t.Columns
	if includeIndex {
		header = append([]string{""}, t.Columns...)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	cells := make([]string, len(header))
	for i, row := range t.Rows {
		off := 0
		if includeIndex {
			cells[0] = strconv.Itoa(i)
			off = 1
		}
		for j := range t.Columns {
			var v any
			if j < len(row) {
				v = row[j]
			}
			cells[off+j] = Format(v)
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes t to path atomically: the table goes to a temporary file
// in the same directory which is then renamed over path.
func WriteFile(path string, t Table, includeIndex bool) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = WriteCSV(tmp, t, includeIndex); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// Format renders one cell. Nil is the empty string.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case []string:
		parts := make([]string, len(x))
		for i, s := range x {
			parts[i] = quote(s)
		}
		return list(parts)
	case []int64:
		parts := make([]string, len(x))
		for i, n := range x {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return list(parts)
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = formatFloat(f)
		}
		return list(parts)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func list(parts []string) string {
	return "[" + strings.Join(parts, ", ") + "]"
}
