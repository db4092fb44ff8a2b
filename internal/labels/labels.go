// Package labels loads the per-subject label table that drives a run.
package labels

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Defaults for the BraTS 2021 label table.
const (
	DefaultIDColumn = "BraTS21ID"
	DefaultWidth    = 5
)

var (
	// ErrLabelFile is returned when the label table cannot be opened or read.
	ErrLabelFile = errors.New("label file")
	// ErrNoSubjects is returned when the label table has a header but no rows.
	ErrNoSubjects = errors.New("no subjects in label file")
)

// Subject is one row of the label table.
type Subject struct {
	// ID is the raw numeric identifier.
	ID int
	// Key is ID zero-padded to the configured width; it names the subject
	// directory on disk.
	Key string
	// Labels holds the remaining columns of the row, keyed by header.
	Labels map[string]string
}

// Options controls how the table is interpreted.
type Options struct {
	IDColumn string
	Width    int
}

func (o Options) withDefaults() Options {
	if o.IDColumn == "" {
		o.IDColumn = DefaultIDColumn
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	return o
}

// Key zero-pads id to width digits. Wider ids are kept whole.
func Key(id, width int) string {
	return fmt.Sprintf("%0*d", width, id)
}

// Load reads the label table at path. Subjects are returned in file order.
func Load(path string, opts Options) ([]Subject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLabelFile, err)
	}
	defer func() { _ = f.Close() }()

	subjects, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return subjects, nil
}

// Read parses a label table from r.
func Read(r io.Reader, opts Options) ([]Subject, error) {
	opts = opts.withDefaults()

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrLabelFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrLabelFile, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	idCol := -1
	for i, h := range header {
		if h == opts.IDColumn {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%w: missing column %q in header %v", ErrLabelFile, opts.IDColumn, header)
	}

	var subjects []Subject
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrLabelFile, row, err)
		}

		raw := strings.TrimSpace(rec[idCol])
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %s %q is not an integer", row, opts.IDColumn, raw)
		}
		if id < 0 {
			return nil, fmt.Errorf("row %d: %s %d is negative", row, opts.IDColumn, id)
		}

		s := Subject{ID: id, Key: Key(id, opts.Width), Labels: make(map[string]string, len(header)-1)}
		for i, h := range header {
			if i != idCol {
				s.Labels[h] = rec[i]
			}
		}
		subjects = append(subjects, s)
	}

	if len(subjects) == 0 {
		return nil, ErrNoSubjects
	}
	return subjects, nil
}
