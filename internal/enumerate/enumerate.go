// Package enumerate expands the subject and series layout of a data tree into
// the ordered list of files to extract.
package enumerate

import (
	"fmt"
	"path/filepath"

	"github.com/mrsinham/dicomharvest/internal/labels"
)

// DefaultPattern matches the slice files of one series directory.
const DefaultPattern = "*.dcm"

// DefaultSeriesTypes are the BraTS 2021 MRI sequences.
var DefaultSeriesTypes = []string{"FLAIR", "T1wCE", "T1w", "T2w"}

// Options locates files under Root/<subject key>/<series>/<Pattern>.
type Options struct {
	Root        string
	SeriesTypes []string
	Pattern     string
}

// Task is one file to extract. Index is its position in submission order.
type Task struct {
	Index   int
	Path    string
	Subject labels.Subject
	Series  string
}

// Paths lists the files of every subject and series type. Subjects keep their
// given order, series types their declared order, and files within a
// directory are sorted lexically. Missing directories contribute nothing.
func Paths(opts Options, subjects []labels.Subject) ([]Task, error) {
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if len(opts.SeriesTypes) == 0 {
		opts.SeriesTypes = DefaultSeriesTypes
	}
	if _, err := filepath.Match(opts.Pattern, ""); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", opts.Pattern, err)
	}

	var tasks []Task
	for _, s := range subjects {
		for _, series := range opts.SeriesTypes {
			glob := filepath.Join(opts.Root, s.Key, series, opts.Pattern)
			matches, err := filepath.Glob(glob)
			if err != nil {
				return nil, fmt.Errorf("glob %s: %w", glob, err)
			}
			for _, m := range matches {
				tasks = append(tasks, Task{Index: len(tasks), Path: m, Subject: s, Series: series})
			}
		}
	}
	return tasks, nil
}
