// Package pipeline runs the extractor over every file of a data tree and
// writes the resulting metadata table.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrsinham/dicomharvest/internal/enumerate"
	"github.com/mrsinham/dicomharvest/internal/extract"
	"github.com/mrsinham/dicomharvest/internal/labels"
	"github.com/mrsinham/dicomharvest/internal/logging"
	"github.com/mrsinham/dicomharvest/internal/schema"
	"github.com/mrsinham/dicomharvest/internal/table"
)

// Defaults for a BraTS 2021 layout.
const (
	DefaultDataDir  = "./data/"
	DefaultLabels   = "train_labels.csv"
	DefaultTrainDir = "train"
	DefaultOutput   = "train_metadata.csv"
	DefaultWorkers  = 14
)

// Provenance column names.
const (
	ColSubject = "subject"
	ColSeries  = "series"
	ColPath    = "path"
)

// ErrInvalidOptions is returned when options are rejected before any work.
var ErrInvalidOptions = errors.New("invalid pipeline options")

// Options configures a run. Empty paths default to their conventional
// location under DataDir.
type Options struct {
	DataDir    string
	LabelsPath string
	TrainDir   string
	OutputPath string

	IDColumn    string
	IDWidth     int
	SeriesTypes []string
	Pattern     string

	// Workers is the pool size. Zero means DefaultWorkers.
	Workers int
	Schema  schema.Schema
	// Provenance prepends the subject, series and path columns.
	Provenance bool

	Logger           *zap.Logger
	ProgressCallback func(done, total int)
}

// Result summarises a finished run.
type Result struct {
	Rows        int
	Columns     []string
	Files       int
	Warnings    int
	Failed      int
	Duration    time.Duration
	OutputPath  string
	OutputBytes int64
}

// WithDefaults fills unset options.
func (o Options) WithDefaults() Options {
	if o.DataDir == "" {
		o.DataDir = DefaultDataDir
	}
	if o.LabelsPath == "" {
		o.LabelsPath = filepath.Join(o.DataDir, DefaultLabels)
	}
	if o.TrainDir == "" {
		o.TrainDir = filepath.Join(o.DataDir, DefaultTrainDir)
	}
	if o.OutputPath == "" {
		o.OutputPath = filepath.Join(o.DataDir, DefaultOutput)
	}
	if o.IDColumn == "" {
		o.IDColumn = labels.DefaultIDColumn
	}
	if o.IDWidth <= 0 {
		o.IDWidth = labels.DefaultWidth
	}
	if len(o.SeriesTypes) == 0 {
		o.SeriesTypes = enumerate.DefaultSeriesTypes
	}
	if o.Pattern == "" {
		o.Pattern = enumerate.DefaultPattern
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Schema.Version == "" && len(o.Schema.Fields) == 0 && len(o.Schema.MetaFields) == 0 {
		o.Schema, _ = schema.Get(schema.Default)
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// Validate checks the options that can be checked without reading any data.
func (o Options) Validate() error {
	if o.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidOptions, o.Workers)
	}
	if len(o.SeriesTypes) == 0 {
		return fmt.Errorf("%w: no series types", ErrInvalidOptions)
	}
	if _, err := filepath.Match(o.Pattern, ""); err != nil {
		return fmt.Errorf("%w: pattern %q: %w", ErrInvalidOptions, o.Pattern, err)
	}
	if o.OutputPath == "" {
		return fmt.Errorf("%w: no output path", ErrInvalidOptions)
	}
	info, err := os.Stat(o.LabelsPath)
	if err != nil {
		return fmt.Errorf("%w: %w", labels.ErrLabelFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", labels.ErrLabelFile, o.LabelsPath)
	}
	return nil
}

// recordExtractor is satisfied by *extract.Extractor.
type recordExtractor interface {
	Extract(path string) (extract.Record, error)
}

// taskResult is what a worker reports for one task.
type taskResult struct {
	index  int
	record extract.Record
	err    error
}

// Run executes the whole pipeline: load labels, enumerate files, extract in
// parallel and write the table.
func Run(opts Options) (*Result, error) {
	start := time.Now()
	opts = opts.WithDefaults()
	log := opts.Logger

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	resolved, warnings, err := schema.Resolve(opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	for _, w := range warnings {
		log.Warn("schema field", zap.Error(w))
	}

	subjects, err := labels.Load(opts.LabelsPath, labels.Options{IDColumn: opts.IDColumn, Width: opts.IDWidth})
	if err != nil {
		return nil, err
	}
	tasks, err := enumerate.Paths(enumerate.Options{
		Root:        opts.TrainDir,
		SeriesTypes: opts.SeriesTypes,
		Pattern:     opts.Pattern,
	}, subjects)
	if err != nil {
		return nil, err
	}
	log.Info("starting extraction",
		zap.Int("subjects", len(subjects)),
		zap.Int("files", len(tasks)),
		zap.Int("workers", opts.Workers),
		zap.String("schema", string(resolved.Version)))
	if len(tasks) == 0 {
		log.Warn("no files matched", zap.String("root", opts.TrainDir), zap.String("pattern", opts.Pattern))
	}

	records, warned, failed := extractAll(tasks, extract.New(resolved), opts, resolved.Columns())

	tbl := table.FromRecords(records)
	if len(records) == 0 {
		tbl.Columns = expectedColumns(resolved, opts.Provenance)
	}
	if err := table.WriteFile(opts.OutputPath, tbl, resolved.IncludeIndex); err != nil {
		return nil, err
	}

	res := &Result{
		Rows:       len(tbl.Rows),
		Columns:    tbl.Columns,
		Files:      len(tasks),
		Warnings:   warned,
		Failed:     failed,
		Duration:   time.Since(start),
		OutputPath: opts.OutputPath,
	}
	if info, err := os.Stat(opts.OutputPath); err == nil {
		res.OutputBytes = info.Size()
	}
	return res, nil
}

// extractAll runs the tasks on a fixed pool and returns the records in task
// order.
func extractAll(tasks []enumerate.Task, ex recordExtractor, opts Options, columns []string) (records []extract.Record, warned, failed int) {
	log := opts.Logger
	records = make([]extract.Record, len(tasks))
	if len(tasks) == 0 {
		return records, 0, 0
	}

	numWorkers := opts.Workers
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}

	taskChan := make(chan enumerate.Task, len(tasks))
	resultChan := make(chan taskResult, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				resultChan <- extractOne(ex, task)
			}
		}()
	}

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	completed := 0
	for r := range resultChan {
		task := tasks[r.index]
		fields := []zap.Field{
			zap.String("path", task.Path),
			zap.String("subject", task.Subject.Key),
			zap.String("series", task.Series),
			zap.Error(r.err),
		}

		rec := r.record
		switch {
		case r.err == nil:
		case extract.IsWarning(r.err):
			warned++
			log.Warn("decode warning", fields...)
		default:
			failed++
			log.Warn("extraction failed", fields...)
			rec = extract.NullRecord(task.Path, columns)
		}
		if opts.Provenance {
			rec = rec.Prepend(
				extract.Field{Name: ColSubject, Value: task.Subject.Key},
				extract.Field{Name: ColSeries, Value: task.Series},
				extract.Field{Name: ColPath, Value: task.Path},
			)
		}
		records[r.index] = rec

		completed++
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(completed, len(tasks))
		}
	}
	return records, warned, failed
}

// extractOne isolates one task: a panic becomes an error for that task only.
func extractOne(ex recordExtractor, task enumerate.Task) (res taskResult) {
	res.index = task.Index
	defer func() {
		if p := recover(); p != nil {
			res.record = extract.Record{}
			res.err = fmt.Errorf("panic extracting %s: %v\n%s", task.Path, p, debug.Stack())
		}
	}()
	res.record, res.err = ex.Extract(task.Path)
	return res
}

func expectedColumns(r *schema.Resolved, provenance bool) []string {
	cols := r.Columns()
	if provenance {
		cols = append([]string{ColSubject, ColSeries, ColPath}, cols...)
	}
	return cols
}
