package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrsinham/dicomharvest/cmd/dicomharvest/progress"
	"github.com/mrsinham/dicomharvest/internal/config"
	"github.com/mrsinham/dicomharvest/internal/pipeline"
)

func newExtractCmd(stdout, stderr io.Writer) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the metadata table",
		Example: `  dicomharvest extract --data-dir ./data/
  dicomharvest extract --config dicomharvest.yaml --workers 4
  dicomharvest extract --schema v2 --series FLAIR,T2w --output flair_t2.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runExtract(cfg, stdout, stderr)
		},
	}

	d := config.Default()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "YAML configuration file")
	f.String("data-dir", d.DataDir, "Dataset root")
	f.String("labels", d.Labels, "Label table, relative to --data-dir unless absolute")
	f.String("id-column", d.IDColumn, "Label table column holding the subject id")
	f.Int("id-width", d.IDWidth, "Zero-padded width of subject directory names")
	f.String("train-dir", d.TrainDir, "Subject tree, relative to --data-dir unless absolute")
	f.String("pattern", d.Pattern, "File name pattern inside a series directory")
	f.StringSlice("series", d.Series, "Series types, in output order")
	f.Int("workers", d.Workers, "Number of parallel workers")
	f.String("schema", d.Schema, "Field whitelist version: v1, v2 or v3")
	f.StringSlice("fields", nil, "Replace the schema's dataset fields (see 'dicomharvest fields')")
	f.Bool("index", false, "Write a leading index column (default depends on --schema)")
	f.String("output", d.Output, "Output table, relative to --data-dir unless absolute")
	f.Bool("provenance", d.Provenance, "Prepend subject, series and path columns (off by default)")
	f.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
	f.String("log-format", d.LogFormat, "Log format: console or json")
	f.String("progress", d.Progress, "Progress display: auto, tui, plain or none")
	return cmd
}

func runExtract(cfg config.Config, stdout, stderr io.Writer) error {
	mode := progress.Resolve(cfg.Progress, stderr)
	log, flush, err := newLogger(cfg.LogLevel, cfg.LogFormat, mode, stderr)
	if err != nil {
		return err
	}
	defer flush()
	log = log.With(zap.String("run_id", uuid.NewString()))

	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	opts.Logger = log

	var res *pipeline.Result
	err = progress.Run(mode, stderr, "Extracting DICOM metadata", func(report progress.Func) error {
		opts.ProgressCallback = report
		var runErr error
		res, runErr = pipeline.Run(opts)
		return runErr
	})
	if err != nil {
		log.Error("extraction failed", zap.Error(err))
		return err
	}

	log.Info("extraction complete",
		zap.String("rows", humanize.Comma(int64(res.Rows))),
		zap.Int("columns", len(res.Columns)),
		zap.String("files", humanize.Comma(int64(res.Files))),
		zap.Int("warnings", res.Warnings),
		zap.Int("failed", res.Failed),
		zap.String("size", humanize.Bytes(uint64(res.OutputBytes))),
		zap.Duration("duration", res.Duration),
		zap.String("output", res.OutputPath))

	fmt.Fprintf(stdout, "Wrote %s rows (%s) to %s\n",
		humanize.Comma(int64(res.Rows)), humanize.Bytes(uint64(res.OutputBytes)), res.OutputPath)
	if res.Warnings > 0 || res.Failed > 0 {
		fmt.Fprintf(stdout, "%d files with warnings, %d files unreadable\n", res.Warnings, res.Failed)
	}
	return nil
}
