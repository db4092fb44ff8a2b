package main

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrsinham/dicomharvest/cmd/dicomharvest/progress"
	"github.com/mrsinham/dicomharvest/internal/logging"
)

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "dicomharvest",
		Short: "Extract DICOM metadata from a labelled dataset into a CSV table",
		Long: `dicomharvest reads a label table, walks <data-dir>/train/<subject>/<series>/*.dcm
and writes one row of whitelisted metadata per file.

Configuration comes from defaults, an optional YAML file (--config), DICOMHARVEST_*
environment variables and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		newExtractCmd(stdout, stderr),
		newSynthCmd(stdout, stderr),
		newInitCmd(stdout),
		newFieldsCmd(stdout),
		newVersionCmd(stdout),
	)
	return root
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "dicomharvest %s\n", version)
		},
	}
}

// newLogger builds the command logger. While the progress screen owns the
// terminal, log lines are held back and flushed once it closes.
func newLogger(level, format, mode string, stderr io.Writer) (*zap.Logger, func(), error) {
	out := stderr
	var held *syncBuffer
	if mode == progress.ModeTUI {
		held = &syncBuffer{}
		out = held
	}

	log, err := logging.New(logging.Options{
		Level:  level,
		Format: format,
		Writer: out,
		Color:  progress.Resolve(progress.ModeAuto, stderr) == progress.ModeTUI,
	})
	if err != nil {
		return nil, nil, err
	}

	flush := func() {
		_ = log.Sync()
		if held != nil {
			_, _ = held.WriteTo(stderr)
		}
	}
	return log, flush, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) WriteTo(w io.Writer) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.WriteTo(w)
}
