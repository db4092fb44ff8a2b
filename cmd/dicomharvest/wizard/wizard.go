// Package wizard asks for the main settings of an extraction run in the
// terminal and turns the answers into a configuration file.
package wizard

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/mrsinham/dicomharvest/internal/config"
	"github.com/mrsinham/dicomharvest/internal/enumerate"
	"github.com/mrsinham/dicomharvest/internal/logging"
	"github.com/mrsinham/dicomharvest/internal/schema"
)

// answers holds the form values. huh binds text inputs to strings.
type answers struct {
	dataDir    string
	labels     string
	output     string
	schema     string
	series     []string
	workers    string
	index      bool
	provenance bool
	logFormat  string
	progress   string
}

func fromConfig(c config.Config) *answers {
	a := &answers{
		dataDir:    c.DataDir,
		labels:     c.Labels,
		output:     c.Output,
		schema:     c.Schema,
		series:     append([]string(nil), c.Series...),
		workers:    strconv.Itoa(c.Workers),
		provenance: c.Provenance,
		logFormat:  c.LogFormat,
		progress:   c.Progress,
	}
	if c.Index != nil {
		a.index = *c.Index
	} else if s, err := schema.Get(schema.Version(c.Schema)); err == nil {
		a.index = s.IncludeIndex
	}
	return a
}

// apply writes the answers over base and validates the result.
func (a *answers) apply(base config.Config) (config.Config, error) {
	c := base
	c.DataDir = strings.TrimSpace(a.dataDir)
	c.Labels = strings.TrimSpace(a.labels)
	c.Output = strings.TrimSpace(a.output)
	c.Schema = a.schema
	c.Series = append([]string(nil), a.series...)
	workers, err := strconv.Atoi(strings.TrimSpace(a.workers))
	if err != nil {
		return config.Config{}, fmt.Errorf("workers: %w", err)
	}
	c.Workers = workers
	c.Provenance = a.provenance
	c.LogFormat = a.logFormat
	c.Progress = a.progress

	// Only store the index setting when it differs from the schema default.
	c.Index = nil
	if s, err := schema.Get(schema.Version(c.Schema)); err == nil && s.IncludeIndex != a.index {
		index := a.index
		c.Index = &index
	}

	if err := c.Validate(); err != nil {
		return config.Config{}, err
	}
	return c, nil
}

func newForm(a *answers) *huh.Form {
	schemaOptions := make([]huh.Option[string], 0, len(schema.Versions()))
	for _, v := range schema.Versions() {
		schemaOptions = append(schemaOptions, huh.NewOption(string(v), string(v)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("data_dir").
				Title("Data directory").
				Description("Holds the label table and the train tree").
				Value(&a.dataDir).
				Validate(required("data directory")),

			huh.NewInput().
				Key("labels").
				Title("Label table").
				Description("Relative paths resolve against the data directory").
				Value(&a.labels).
				Validate(required("label table")),

			huh.NewInput().
				Key("output").
				Title("Output table").
				Value(&a.output).
				Validate(required("output table")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("schema").
				Title("Schema version").
				Options(schemaOptions...).
				Value(&a.schema),

			huh.NewMultiSelect[string]().
				Key("series").
				Title("Series types").
				Options(huh.NewOptions(enumerate.DefaultSeriesTypes...)...).
				Value(&a.series).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return fmt.Errorf("select at least one series type")
					}
					return nil
				}),

			huh.NewInput().
				Key("workers").
				Title("Workers").
				Value(&a.workers).
				Validate(validatePositiveInt),

			huh.NewConfirm().
				Key("index").
				Title("Write a leading index column?").
				Value(&a.index),

			huh.NewConfirm().
				Key("provenance").
				Title("Prepend subject, series and path columns?").
				Value(&a.provenance),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("log_format").
				Title("Log format").
				Options(
					huh.NewOption("Console", logging.FormatConsole),
					huh.NewOption("JSON", logging.FormatJSON),
				).
				Value(&a.logFormat),

			huh.NewSelect[string]().
				Key("progress").
				Title("Progress display").
				Options(
					huh.NewOption("Detect terminal", config.ProgressAuto),
					huh.NewOption("Terminal screen", config.ProgressTUI),
					huh.NewOption("Plain lines", config.ProgressPlain),
					huh.NewOption("None", config.ProgressNone),
				).
				Value(&a.progress),
		),
	).WithShowHelp(true).WithShowErrors(true)
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

// Run asks the questions, starting from base, and saves the answers to path.
// It returns false without writing anything when the user aborts.
func Run(path string, base config.Config) (bool, error) {
	a := fromConfig(base)
	if err := newForm(a).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("running wizard: %w", err)
	}

	c, err := a.apply(base)
	if err != nil {
		return false, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolving config path: %w", err)
	}
	if err := config.Save(abs, c); err != nil {
		return false, err
	}
	return true, nil
}
