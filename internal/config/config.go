// Package config holds the run configuration: defaults, validation, loading
// from file, environment and flags, and saving back to YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mrsinham/dicomharvest/internal/enumerate"
	"github.com/mrsinham/dicomharvest/internal/labels"
	"github.com/mrsinham/dicomharvest/internal/logging"
	"github.com/mrsinham/dicomharvest/internal/pipeline"
	"github.com/mrsinham/dicomharvest/internal/schema"
)

// EnvPrefix prefixes the environment variables that override config keys,
// e.g. DICOMHARVEST_WORKERS.
const EnvPrefix = "DICOMHARVEST"

// Progress display modes.
const (
	ProgressAuto  = "auto"
	ProgressTUI   = "tui"
	ProgressPlain = "plain"
	ProgressNone  = "none"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete configuration of an extraction run.
type Config struct {
	DataDir  string   `mapstructure:"data_dir" yaml:"data_dir"`
	Labels   string   `mapstructure:"labels" yaml:"labels"`
	IDColumn string   `mapstructure:"id_column" yaml:"id_column"`
	IDWidth  int      `mapstructure:"id_width" yaml:"id_width"`
	TrainDir string   `mapstructure:"train_dir" yaml:"train_dir"`
	Pattern  string   `mapstructure:"pattern" yaml:"pattern"`
	Series   []string `mapstructure:"series" yaml:"series"`
	Workers  int      `mapstructure:"workers" yaml:"workers"`

	Schema string `mapstructure:"schema" yaml:"schema"`
	// Fields and MetaFields replace the whitelists of the selected schema.
	Fields          []string `mapstructure:"fields" yaml:"fields,omitempty"`
	MetaFields      []string `mapstructure:"meta_fields" yaml:"meta_fields,omitempty"`
	Index           *bool    `mapstructure:"index" yaml:"index,omitempty"`
	DerivedFlags    *bool    `mapstructure:"derived_flags" yaml:"derived_flags,omitempty"`
	DerivedGeometry *bool    `mapstructure:"derived_geometry" yaml:"derived_geometry,omitempty"`

	Output     string `mapstructure:"output" yaml:"output"`
	Provenance bool   `mapstructure:"provenance" yaml:"provenance"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	Progress  string `mapstructure:"progress" yaml:"progress"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DataDir:    pipeline.DefaultDataDir,
		Labels:     pipeline.DefaultLabels,
		IDColumn:   labels.DefaultIDColumn,
		IDWidth:    labels.DefaultWidth,
		TrainDir:   pipeline.DefaultTrainDir,
		Pattern:    enumerate.DefaultPattern,
		Series:     append([]string(nil), enumerate.DefaultSeriesTypes...),
		Workers:    pipeline.DefaultWorkers,
		Schema:     string(schema.Default),
		Output:     pipeline.DefaultOutput,
		Provenance: false,
		LogLevel:   "info",
		LogFormat:  logging.FormatConsole,
		Progress:   ProgressAuto,
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.DataDir) == "" {
		problems = append(problems, "data_dir is empty")
	}
	if c.Workers < 1 {
		problems = append(problems, fmt.Sprintf("workers must be >= 1, got %d", c.Workers))
	}
	if c.IDWidth < 1 {
		problems = append(problems, fmt.Sprintf("id_width must be >= 1, got %d", c.IDWidth))
	}
	if len(c.Series) == 0 {
		problems = append(problems, "series is empty")
	}
	if _, err := filepath.Match(c.Pattern, ""); err != nil {
		problems = append(problems, fmt.Sprintf("pattern %q: %v", c.Pattern, err))
	}
	if _, err := schema.Get(schema.Version(c.Schema)); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		problems = append(problems, fmt.Sprintf("log_format must be %s or %s, got %q", logging.FormatConsole, logging.FormatJSON, c.LogFormat))
	}
	switch c.Progress {
	case ProgressAuto, ProgressTUI, ProgressPlain, ProgressNone:
	default:
		problems = append(problems, fmt.Sprintf("progress must be one of auto, tui, plain, none, got %q", c.Progress))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// resolve joins a relative path onto DataDir.
func (c Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// LabelsPath is the label table location.
func (c Config) LabelsPath() string { return c.resolve(c.Labels) }

// TrainPath is the root of the subject directories.
func (c Config) TrainPath() string { return c.resolve(c.TrainDir) }

// OutputPath is where the table is written.
func (c Config) OutputPath() string { return c.resolve(c.Output) }

// SchemaOverride returns the schema settings that replace the built-in ones.
func (c Config) SchemaOverride() schema.Override {
	return schema.Override{
		Fields:          c.Fields,
		MetaFields:      c.MetaFields,
		DerivedFlags:    c.DerivedFlags,
		DerivedGeometry: c.DerivedGeometry,
		IncludeIndex:    c.Index,
	}
}

// PipelineOptions converts a validated configuration into pipeline options.
func (c Config) PipelineOptions() (pipeline.Options, error) {
	base, err := schema.Get(schema.Version(c.Schema))
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return pipeline.Options{
		DataDir:     c.DataDir,
		LabelsPath:  c.LabelsPath(),
		TrainDir:    c.TrainPath(),
		OutputPath:  c.OutputPath(),
		IDColumn:    c.IDColumn,
		IDWidth:     c.IDWidth,
		SeriesTypes: c.Series,
		Pattern:     c.Pattern,
		Workers:     c.Workers,
		Schema:      base.Apply(c.SchemaOverride()),
		Provenance:  c.Provenance,
	}, nil
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"data-dir":   "data_dir",
	"labels":     "labels",
	"id-column":  "id_column",
	"id-width":   "id_width",
	"train-dir":  "train_dir",
	"pattern":    "pattern",
	"series":     "series",
	"workers":    "workers",
	"schema":     "schema",
	"fields":     "fields",
	"output":     "output",
	"provenance": "provenance",
	"log-level":  "log_level",
	"log-format": "log_format",
	"progress":   "progress",
}

// Load builds a configuration from, in increasing precedence: defaults, the
// YAML file at path (when not empty), DICOMHARVEST_* environment variables
// and changed flags. The result is validated.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without a default are unknown to AutomaticEnv.
	for _, key := range []string{"fields", "meta_fields", "index", "derived_flags", "derived_geometry"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if flags != nil {
		if f := flags.Lookup("index"); f != nil && f.Changed {
			index, err := flags.GetBool("index")
			if err != nil {
				return Config{}, err
			}
			c.Index = &index
		}
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("labels", d.Labels)
	v.SetDefault("id_column", d.IDColumn)
	v.SetDefault("id_width", d.IDWidth)
	v.SetDefault("train_dir", d.TrainDir)
	v.SetDefault("pattern", d.Pattern)
	v.SetDefault("series", d.Series)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("schema", d.Schema)
	v.SetDefault("output", d.Output)
	v.SetDefault("provenance", d.Provenance)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("progress", d.Progress)
}

// Save writes c to path as YAML. The file is replaced atomically.
func Save(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "dicomharvest-*.yaml")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename config file: %w", err)
	}
	return nil
}
