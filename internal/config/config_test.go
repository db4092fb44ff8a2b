package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/dicomharvest/internal/schema"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	d := Default()
	fs.String("data-dir", d.DataDir, "")
	fs.Int("workers", d.Workers, "")
	fs.StringSlice("series", d.Series, "")
	fs.String("schema", d.Schema, "")
	fs.StringSlice("fields", nil, "")
	fs.Bool("index", false, "")
	fs.Bool("provenance", d.Provenance, "")
	fs.String("log-level", d.LogLevel, "")
	return fs
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_DefaultsOnly(t *testing.T) {
	c, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dicomharvest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 3\nschema: v2\nlog_level: debug\n"), 0o644))

	t.Setenv("DICOMHARVEST_WORKERS", "5")
	t.Setenv("DICOMHARVEST_SCHEMA", "v1")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--schema", "v3"}))

	c, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Workers, "env beats file")
	assert.Equal(t, "v3", c.Schema, "flag beats env")
	assert.Equal(t, "debug", c.LogLevel, "file beats default")
	assert.Equal(t, Default().Series, c.Series, "unchanged flag keeps default")
}

func TestLoad_IndexIsTriState(t *testing.T) {
	c, err := Load("", testFlags())
	require.NoError(t, err)
	assert.Nil(t, c.Index)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--index=false"}))
	c, err = Load("", fs)
	require.NoError(t, err)
	require.NotNil(t, c.Index)
	assert.False(t, *c.Index)
}

func TestLoad_FieldsFromEnv(t *testing.T) {
	t.Setenv("DICOMHARVEST_FIELDS", "PatientID,Rows")
	c, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"PatientID", "Rows"}, c.Fields)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func TestLoad_InvalidValue(t *testing.T) {
	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--workers", "0"}))
	_, err := Load("", fs)
	assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	c := Default()
	c.Workers = 0
	c.Schema = "v7"
	c.LogFormat = "xml"
	c.Progress = "loud"
	c.Pattern = "["

	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	for _, want := range []string{"workers", "v7", "log_format", "progress", "pattern"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestPaths_ResolveAgainstDataDir(t *testing.T) {
	c := Default()
	c.DataDir = "/data"
	c.Output = "/tmp/out.csv"

	assert.Equal(t, filepath.Join("/data", "train_labels.csv"), c.LabelsPath())
	assert.Equal(t, filepath.Join("/data", "train"), c.TrainPath())
	assert.Equal(t, "/tmp/out.csv", c.OutputPath())
}

func TestPipelineOptions_AppliesOverride(t *testing.T) {
	on := true
	c := Default()
	c.Schema = "v1"
	c.Fields = []string{"PatientID"}
	c.Index = &on
	c.Workers = 2

	opts, err := c.PipelineOptions()
	require.NoError(t, err)
	assert.Equal(t, schema.V1, opts.Schema.Version)
	assert.Equal(t, []string{"PatientID"}, opts.Schema.Fields)
	assert.True(t, opts.Schema.IncludeIndex)
	assert.Equal(t, 2, opts.Workers)
	assert.False(t, opts.Provenance)
}

func TestLoad_ProvenanceIsOptIn(t *testing.T) {
	c, err := Load("", testFlags())
	require.NoError(t, err)
	assert.False(t, c.Provenance)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--provenance"}))
	c, err = Load("", fs)
	require.NoError(t, err)
	assert.True(t, c.Provenance)
}

func TestSave_RoundTrip(t *testing.T) {
	off := false
	c := Default()
	c.Workers = 4
	c.DerivedGeometry = &off

	path := filepath.Join(t.TempDir(), "nested", "dicomharvest.yaml")
	require.NoError(t, Save(path, c))

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Workers)
	require.NotNil(t, loaded.DerivedGeometry)
	assert.False(t, *loaded.DerivedGeometry)
	assert.Nil(t, loaded.Index)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}
