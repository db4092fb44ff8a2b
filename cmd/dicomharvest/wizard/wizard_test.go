package wizard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/dicomharvest/internal/config"
)

func TestFromConfig_Defaults(t *testing.T) {
	a := fromConfig(config.Default())
	assert.Equal(t, "./data/", a.dataDir)
	assert.Equal(t, "14", a.workers)
	assert.Equal(t, "v3", a.schema)
	assert.False(t, a.index, "v3 has no index column")
	assert.False(t, a.provenance, "provenance is opt-in")
	assert.Equal(t, []string{"FLAIR", "T1wCE", "T1w", "T2w"}, a.series)
}

func TestApply(t *testing.T) {
	a := fromConfig(config.Default())
	a.dataDir = " /srv/brats "
	a.schema = "v2"
	a.series = []string{"FLAIR"}
	a.workers = "4"
	a.index = true
	a.logFormat = "json"

	c, err := a.apply(config.Default())
	require.NoError(t, err)
	assert.Equal(t, "/srv/brats", c.DataDir)
	assert.Equal(t, "v2", c.Schema)
	assert.Equal(t, []string{"FLAIR"}, c.Series)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, "json", c.LogFormat)
	assert.Nil(t, c.Index, "index matches the v2 default")

	a.index = false
	c, err = a.apply(config.Default())
	require.NoError(t, err)
	require.NotNil(t, c.Index)
	assert.False(t, *c.Index)
}

func TestApply_Invalid(t *testing.T) {
	a := fromConfig(config.Default())
	a.workers = "many"
	_, err := a.apply(config.Default())
	assert.Error(t, err)

	a = fromConfig(config.Default())
	a.workers = "0"
	_, err = a.apply(config.Default())
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestValidators(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"1", false},
		{" 14 ", false},
		{"0", true},
		{"-3", true},
		{"abc", true},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			err := validatePositiveInt(tc.input)
			assert.Equal(t, tc.wantErr, err != nil)
		})
	}

	assert.Error(t, required("data directory")("  "))
	assert.NoError(t, required("data directory")("data"))
}

func TestNewForm_Builds(t *testing.T) {
	assert.NotNil(t, newForm(fromConfig(config.Default())))
}
