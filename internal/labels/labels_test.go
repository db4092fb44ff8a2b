package labels

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	tests := []struct {
		id, width int
		expected  string
	}{
		{1, 5, "00001"},
		{23, 5, "00023"},
		{0, 5, "00000"},
		{123456, 5, "123456"},
		{7, 3, "007"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			if got := Key(tc.id, tc.width); got != tc.expected {
				t.Errorf("Key(%d, %d) = %q, want %q", tc.id, tc.width, got, tc.expected)
			}
		})
	}
}

func TestRead(t *testing.T) {
	in := "BraTS21ID,MGMT_value\n1,1\n23,0\n"
	subjects, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)
	require.Len(t, subjects, 2)

	assert.Equal(t, 1, subjects[0].ID)
	assert.Equal(t, "00001", subjects[0].Key)
	assert.Equal(t, map[string]string{"MGMT_value": "1"}, subjects[0].Labels)
	assert.Equal(t, "00023", subjects[1].Key)
	assert.Equal(t, "0", subjects[1].Labels["MGMT_value"])
}

func TestRead_CustomColumnAndWidth(t *testing.T) {
	in := "label,case\nx,4\n"
	subjects, err := Read(strings.NewReader(in), Options{IDColumn: "case", Width: 3})
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "004", subjects[0].Key)
	assert.Equal(t, "x", subjects[0].Labels["label"])
}

func TestRead_ByteOrderMark(t *testing.T) {
	subjects, err := Read(strings.NewReader("\ufeffBraTS21ID\n5\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "00005", subjects[0].Key)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		target  error
		message string
	}{
		{"empty", "", ErrLabelFile, "empty"},
		{"header only", "BraTS21ID,MGMT_value\n", ErrNoSubjects, ""},
		{"missing column", "id,MGMT_value\n1,0\n", ErrLabelFile, "BraTS21ID"},
		{"not an integer", "BraTS21ID\n1\nabc\n", nil, "row 3"},
		{"negative", "BraTS21ID\n-4\n", nil, "negative"},
		{"ragged row", "BraTS21ID,MGMT_value\n1\n", ErrLabelFile, "row 2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tc.in), Options{})
			require.Error(t, err)
			if tc.target != nil {
				assert.True(t, errors.Is(err, tc.target), "error %v should wrap %v", err, tc.target)
			}
			if tc.message != "" {
				assert.Contains(t, err.Error(), tc.message)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train_labels.csv")
	require.NoError(t, os.WriteFile(path, []byte("BraTS21ID,MGMT_value\n1,1\n23,0\n"), 0o644))

	subjects, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Len(t, subjects, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"), Options{})
	if !errors.Is(err, ErrLabelFile) {
		t.Fatalf("Load() error = %v, want ErrLabelFile", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist in chain", err)
	}
}
