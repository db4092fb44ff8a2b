package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestStringsValue(t *testing.T) {
	tests := []struct {
		name     string
		vr       string
		raw      []string
		expected any
	}{
		{"plain string", "LO", []string{"FLAIR "}, "FLAIR"},
		{"null padded", "UI", []string{"1.2.3\x00"}, "1.2.3"},
		{"multi string", "CS", []string{"ORIGINAL", "PRIMARY"}, []string{"ORIGINAL", "PRIMARY"}},
		{"empty", "LO", []string{}, nil},
		{"DS scalar", "DS", []string{" 1.5"}, 1.5},
		{"DS vector", "DS", []string{"1", "0", "-0.5"}, []float64{1, 0, -0.5}},
		{"DS blank", "DS", []string{""}, nil},
		{"DS unparseable", "DS", []string{"abc"}, "abc"},
		{"IS scalar", "IS", []string{"+12"}, int64(12)},
		{"IS vector", "IS", []string{"1", "2"}, []int64{1, 2}},
		{"IS unparseable", "IS", []string{"1.5"}, "1.5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stringsValue(tc.vr, tc.raw))
		})
	}
}

func TestBytesValue(t *testing.T) {
	assert.Equal(t, "ISO_IR 100", bytesValue([]byte("ISO_IR 100\x00")))
	assert.Equal(t, "0x00ff10", bytesValue([]byte{0x00, 0xff, 0x10}))
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		in       any
		expected []float64
		ok       bool
	}{
		{1.5, []float64{1.5}, true},
		{int64(3), []float64{3}, true},
		{[]float64{1, 2}, []float64{1, 2}, true},
		{[]int64{4, 5}, []float64{4, 5}, true},
		{"x", nil, false},
		{nil, nil, false},
	}
	for _, tc := range tests {
		got, ok := numbers(tc.in)
		assert.Equal(t, tc.ok, ok)
		assert.Equal(t, tc.expected, got)
	}
}

func TestElementValue(t *testing.T) {
	rows, err := dicom.NewElement(tag.Rows, []int{256})
	require.NoError(t, err)
	assert.Equal(t, int64(256), elementValue(rows))

	matrix, err := dicom.NewElement(tag.AcquisitionMatrix, []int{0, 256, 256, 0})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 256, 256, 0}, elementValue(matrix))

	spacing, err := dicom.NewElement(tag.PixelSpacing, []string{"0.5", "0.5"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, elementValue(spacing))

	assert.Nil(t, elementValue(nil))
}
