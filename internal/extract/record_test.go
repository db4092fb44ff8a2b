package extract

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_GetNamesPrepend(t *testing.T) {
	r := Record{Path: "a.dcm", Fields: []Field{{Name: "PatientID", Value: "00001"}, {Name: "SAR"}}}

	v, ok := r.Get("PatientID")
	assert.True(t, ok)
	assert.Equal(t, "00001", v)
	v, ok = r.Get("SAR")
	assert.True(t, ok)
	assert.Nil(t, v)
	_, ok = r.Get("Rows")
	assert.False(t, ok)

	p := r.Prepend(Field{Name: "subject", Value: "00001"}, Field{Name: "series", Value: "FLAIR"})
	assert.Equal(t, []string{"subject", "series", "PatientID", "SAR"}, p.Names())
	assert.Equal(t, []string{"PatientID", "SAR"}, r.Names(), "Prepend must not modify the receiver")
	assert.Equal(t, "a.dcm", p.Path)
}

func TestNullRecord(t *testing.T) {
	r := NullRecord("x.dcm", []string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, r.Names())
	for _, f := range r.Fields {
		assert.Nil(t, f.Value)
	}
}

func TestDecodeWarning(t *testing.T) {
	cause := errors.New("bad element")
	var err error = &DecodeWarning{Path: "x.dcm", Causes: []error{cause, io.ErrUnexpectedEOF}}

	assert.True(t, IsWarning(err))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "decode x.dcm: bad element; unexpected EOF", err.Error())

	assert.False(t, IsWarning(errors.New("plain")))
	assert.False(t, IsWarning(nil))
}
