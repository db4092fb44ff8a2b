package extract

import (
	"errors"
	"fmt"
	"strings"
)

// Field is one named value of a record. A nil Value is a null cell.
type Field struct {
	Name  string
	Value any
}

// Record is the flattened metadata of one file, in schema column order.
type Record struct {
	Path   string
	Fields []Field
}

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Prepend returns a copy of r with fields inserted before its own.
func (r Record) Prepend(fields ...Field) Record {
	out := Record{Path: r.Path, Fields: make([]Field, 0, len(fields)+len(r.Fields))}
	out.Fields = append(out.Fields, fields...)
	out.Fields = append(out.Fields, r.Fields...)
	return out
}

// NullRecord returns a record with every column set to null. It stands in for
// files whose extraction failed outright.
func NullRecord(path string, columns []string) Record {
	r := Record{Path: path, Fields: make([]Field, len(columns))}
	for i, c := range columns {
		r.Fields[i] = Field{Name: c}
	}
	return r
}

// DecodeWarning reports problems met while reading a file that still produced
// a usable record. Fields that could not be read are null.
type DecodeWarning struct {
	Path   string
	Causes []error
}

func (w *DecodeWarning) Error() string {
	msgs := make([]string, len(w.Causes))
	for i, c := range w.Causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("decode %s: %s", w.Path, strings.Join(msgs, "; "))
}

// Unwrap exposes the causes to errors.Is and errors.As.
func (w *DecodeWarning) Unwrap() []error {
	return w.Causes
}

// IsWarning reports whether err is a DecodeWarning, meaning the accompanying
// record is usable.
func IsWarning(err error) bool {
	var dw *DecodeWarning
	return errors.As(err, &dw)
}
