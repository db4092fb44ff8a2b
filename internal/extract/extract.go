// Package extract reads one DICOM file and flattens the whitelisted part of
// its metadata into an ordered record.
package extract

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomharvest/internal/orientation"
	"github.com/mrsinham/dicomharvest/internal/schema"
)

// Transfer syntaxes whose encoding differs from explicit VR little endian.
const (
	implicitVRLittleEndian = "1.2.840.10008.1.2"
	explicitVRBigEndian    = "1.2.840.10008.1.2.2"
)

// ErrMissingHeader is recorded when a file lacks the preamble and file-meta
// group and had to be read as a bare dataset.
var ErrMissingHeader = errors.New("missing DICOM file header")

// Extractor extracts records for one resolved schema. It holds no mutable
// state and is safe for concurrent use.
type Extractor struct {
	Schema *schema.Resolved
}

// New returns an extractor for s.
func New(s *schema.Resolved) *Extractor {
	return &Extractor{Schema: s}
}

// decoded is what could be read from a file.
type decoded struct {
	meta     dicom.Dataset
	body     dicom.Dataset
	noHeader bool
	// bare is the encoding a header-less body was read with. Nil when no
	// candidate encoding parsed cleanly.
	bare    *encoding
	modTime time.Time
	causes  []error
}

type encoding struct {
	implicit bool
	little   bool
}

func (e encoding) byteOrder() binary.ByteOrder {
	if e.little {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// bareCandidates are tried in the parser's own inference order.
var bareCandidates = []encoding{
	{implicit: true, little: true},
	{implicit: false, little: false},
	{implicit: false, little: true},
}

// bareCheckElements is how many leading elements must decode to dictionary
// tags before a candidate encoding is accepted.
const bareCheckElements = 2

// Extract reads path and returns its record in schema column order.
//
// The returned error is either nil, a *DecodeWarning (the record is usable and
// unreadable fields are null) or a plain error when nothing could be read.
func (e *Extractor) Extract(path string) (Record, error) {
	d, err := decodeTolerant(path)
	if err != nil {
		return Record{}, err
	}

	rec := Record{Path: path, Fields: make([]Field, 0, len(e.Schema.Columns()))}
	for _, f := range e.Schema.DatasetFields {
		rec.Fields = append(rec.Fields, Field{Name: f.Name, Value: fieldValue(f, d)})
	}
	for _, f := range e.Schema.FileMetaFields {
		rec.Fields = append(rec.Fields, Field{Name: f.Name, Value: fieldValue(f, d)})
	}

	if e.Schema.DerivedFlags {
		implicit, little := transferSyntaxFlags(d)
		rec.Fields = append(rec.Fields,
			Field{Name: schema.ColImplicitVR, Value: implicit},
			Field{Name: schema.ColLittleEndian, Value: little},
			Field{Name: schema.ColTimestamp, Value: d.modTime},
		)
	}

	if e.Schema.DerivedGeometry {
		geo, causes := geometry(d.body)
		rec.Fields = append(rec.Fields, geo...)
		d.causes = append(d.causes, causes...)
	}

	if len(d.causes) > 0 {
		return rec, &DecodeWarning{Path: path, Causes: d.causes}
	}
	return rec, nil
}

// decodeTolerant parses path element by element and keeps whatever was read
// before the first failing element. Pixel data is skipped.
func decodeTolerant(path string) (*decoded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	d := &decoded{modTime: info.ModTime().UTC()}

	p, err := dicom.NewParser(f, info.Size(), nil,
		dicom.SkipPixelData(), dicom.AllowMissingMetaElementGroupLength())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	d.meta = p.GetMetadata()
	if len(d.meta.Elements) == 0 {
		d.noHeader = true
		d.causes = append(d.causes, ErrMissingHeader)
		bare, enc, err := bareParser(f, info.Size())
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		p, d.bare = bare, enc
	}

	var elements []*dicom.Element
	for {
		elem, err := p.Next()
		if err != nil {
			if !errors.Is(err, dicom.ErrorEndOfDICOM) && !errors.Is(err, io.EOF) {
				d.causes = append(d.causes, fmt.Errorf("stopped after %d elements: %w", len(elements), err))
			}
			break
		}
		elements = append(elements, elem)
	}

	if len(elements) == 0 && len(d.meta.Elements) == 0 {
		return nil, fmt.Errorf("parse %s: no elements parsed", path)
	}
	d.body = dicom.Dataset{Elements: elements}
	return d, nil
}

// bareParser returns a parser over a header-less file using the first
// candidate encoding whose leading elements decode to dictionary tags. When
// none does, it falls back to the parser's own guess and enc is nil.
func bareParser(f io.ReadSeeker, size int64) (*dicom.Parser, *encoding, error) {
	for _, c := range bareCandidates {
		if !bareDecodes(f, size, c) {
			continue
		}
		p, err := newBareParser(f, size, &c)
		if err != nil {
			return nil, nil, err
		}
		return p, &c, nil
	}
	p, err := newBareParser(f, size, nil)
	return p, nil, err
}

func newBareParser(f io.ReadSeeker, size int64, enc *encoding) (*dicom.Parser, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	p, err := dicom.NewParser(f, size, nil,
		dicom.SkipPixelData(), dicom.SkipMetadataReadOnNewParserInit())
	if err != nil {
		return nil, err
	}
	if enc != nil {
		p.SetTransferSyntax(enc.byteOrder(), enc.implicit)
	}
	return p, nil
}

func bareDecodes(f io.ReadSeeker, size int64, enc encoding) bool {
	p, err := newBareParser(f, size, &enc)
	if err != nil {
		return false
	}
	for read := 0; read < bareCheckElements; read++ {
		elem, err := p.Next()
		if err != nil {
			return read > 0 && (errors.Is(err, dicom.ErrorEndOfDICOM) || errors.Is(err, io.EOF))
		}
		if !dictionaryTag(elem.Tag) {
			return false
		}
	}
	return true
}

// dictionaryTag reports whether t could start a real dataset: a standard
// tag, a group length or a private tag.
func dictionaryTag(t tag.Tag) bool {
	if t.Element == 0x0000 || t.Group%2 == 1 {
		return true
	}
	_, err := tag.Find(t)
	return err == nil
}

// fieldValue reads f from the part of the file its scope points at,
// whichever list the schema declared it in.
func fieldValue(f schema.Field, d *decoded) any {
	if f.Scope != schema.ScopeFileMeta {
		return lookup(f, d.body)
	}
	if v := lookup(f, d.meta); v != nil {
		return v
	}
	// Header-less files may still carry group 0002 inline.
	return lookup(f, d.body)
}

func lookup(f schema.Field, ds dicom.Dataset) any {
	if !f.Known {
		return nil
	}
	elem, err := ds.FindElementByTag(f.Tag)
	if err != nil {
		return nil
	}
	return elementValue(elem)
}

// transferSyntaxFlags reports how the dataset was encoded: from the meta
// transfer syntax, or from the encoding a header-less body decoded with. Both
// are nil when neither is known.
func transferSyntaxFlags(d *decoded) (implicit, little any) {
	if d.noHeader {
		if d.bare == nil {
			return nil, nil
		}
		return d.bare.implicit, d.bare.little
	}
	elem, err := d.meta.FindElementByTag(tag.TransferSyntaxUID)
	if err != nil {
		return nil, nil
	}
	ts, ok := elementValue(elem).(string)
	if !ok {
		return nil, nil
	}
	switch ts {
	case implicitVRLittleEndian:
		return true, true
	case explicitVRBigEndian:
		return false, false
	default:
		return false, true
	}
}

// geometry derives the plane and the patient position columns.
func geometry(ds dicom.Dataset) ([]Field, []error) {
	var causes []error
	fields := []Field{
		{Name: schema.ColImagePlane},
		{Name: schema.ColImagePositionX},
		{Name: schema.ColImagePositionY},
		{Name: schema.ColImagePositionZ},
	}

	if elem, err := ds.FindElementByTag(tag.ImageOrientationPatient); err == nil {
		if v := elementValue(elem); v != nil {
			iop, ok := numbers(v)
			if !ok {
				causes = append(causes, fmt.Errorf("ImageOrientationPatient: not numeric: %v", v))
			} else if plane, err := orientation.Classify(iop); err != nil {
				causes = append(causes, fmt.Errorf("ImageOrientationPatient: %w", err))
			} else {
				fields[0].Value = string(plane)
			}
		}
	}

	if elem, err := ds.FindElementByTag(tag.ImagePositionPatient); err == nil {
		if ipp, ok := numbers(elementValue(elem)); ok && len(ipp) == 3 {
			fields[1].Value = ipp[0]
			fields[2].Value = ipp[1]
			fields[3].Value = ipp[2]
		}
	}

	return fields, causes
}
