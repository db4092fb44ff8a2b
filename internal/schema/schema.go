// Package schema defines the versioned field whitelists used to flatten DICOM
// metadata into table rows.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Derived column names.
const (
	ColImplicitVR     = "is_implicit_VR"
	ColLittleEndian   = "is_little_endian"
	ColTimestamp      = "timestamp"
	ColImagePlane     = "image_plane"
	ColImagePositionX = "image_position_x"
	ColImagePositionY = "image_position_y"
	ColImagePositionZ = "image_position_z"
)

// Version names a built-in schema.
type Version string

const (
	V1 Version = "v1"
	V2 Version = "v2"
	V3 Version = "v3"

	// Default is the widest schema, the one with derived geometry.
	Default = V3
)

// ErrUnknownVersion is returned when a schema version is not built in.
var ErrUnknownVersion = errors.New("unknown schema version")

// Schema is an ordered field whitelist plus the derived columns to emit.
type Schema struct {
	Version Version

	// Fields are dataset keywords, in output order.
	Fields []string
	// MetaFields are file-meta (group 0002) keywords, in output order.
	MetaFields []string

	// DerivedFlags adds is_implicit_VR, is_little_endian and timestamp.
	DerivedFlags bool
	// DerivedGeometry adds image_plane and image_position_x/y/z.
	DerivedGeometry bool
	// IncludeIndex writes the row index as a leading unnamed column.
	IncludeIndex bool
}

var v1Fields = []string{
	"PatientID",
	"SeriesDescription",
	"SeriesNumber",
	"InstanceNumber",
	"ImageOrientationPatient",
	"ImagePositionPatient",
	"SliceLocation",
	"SliceThickness",
	"SpacingBetweenSlices",
	"PixelSpacing",
	"Rows",
	"Columns",
	"MagneticFieldStrength",
	"MRAcquisitionType",
}

var v2Fields = []string{
	"AccessionNumber",
	"AcquisitionMatrix",
	"BitsAllocated",
	"BitsStored",
	"Columns",
	"EchoNumbers",
	"EchoTime",
	"EchoTrainLength",
	"FlipAngle",
	"HighBit",
	"ImageOrientationPatient",
	"ImagePositionPatient",
	"ImageType",
	"ImagingFrequency",
	"InstanceNumber",
	"MagneticFieldStrength",
	"Modality",
	"PatientID",
	"PatientName",
	"PatientPosition",
	"PhotometricInterpretation",
	"PixelSpacing",
	"RescaleIntercept",
	"RescaleSlope",
	"Rows",
	"SOPClassUID",
	"SOPInstanceUID",
	"SamplesPerPixel",
	"SeriesDescription",
	"SeriesInstanceUID",
	"SeriesNumber",
	"SliceLocation",
	"SliceThickness",
	"SpacingBetweenSlices",
	"StudyInstanceUID",
}

var v2MetaFields = []string{
	"MediaStorageSOPClassUID",
	"MediaStorageSOPInstanceUID",
	"TransferSyntaxUID",
	"ImplementationClassUID",
	"ImplementationVersionName",
}

// v3 drops the constant-valued and duplicate tags of v2 and adds the MR
// acquisition parameters. Rows is intentionally absent.
var v3Fields = []string{
	"AcquisitionMatrix",
	"Columns",
	"EchoNumbers",
	"EchoTrainLength",
	"FlipAngle",
	"HighRRValue",
	"ImageOrientationPatient",
	"ImagePositionPatient",
	"ImagingFrequency",
	"InPlanePhaseEncodingDirection",
	"InStackPositionNumber",
	"InstanceNumber",
	"MRAcquisitionType",
	"MagneticFieldStrength",
	"NumberOfAverages",
	"NumberOfPhaseEncodingSteps",
	"PatientID",
	"PercentPhaseFieldOfView",
	"PercentSampling",
	"PixelBandwidth",
	"PixelPaddingValue",
	"PixelRepresentation",
	"PixelSpacing",
	"PlanarConfiguration",
	"PresentationLUTShape",
	"ReconstructionDiameter",
	"SAR",
	"SOPInstanceUID",
	"SeriesDescription",
	"SeriesInstanceUID",
	"SeriesNumber",
	"SliceLocation",
	"SliceThickness",
	"SpacingBetweenSlices",
	"SpatialResolution",
	"SpecificCharacterSet",
	"TriggerWindow",
	"WindowCenter",
	"WindowWidth",
}

// Versions returns the built-in versions in release order.
func Versions() []Version {
	return []Version{V1, V2, V3}
}

// Get returns a copy of a built-in schema.
func Get(v Version) (Schema, error) {
	switch Version(strings.ToLower(string(v))) {
	case V1:
		return Schema{Version: V1, Fields: clone(v1Fields)}, nil
	case V2:
		return Schema{
			Version:      V2,
			Fields:       clone(v2Fields),
			MetaFields:   clone(v2MetaFields),
			DerivedFlags: true,
			IncludeIndex: true,
		}, nil
	case V3:
		return Schema{
			Version:         V3,
			Fields:          clone(v3Fields),
			DerivedGeometry: true,
		}, nil
	default:
		return Schema{}, fmt.Errorf("%w %q, valid versions: %v", ErrUnknownVersion, v, Versions())
	}
}

// Override replaces parts of a built-in schema. Nil members leave the
// corresponding setting untouched.
type Override struct {
	Fields          []string
	MetaFields      []string
	DerivedFlags    *bool
	DerivedGeometry *bool
	IncludeIndex    *bool
}

// Apply returns a copy of s with o applied.
func (s Schema) Apply(o Override) Schema {
	out := s
	out.Fields = clone(s.Fields)
	out.MetaFields = clone(s.MetaFields)
	if len(o.Fields) > 0 {
		out.Fields = clone(o.Fields)
	}
	if len(o.MetaFields) > 0 {
		out.MetaFields = clone(o.MetaFields)
	}
	if o.DerivedFlags != nil {
		out.DerivedFlags = *o.DerivedFlags
	}
	if o.DerivedGeometry != nil {
		out.DerivedGeometry = *o.DerivedGeometry
	}
	if o.IncludeIndex != nil {
		out.IncludeIndex = *o.IncludeIndex
	}
	return out
}

// Field is a whitelist entry bound to its dictionary tag.
type Field struct {
	Name string
	Tag  tag.Tag
	// Known is false when the keyword is not in the DICOM dictionary. Such
	// fields still produce a column, always null.
	Known bool
	// Scope decides where the value is read from: ScopeFileMeta fields come
	// from the file meta group, everything else from the dataset.
	Scope TagScope
}

const fileMetaGroup = 0x0002

// fieldScope returns the registered scope of a keyword. Keywords outside the
// registry are file meta when their tag is in group 0002 and per image
// otherwise.
func fieldScope(name string, t tag.Tag, known bool) TagScope {
	if info, err := LookupField(name); err == nil {
		return info.Scope
	}
	if known && t.Group == fileMetaGroup {
		return ScopeFileMeta
	}
	return ScopeImage
}

// Resolved is a schema whose keywords have been looked up in the dictionary.
type Resolved struct {
	Schema
	DatasetFields  []Field
	FileMetaFields []Field
}

// Resolve binds every keyword of s to its tag. Unknown keywords are kept as
// null columns and reported in the returned warnings; duplicate keywords are
// an error because they would collide in the output header.
func Resolve(s Schema) (*Resolved, []error, error) {
	if len(s.Fields) == 0 && len(s.MetaFields) == 0 {
		return nil, nil, fmt.Errorf("schema %s has no fields", s.Version)
	}

	seen := make(map[string]bool)
	var warnings []error

	bind := func(names []string, meta bool) ([]Field, error) {
		fields := make([]Field, 0, len(names))
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, fmt.Errorf("schema %s: empty field name", s.Version)
			}
			if seen[name] {
				return nil, fmt.Errorf("schema %s: duplicate field %q", s.Version, name)
			}
			seen[name] = true

			canonical := name
			if info, err := LookupField(name); err == nil {
				canonical = info.Name
			}
			f := Field{Name: name}
			if ti, err := tag.FindByName(canonical); err == nil {
				f.Tag = ti.Tag
				f.Known = true
			} else if _, lerr := LookupField(name); lerr != nil {
				warnings = append(warnings, lerr)
			} else {
				warnings = append(warnings, fmt.Errorf("field %q is not in the DICOM dictionary", name))
			}
			f.Scope = fieldScope(canonical, f.Tag, f.Known)

			switch {
			case !f.Known:
			case meta && f.Scope != ScopeFileMeta:
				warnings = append(warnings, fmt.Errorf("meta field %q has %s scope; it is read from the dataset", name, f.Scope))
			case !meta && f.Scope == ScopeFileMeta:
				warnings = append(warnings, fmt.Errorf("field %q has %s scope; it is read from the file meta group", name, f.Scope))
			}
			fields = append(fields, f)
		}
		return fields, nil
	}

	dsFields, err := bind(s.Fields, false)
	if err != nil {
		return nil, nil, err
	}
	metaFields, err := bind(s.MetaFields, true)
	if err != nil {
		return nil, nil, err
	}
	for _, col := range derivedColumns(s) {
		if seen[col] {
			return nil, nil, fmt.Errorf("schema %s: field %q collides with a derived column", s.Version, col)
		}
	}

	return &Resolved{Schema: s, DatasetFields: dsFields, FileMetaFields: metaFields}, warnings, nil
}

// Columns returns the output columns of the schema in order: dataset fields,
// file-meta fields, derived flags, derived geometry.
func (r *Resolved) Columns() []string {
	cols := make([]string, 0, len(r.DatasetFields)+len(r.FileMetaFields)+7)
	for _, f := range r.DatasetFields {
		cols = append(cols, f.Name)
	}
	for _, f := range r.FileMetaFields {
		cols = append(cols, f.Name)
	}
	return append(cols, derivedColumns(r.Schema)...)
}

func derivedColumns(s Schema) []string {
	var cols []string
	if s.DerivedFlags {
		cols = append(cols, ColImplicitVR, ColLittleEndian, ColTimestamp)
	}
	if s.DerivedGeometry {
		cols = append(cols, ColImagePlane, ColImagePositionX, ColImagePositionY, ColImagePositionZ)
	}
	return cols
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
