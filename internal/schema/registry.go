package schema

import (
	"fmt"
	"sort"
	"strings"
)

// TagScope represents the DICOM hierarchy level a field describes.
type TagScope int

const (
	// ScopePatient indicates fields that are constant across a subject.
	ScopePatient TagScope = iota
	// ScopeStudy indicates fields that are constant within a study.
	ScopeStudy
	// ScopeSeries indicates fields that are constant within a series.
	ScopeSeries
	// ScopeImage indicates fields that can vary per image.
	ScopeImage
	// ScopeFileMeta indicates group 0002 file-meta fields.
	ScopeFileMeta
)

// String returns the string representation of a TagScope.
func (s TagScope) String() string {
	switch s {
	case ScopePatient:
		return "Patient"
	case ScopeStudy:
		return "Study"
	case ScopeSeries:
		return "Series"
	case ScopeImage:
		return "Image"
	case ScopeFileMeta:
		return "FileMeta"
	default:
		return "Unknown"
	}
}

// FieldInfo describes a field the built-in schemas know about.
type FieldInfo struct {
	Name  string
	Scope TagScope
}

// registry maps lowercase keywords to their FieldInfo. It covers every field
// used by a built-in schema version.
var registry = map[string]FieldInfo{}

func register(scope TagScope, names ...string) {
	for _, n := range names {
		registry[strings.ToLower(n)] = FieldInfo{Name: n, Scope: scope}
	}
}

func init() {
	register(ScopePatient,
		"PatientID", "PatientName", "PatientPosition", "AccessionNumber")
	register(ScopeStudy,
		"StudyInstanceUID", "SpecificCharacterSet")
	register(ScopeSeries,
		"SeriesDescription", "SeriesInstanceUID", "SeriesNumber", "Modality",
		"MRAcquisitionType", "MagneticFieldStrength", "ImagingFrequency",
		"EchoTime", "EchoNumbers", "EchoTrainLength", "FlipAngle",
		"NumberOfAverages", "NumberOfPhaseEncodingSteps", "PercentPhaseFieldOfView",
		"PercentSampling", "PixelBandwidth", "SAR", "SpatialResolution",
		"TriggerWindow", "HighRRValue", "InPlanePhaseEncodingDirection",
		"AcquisitionMatrix", "ReconstructionDiameter", "SliceThickness",
		"SpacingBetweenSlices", "PixelSpacing", "ImageOrientationPatient",
		"SOPClassUID", "ImageType")
	register(ScopeImage,
		"SOPInstanceUID", "InstanceNumber", "InStackPositionNumber",
		"ImagePositionPatient", "SliceLocation", "Rows", "Columns",
		"BitsAllocated", "BitsStored", "HighBit", "PixelRepresentation",
		"PixelPaddingValue", "PlanarConfiguration", "PhotometricInterpretation",
		"PresentationLUTShape", "SamplesPerPixel", "RescaleIntercept",
		"RescaleSlope", "WindowCenter", "WindowWidth")
	register(ScopeFileMeta,
		"MediaStorageSOPClassUID", "MediaStorageSOPInstanceUID", "TransferSyntaxUID",
		"ImplementationClassUID", "ImplementationVersionName")
}

// LookupField returns FieldInfo for a keyword.
// The lookup is case-insensitive. If the keyword is unknown, the error carries
// a suggestion for the closest known keyword (Levenshtein distance).
func LookupField(name string) (FieldInfo, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(name))

	if info, ok := registry[normalizedName]; ok {
		return info, nil
	}

	suggestion := findClosestFieldName(normalizedName)
	if suggestion != "" {
		return FieldInfo{}, fmt.Errorf("unknown field %q, did you mean %q?", name, suggestion)
	}

	return FieldInfo{}, fmt.Errorf("unknown field %q", name)
}

// KnownFields returns every registered keyword, sorted.
func KnownFields() []string {
	names := make([]string, 0, len(registry))
	for _, info := range registry {
		names = append(names, info.Name)
	}
	sort.Strings(names)
	return names
}

// findClosestFieldName finds the closest matching keyword.
// Returns empty string if no close match is found (distance > 5).
func findClosestFieldName(input string) string {
	const maxDistance = 5
	bestDistance := maxDistance + 1
	var bestMatch string

	// Iterate in sorted order so ties resolve the same way on every run.
	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		distance := levenshteinDistance(input, key)
		if distance < bestDistance {
			bestDistance = distance
			bestMatch = registry[key].Name
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

// levenshteinDistance calculates the minimum number of single-character edits
// (insertions, deletions or substitutions) required to change a into b.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}

	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}
