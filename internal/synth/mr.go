package synth

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/mrsinham/dicomharvest/internal/orientation"
)

// mrImageStorage is the MR Image Storage SOP Class UID.
const mrImageStorage = "1.2.840.10008.5.1.4.1.1.4"

type scanner struct {
	Manufacturer  string
	Model         string
	FieldStrength float64
}

var scanners = []scanner{
	{Manufacturer: "SIEMENS", Model: "Avanto", FieldStrength: 1.5},
	{Manufacturer: "SIEMENS", Model: "Skyra", FieldStrength: 3.0},
	{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Signa HDxt", FieldStrength: 1.5},
	{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Discovery MR750", FieldStrength: 3.0},
	{Manufacturer: "Philips Medical Systems", Model: "Achieva", FieldStrength: 1.5},
	{Manufacturer: "Philips Medical Systems", Model: "Ingenia", FieldStrength: 3.0},
}

// sequence holds the nominal timing of one MR series type.
type sequence struct {
	RepetitionTime float64
	EchoTime       float64
	FlipAngle      float64
	EchoTrain      int
	Contrast       bool
}

var sequences = map[string]sequence{
	"FLAIR": {RepetitionTime: 9000, EchoTime: 120, FlipAngle: 150, EchoTrain: 16},
	"T1w":   {RepetitionTime: 500, EchoTime: 10, FlipAngle: 90, EchoTrain: 1},
	"T1wCE": {RepetitionTime: 500, EchoTime: 10, FlipAngle: 90, EchoTrain: 1, Contrast: true},
	"T2w":   {RepetitionTime: 4000, EchoTime: 100, FlipAngle: 90, EchoTrain: 12},
}

// seriesParams are the acquisition parameters shared by every slice of a series.
type seriesParams struct {
	Scanner              scanner
	Sequence             sequence
	PixelSpacing         float64
	SliceThickness       float64
	SpacingBetweenSlices float64
	ImagingFrequency     float64
	PixelBandwidth       float64
	SAR                  float64
	WindowCenter         float64
	WindowWidth          float64
}

// newSeriesParams draws series parameters around the nominal sequence values.
// Unknown series types get T1w timing.
func newSeriesParams(sc scanner, seriesType string, rng *rand.Rand) seriesParams {
	seq, ok := sequences[seriesType]
	if !ok {
		seq = sequences["T1w"]
	}
	jitter := func(v, frac float64) float64 { return v * (1 + (rng.Float64()-0.5)*frac) }

	seq.RepetitionTime = jitter(seq.RepetitionTime, 0.1)
	seq.EchoTime = jitter(seq.EchoTime, 0.1)

	p := seriesParams{
		Scanner:          sc,
		Sequence:         seq,
		PixelSpacing:     0.5 + rng.Float64()*0.5,
		SliceThickness:   1.0 + rng.Float64()*4.0,
		ImagingFrequency: sc.FieldStrength * 42.577,
		PixelBandwidth:   100 + rng.Float64()*200,
		SAR:              rng.Float64() * 3,
		WindowCenter:     500.0 + rng.Float64()*1000.0,
		WindowWidth:      1000.0 + rng.Float64()*1000.0,
	}
	p.SpacingBetweenSlices = p.SliceThickness + rng.Float64()*0.5
	return p
}

// orientationVector returns the direction cosines written for a plane.
// Unknown yields an oblique vector that classifies as Unknown.
func orientationVector(p orientation.Plane) []float64 {
	switch p {
	case orientation.Sagittal:
		return []float64{0, 1, 0, 0, 0, -1}
	case orientation.Coronal:
		return []float64{1, 0, 0, 0, 0, -1}
	case orientation.Unknown:
		return []float64{0.8, 0.6, 0, 0, 0, -1}
	default:
		return []float64{1, 0, 0, 0, 1, 0}
	}
}

// ParsePlane parses a plane name such as "sagittal", "SAG" or "Axial".
func ParsePlane(s string) (orientation.Plane, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AXIAL", "AX", "TRA":
		return orientation.Axial, nil
	case "SAGITTAL", "SAG":
		return orientation.Sagittal, nil
	case "CORONAL", "COR":
		return orientation.Coronal, nil
	case "OBLIQUE", "UNKNOWN":
		return orientation.Unknown, nil
	default:
		return "", fmt.Errorf("unknown plane %q, valid planes: %v", s, orientation.All())
	}
}

// floatToDS converts a float64 to a DICOM Decimal String.
func floatToDS(f float64) string {
	return fmt.Sprintf("%.6g", f)
}
