// Package orientation classifies DICOM image planes from ImageOrientationPatient.
package orientation

import (
	"errors"
	"fmt"
	"math"
)

// Plane is a coarse anatomical image plane.
type Plane string

const (
	Coronal  Plane = "Coronal"
	Sagittal Plane = "Sagittal"
	Axial    Plane = "Axial"
	Unknown  Plane = "Unknown"
)

// ErrInvalidInputShape is returned when the direction cosine vector does not
// have exactly six components.
var ErrInvalidInputShape = errors.New("invalid input shape")

// VectorLength is the number of components in an ImageOrientationPatient value:
// the row direction cosines followed by the column direction cosines.
const VectorLength = 6

// Classify maps a direction cosine vector to an image plane.
//
// Every component is rounded to the nearest integer (ties to even) before comparison. Only
// the x and y components of the row and column vectors are consulted; the z
// components are read but ignored, so two orientations that differ only in z
// classify identically.
func Classify(v []float64) (Plane, error) {
	if len(v) != VectorLength {
		return "", fmt.Errorf("%w: direction cosines need %d values, got %d", ErrInvalidInputShape, VectorLength, len(v))
	}

	rowX, rowY, _ := math.RoundToEven(v[0]), math.RoundToEven(v[1]), math.RoundToEven(v[2])
	colX, colY, _ := math.RoundToEven(v[3]), math.RoundToEven(v[4]), math.RoundToEven(v[5])

	switch {
	case rowX == 1 && rowY == 0 && colX == 0 && colY == 0:
		return Coronal, nil
	case rowX == 0 && rowY == 1 && colX == 0 && colY == 0:
		return Sagittal, nil
	case rowX == 1 && rowY == 0 && colX == 0 && colY == 1:
		return Axial, nil
	default:
		return Unknown, nil
	}
}

// All returns every plane label the classifier can produce.
func All() []Plane {
	return []Plane{Coronal, Sagittal, Axial, Unknown}
}
