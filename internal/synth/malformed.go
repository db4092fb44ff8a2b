package synth

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Malformed files reproduce two length errors seen in real scanner output:
//
//	W: DcmItem: Length of element (0070,0253) is not a multiple of 4 (VR=FL)
//	W: DcmItem: Length of element (7fe0,0010) is not a multiple of 2 (VR=OW)
//
// The writer refuses such elements, so a private OB placeholder is written
// instead and the file is patched afterwards.
var placeholderTag = tag.Tag{Group: 0x0071, Element: 0x0010}

func malformedPlaceholder() *dicom.Element {
	value, err := dicom.NewValue([]byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x00, 0x40})
	if err != nil {
		panic(fmt.Sprintf("placeholder value: %v", err))
	}
	return &dicom.Element{
		Tag:                    placeholderTag,
		ValueRepresentation:    tag.GetVRKind(placeholderTag, "OB"),
		RawValueRepresentation: "OB",
		Value:                  value,
	}
}

// patchMalformedLengths rewrites the placeholder of an explicit VR little
// endian file into (0070,0253) FL with a length of 7, and makes the pixel
// data length odd.
func patchMalformedLengths(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read for patching: %w", err)
	}

	patched := rewriteElement(data, placeholderTag, tag.Tag{Group: 0x0070, Element: 0x0253}, "FL", 7)
	patched = oddPixelDataLength(data) || patched
	if !patched {
		return fmt.Errorf("%s: nothing to patch", path)
	}
	return os.WriteFile(path, data, 0o644)
}

// rewriteElement finds the long-form element from and rewrites its header in
// place as a short-form element to with the given VR and value length.
func rewriteElement(data []byte, from, to tag.Tag, vr string, vl uint16) bool {
	for i := 0; i+12 <= len(data); i++ {
		if binary.LittleEndian.Uint16(data[i:]) != from.Group || binary.LittleEndian.Uint16(data[i+2:]) != from.Element {
			continue
		}
		binary.LittleEndian.PutUint16(data[i:], to.Group)
		binary.LittleEndian.PutUint16(data[i+2:], to.Element)
		copy(data[i+4:i+6], vr)
		binary.LittleEndian.PutUint16(data[i+6:], vl)
		return true
	}
	return false
}

// oddPixelDataLength decrements an even OW/OB pixel data length by one.
func oddPixelDataLength(data []byte) bool {
	for i := 0; i+12 <= len(data); i++ {
		if data[i] != 0xE0 || data[i+1] != 0x7F || data[i+2] != 0x10 || data[i+3] != 0x00 {
			continue
		}
		if vr := string(data[i+4 : i+6]); vr != "OW" && vr != "OB" {
			continue
		}
		vl := binary.LittleEndian.Uint32(data[i+8:])
		if vl > 1 && vl%2 == 0 {
			binary.LittleEndian.PutUint32(data[i+8:], vl-1)
			return true
		}
	}
	return false
}
