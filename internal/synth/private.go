package synth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// csaEntry is one named entry of a Siemens CSA header.
type csaEntry struct {
	name    string
	vr      string
	syngoDT int32
	values  []string
}

// encodeCSA writes entries in the "SV10" layout found in (0029,1010) and
// (0029,1020) of Siemens MR files.
func encodeCSA(entries []csaEntry) []byte {
	var buf bytes.Buffer
	buf.WriteString("SV10")
	buf.Write([]byte{0x04, 0x03, 0x02, 0x01})
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(entries)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0x4D))

	for _, e := range entries {
		name := make([]byte, 64)
		copy(name, e.name)
		buf.Write(name)
		_ = binary.Write(&buf, binary.LittleEndian, int32(len(e.values)))
		vr := make([]byte, 4)
		copy(vr, e.vr)
		buf.Write(vr)
		_ = binary.Write(&buf, binary.LittleEndian, e.syngoDT)
		_ = binary.Write(&buf, binary.LittleEndian, int32(len(e.values)))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(0x4D))

		for _, v := range e.values {
			for range 4 {
				_ = binary.Write(&buf, binary.LittleEndian, uint32(len(v)))
			}
			buf.WriteString(v)
			buf.Write(make([]byte, (4-len(v)%4)%4))
		}
	}
	return buf.Bytes()
}

func csaImageHeader(p seriesParams, rng *rand.Rand) []byte {
	return withNoise(encodeCSA([]csaEntry{
		{"NumberOfImagesInMosaic", "IS", 6, []string{"1"}},
		{"SliceNormalVector", "FD", 3, []string{"0.0", "0.0", "1.0"}},
		{"B_value", "IS", 6, []string{"0"}},
		{"BandwidthPerPixelPhaseEncode", "FD", 3, []string{floatToDS(p.PixelBandwidth)}},
		{"RealDwellTime", "IS", 6, []string{"5700"}},
		{"ImaCoilString", "LO", 19, []string{"HEA;HEP"}},
	}), rng, 1024)
}

func csaSeriesHeader(rng *rand.Rand) []byte {
	return withNoise(encodeCSA([]csaEntry{
		{"UsedPatientWeight", "DS", 3, []string{"70.0"}},
		{"MrProtocolVersion", "IS", 6, []string{"1"}},
		{"MrProtocol", "LO", 19, []string{"### ASCCONV BEGIN ###"}},
		{"CoilForGradient", "LO", 19, []string{"AS"}},
	}), rng, 512)
}

// withNoise pads b with between n and 2n random bytes.
func withNoise(b []byte, rng *rand.Rand, n int) []byte {
	noise := make([]byte, n+rng.IntN(n))
	for i := range noise {
		noise[i] = byte(rng.IntN(256))
	}
	return append(b, noise...)
}

// vendorPrivateElements returns a Siemens CSA private block, including the
// nested private sequence at (0029,1102) that trips fragile readers.
func vendorPrivateElements(p seriesParams, rng *rand.Rand) []*dicom.Element {
	nested := make([]byte, 1024+rng.IntN(1024))
	for i := range nested {
		nested[i] = byte(rng.IntN(256))
	}
	item := []*dicom.Element{
		privateElement(tag.Tag{Group: 0x0029, Element: 0x0011}, "LO", []string{"SIEMENS CSA NON-IMAGE"}),
		privateElement(tag.Tag{Group: 0x0029, Element: 0x1100}, "OB", nested),
	}

	return []*dicom.Element{
		privateElement(tag.Tag{Group: 0x0029, Element: 0x0010}, "LO", []string{"SIEMENS CSA HEADER"}),
		privateElement(tag.Tag{Group: 0x0029, Element: 0x1010}, "OB", csaImageHeader(p, rng)),
		privateElement(tag.Tag{Group: 0x0029, Element: 0x1020}, "OB", csaSeriesHeader(rng)),
		privateElement(tag.Tag{Group: 0x0029, Element: 0x1102}, "SQ", [][]*dicom.Element{item}),
	}
}

// privateElement builds an element the dictionary does not know, which
// dicom.NewElement refuses.
func privateElement(t tag.Tag, vr string, data any) *dicom.Element {
	value, err := dicom.NewValue(data)
	if err != nil {
		panic(fmt.Sprintf("private element %v: %v", t, err))
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, vr),
		RawValueRepresentation: vr,
		Value:                  value,
	}
}
