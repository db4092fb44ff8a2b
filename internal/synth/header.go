package synth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

const preambleLength = 128

// stripHeader removes the preamble, the DICM magic and the whole file-meta
// group from a written file, leaving a bare dataset.
func stripHeader(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Preamble, "DICM", then (0002,0000) UL group length in explicit VR.
	const groupLengthEnd = preambleLength + 4 + 12
	if len(data) < groupLengthEnd || !bytes.Equal(data[preambleLength:preambleLength+4], []byte("DICM")) {
		return fmt.Errorf("%s: no file header", path)
	}
	gl := data[preambleLength+4:]
	if binary.LittleEndian.Uint16(gl) != 0x0002 || binary.LittleEndian.Uint16(gl[2:]) != 0x0000 {
		return fmt.Errorf("%s: file meta group length not found", path)
	}
	bodyStart := groupLengthEnd + int(binary.LittleEndian.Uint32(gl[8:]))
	if bodyStart > len(data) {
		return fmt.Errorf("%s: file meta group length %d exceeds file", path, bodyStart)
	}
	return os.WriteFile(path, data[bodyStart:], 0o644)
}
