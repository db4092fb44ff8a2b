package extract

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/suyashkumar/dicom"
)

// elementValue converts a parsed element into a cell value. Numeric string
// VRs (DS, IS) become numbers, single values become scalars and multiple
// values become slices. Elements without a value yield nil.
func elementValue(elem *dicom.Element) any {
	if elem == nil || elem.Value == nil {
		return nil
	}

	switch raw := elem.Value.GetValue().(type) {
	case []string:
		return stringsValue(elem.RawValueRepresentation, raw)
	case []int:
		if len(raw) == 0 {
			return nil
		}
		out := make([]int64, len(raw))
		for i, v := range raw {
			out[i] = int64(v)
		}
		if len(out) == 1 {
			return out[0]
		}
		return out
	case int:
		return int64(raw)
	case []float64:
		if len(raw) == 0 {
			return nil
		}
		if len(raw) == 1 {
			return raw[0]
		}
		return append([]float64(nil), raw...)
	case []byte:
		if len(raw) == 0 {
			return nil
		}
		return bytesValue(raw)
	case dicom.PixelDataInfo:
		return nil
	default:
		return elem.Value.String()
	}
}

func stringsValue(vr string, raw []string) any {
	strs := make([]string, 0, len(raw))
	for _, s := range raw {
		strs = append(strs, strings.TrimRight(strings.TrimSpace(s), "\x00"))
	}
	if len(strs) == 0 {
		return nil
	}

	switch vr {
	case "DS":
		if allEmpty(strs) {
			return nil
		}
		if floats, ok := parseFloats(strs); ok {
			if len(floats) == 1 {
				return floats[0]
			}
			return floats
		}
	case "IS":
		if allEmpty(strs) {
			return nil
		}
		if ints, ok := parseInts(strs); ok {
			if len(ints) == 1 {
				return ints[0]
			}
			return ints
		}
	}

	if len(strs) == 1 {
		return strs[0]
	}
	return strs
}

func parseFloats(strs []string) ([]float64, bool) {
	out := make([]float64, len(strs))
	for i, s := range strs {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func parseInts(strs []string) ([]int64, bool) {
	out := make([]int64, len(strs))
	for i, s := range strs {
		n, err := strconv.ParseInt(strings.TrimPrefix(s, "+"), 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

func allEmpty(strs []string) bool {
	for _, s := range strs {
		if s != "" {
			return false
		}
	}
	return true
}

// bytesValue renders printable byte values as text and anything else as hex.
func bytesValue(b []byte) string {
	trimmed := strings.TrimRight(string(b), "\x00 ")
	if utf8.ValidString(trimmed) && strings.IndexFunc(trimmed, func(r rune) bool { return !unicode.IsPrint(r) }) < 0 {
		return trimmed
	}
	return "0x" + hex.EncodeToString(b)
}

// numbers returns v as a float slice when it holds one or more numbers.
func numbers(v any) ([]float64, bool) {
	switch n := v.(type) {
	case float64:
		return []float64{n}, true
	case int64:
		return []float64{float64(n)}, true
	case []float64:
		return n, true
	case []int64:
		out := make([]float64, len(n))
		for i, x := range n {
			out[i] = float64(x)
		}
		return out, true
	default:
		return nil, false
	}
}
