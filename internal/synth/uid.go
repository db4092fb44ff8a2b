package synth

import (
	"math/big"

	"github.com/google/uuid"
)

// uidRoot is the organisation root shared by every generated UID.
const uidRoot = "1.2.826.0.1.3680043.8.498."

// deterministicUID maps seed to a stable DICOM UID of at most 64 characters.
func deterministicUID(seed string) string {
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))
	digits := new(big.Int).SetBytes(u[:]).String()
	if room := 64 - len(uidRoot); len(digits) > room {
		digits = digits[:room]
	}
	// Components must not have leading zeros.
	for len(digits) > 1 && digits[0] == '0' {
		digits = digits[1:]
	}
	return uidRoot + digits
}
