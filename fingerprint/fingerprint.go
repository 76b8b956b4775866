// Package fingerprint provides the Fingerprint type identifying an OpenPGP key.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var hexPattern = regexp.MustCompile(`^(0x)?[A-Fa-f0-9]{40}$`)

// Fingerprint represents a 20-byte OpenPGP v4 key fingerprint.
type Fingerprint struct {
	bytes [20]byte

	isSet bool
}

// Parse reads a fingerprint from a string. It accepts upper and lower case
// hex, spaces and an optional "0x" prefix.
func Parse(s string) (Fingerprint, error) {
	var fp Fingerprint

	withoutSpaces := strings.ReplaceAll(s, " ", "")
	if !hexPattern.MatchString(withoutSpaces) {
		return fp, errors.Errorf("gpgmime: %q is not a valid fingerprint", s)
	}

	decoded, err := hex.DecodeString(strings.TrimPrefix(withoutSpaces, "0x"))
	if err != nil {
		return fp, errors.Wrap(err, "gpgmime: invalid fingerprint")
	}

	copy(fp.bytes[:], decoded)
	fp.isSet = true
	return fp, nil
}

// MustParse reads a fingerprint from a string and panics if it is invalid.
func MustParse(s string) Fingerprint {
	fp, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return fp
}

// FromBytes creates a fingerprint from raw key material, as found in the
// Fingerprint field of an openpgp public key packet.
func FromBytes(b []byte) (Fingerprint, error) {
	var fp Fingerprint
	if len(b) != 20 {
		return fp, errors.Errorf("gpgmime: fingerprint must be 20 bytes, got %d", len(b))
	}
	copy(fp.bytes[:], b)
	fp.isSet = true
	return fp, nil
}

// String returns the fingerprint in the human friendly format, for example
// `AB01 AB01 AB01 AB01 AB01  AB01 AB01 AB01 AB01 AB01`.
func (f Fingerprint) String() string {
	f.assertIsSet()
	b := f.bytes

	return fmt.Sprintf(
		"%0X %0X %0X %0X %0X  %0X %0X %0X %0X %0X",
		b[0:2], b[2:4], b[4:6], b[6:8], b[8:10],
		b[10:12], b[12:14], b[14:16], b[16:18], b[18:20],
	)
}

// Hex returns the fingerprint as 40 uppercase hex characters without spaces.
func (f Fingerprint) Hex() string {
	f.assertIsSet()
	return fmt.Sprintf("%0X", f.bytes)
}

// Bytes returns the raw 20 fingerprint bytes.
func (f Fingerprint) Bytes() [20]byte {
	f.assertIsSet()
	return f.bytes
}

// IsSet reports whether the fingerprint holds a value. The zero
// Fingerprint is not set and most methods panic on it.
func (f Fingerprint) IsSet() bool {
	return f.isSet
}

func (f Fingerprint) assertIsSet() {
	if !f.isSet {
		panic(errors.New("gpgmime: use of unset fingerprint"))
	}
}

// Hexes formats a list of fingerprints as plain hex strings.
func Hexes(fps []Fingerprint) []string {
	out := make([]string, 0, len(fps))
	for _, fp := range fps {
		out = append(out, fp.Hex())
	}
	return out
}
