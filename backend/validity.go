package backend

import "github.com/pkg/errors"

// Validity is the owner trust recorded for a key in the local keyring.
type Validity int

// Validity levels, ordered from least to most trusted.
const (
	ValidityUnknown  Validity = 0
	ValidityNever    Validity = 1
	ValidityMarginal Validity = 2
	ValidityFull     Validity = 3
	ValidityUltimate Validity = 4
)

func (v Validity) String() string {
	switch v {
	case ValidityUnknown:
		return "unknown"
	case ValidityNever:
		return "never"
	case ValidityMarginal:
		return "marginal"
	case ValidityFull:
		return "full"
	case ValidityUltimate:
		return "ultimate"
	}
	return "invalid"
}

// Valid reports whether v is one of the defined levels.
func (v Validity) Valid() bool {
	return v >= ValidityUnknown && v <= ValidityUltimate
}

// ParseValidity reads a validity level from its string form.
func ParseValidity(s string) (Validity, error) {
	for v := ValidityUnknown; v <= ValidityUltimate; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	return ValidityUnknown, errors.Errorf("gpgmime: unknown validity %q", s)
}
