package gnupg

import (
	"strconv"
	"strings"
	"time"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

// keyListing is one primary key parsed from --with-colons --list-keys
// output. Expires is nil for keys without an expiry date.
type keyListing struct {
	Fingerprint fingerprint.Fingerprint
	Subkeys     []fingerprint.Fingerprint
	Validity    backend.Validity
	Expires     *time.Time
}

// matches reports whether fp names the primary key or one of its subkeys.
func (l keyListing) matches(fp fingerprint.Fingerprint) bool {
	if l.Fingerprint == fp {
		return true
	}
	for _, sub := range l.Subkeys {
		if sub == fp {
			return true
		}
	}
	return false
}

// parseListKeys parses the colon-delimited output of `gpg --list-keys`.
// For the record format see doc/DETAILS in the GnuPG source.
func parseListKeys(colonDelimited string) []keyListing {
	parser := listKeysParser{}
	for _, line := range strings.Split(colonDelimited, "\n") {
		parser.pushLine(strings.Split(line, ":"))
	}
	return parser.keys()
}

// listKeysParser accumulates a partial key as lines are pushed: the pub
// record carries validity and expiry, the following fpr record carries the
// fingerprint. Fingerprints of sub/ssb records are collected as subkeys.
type listKeysParser struct {
	partial *keyListing
	parsed  []keyListing
	inSub   bool
}

func (p *listKeysParser) pushLine(cols []string) {
	switch cols[0] {
	case "pub":
		p.handlePubLine(cols)
	case "sub", "ssb":
		p.inSub = true
	case "fpr":
		p.handleFingerprintLine(cols)
	}
}

func (p *listKeysParser) keys() []keyListing {
	p.flush()
	return p.parsed
}

func (p *listKeysParser) flush() {
	if p.partial != nil && p.partial.Fingerprint.IsSet() {
		p.parsed = append(p.parsed, *p.partial)
	}
	p.partial = nil
}

func (p *listKeysParser) handlePubLine(cols []string) {
	p.flush()
	p.inSub = false

	if len(cols) < 7 {
		return
	}

	p.partial = &keyListing{
		Validity: parseValidityField(cols[1]),
		Expires:  parseTimestampField(cols[6]),
	}
}

func (p *listKeysParser) handleFingerprintLine(cols []string) {
	if p.partial == nil || len(cols) < 10 {
		return
	}

	fp, err := fingerprint.Parse(cols[9])
	if err != nil {
		return
	}
	if p.inSub {
		p.partial.Subkeys = append(p.partial.Subkeys, fp)
		return
	}
	if !p.partial.Fingerprint.IsSet() {
		p.partial.Fingerprint = fp
	}
}

// parseValidityField maps the validity letter of a pub record to a
// Validity level. Unrecognized letters (expired, revoked, invalid) map to
// unknown.
func parseValidityField(field string) backend.Validity {
	switch field {
	case "n":
		return backend.ValidityNever
	case "m":
		return backend.ValidityMarginal
	case "f":
		return backend.ValidityFull
	case "u":
		return backend.ValidityUltimate
	default:
		return backend.ValidityUnknown
	}
}

// parseOwnertrust finds the trust recorded for fp in the output of
// --export-ownertrust. The ownertrust db stores validity levels offset by
// two.
func parseOwnertrust(output string, fp fingerprint.Fingerprint) backend.Validity {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 2 {
			continue
		}

		parsed, err := fingerprint.Parse(fields[0])
		if err != nil || parsed != fp {
			continue
		}
		level, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}

		trust := backend.Validity(level - 2)
		if trust.Valid() {
			return trust
		}
		return backend.ValidityUnknown
	}
	return backend.ValidityUnknown
}

func parseTimestampField(field string) *time.Time {
	if field == "" {
		return nil
	}
	seconds, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(seconds, 0).UTC()
	return &t
}
