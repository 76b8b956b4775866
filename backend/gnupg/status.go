package gnupg

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

const statusPrefix = "[GNUPG:] "

// Reason codes reported with INV_RECP and INV_SGNR status lines, see
// doc/DETAILS in the GnuPG source.
const (
	invReasonNotFound    = "1"
	invReasonMissingCert = "9"
	invReasonNotTrusted  = "10"
	invReasonNoSecretKey = "11"
)

// statusLine is one machine-readable line gpg emitted on the status fd,
// e.g. keyword "IMPORT_OK" with args ["1", "CC9F..."].
type statusLine struct {
	keyword string
	args    []string
}

// parseStatus extracts the "[GNUPG:] " lines from gpg's stderr.
func parseStatus(stderr []byte) []statusLine {
	var lines []statusLine
	for _, line := range strings.Split(string(stderr), "\n") {
		if !strings.HasPrefix(line, statusPrefix) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, statusPrefix))
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, statusLine{keyword: fields[0], args: fields[1:]})
	}
	return lines
}

// findStatus returns the first status line with the given keyword.
func findStatus(lines []statusLine, keyword string) (statusLine, bool) {
	for _, line := range lines {
		if line.keyword == keyword {
			return line, true
		}
	}
	return statusLine{}, false
}

// invalidKeyError classifies INV_RECP and INV_SGNR status lines into the
// backend sentinel errors. It returns nil when no such line is present.
func invalidKeyError(lines []statusLine) error {
	for _, line := range lines {
		if line.keyword != "INV_RECP" && line.keyword != "INV_SGNR" {
			continue
		}
		if len(line.args) < 2 {
			continue
		}
		switch line.args[0] {
		case invReasonNotTrusted:
			return errors.WithMessage(backend.ErrUntrustedKey, line.args[1])
		case invReasonNotFound, invReasonMissingCert, invReasonNoSecretKey:
			return errors.WithMessage(backend.ErrKeyNotFound, line.args[1])
		default:
			return errors.Errorf("gpgmime: gpg rejected key %s (reason %s)", line.args[1], line.args[0])
		}
	}
	return nil
}

// validSigFingerprint returns the signing key fingerprint from a VALIDSIG
// status line. A missing line with an ERRSIG "no public key" line maps to
// ErrKeyNotFound.
func validSigFingerprint(lines []statusLine) (fingerprint.Fingerprint, error) {
	if line, ok := findStatus(lines, "VALIDSIG"); ok && len(line.args) > 0 {
		return fingerprint.Parse(line.args[0])
	}
	if line, ok := findStatus(lines, "ERRSIG"); ok {
		// the sixth field is the rc, 9 means missing public key
		if len(line.args) >= 6 && line.args[5] == "9" {
			return fingerprint.Fingerprint{}, errors.WithMessage(backend.ErrKeyNotFound, line.args[0])
		}
		return fingerprint.Fingerprint{}, errors.New("gpgmime: signature verification failed")
	}
	return fingerprint.Fingerprint{}, errors.New("gpgmime: no valid signature found")
}
