package gnupg

import (
	"os"

	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/fingerprint"
)

func (b *Backend) Sign(data []byte, signers []fingerprint.Fingerprint) ([]byte, error) {
	if len(signers) == 0 {
		return nil, errors.New("gpgmime: no signers given")
	}

	args := append(localUserArguments(signers), "--detach-sign", "--armor")
	stdout, stderr, err := b.run(data, args...)
	if err != nil {
		return nil, classifyRunError(err, stderr, parseStatus(stderr))
	}
	return stdout, nil
}

func (b *Backend) Verify(data, signature []byte) (fingerprint.Fingerprint, error) {
	// a detached signature must be passed as a file, the signed data
	// arrives on stdin
	sigFile, err := os.CreateTemp("", "gpgmime-sig-*.asc")
	if err != nil {
		return fingerprint.Fingerprint{}, errors.Wrap(err, "gpgmime: temp file for signature")
	}
	defer os.Remove(sigFile.Name())

	if _, err := sigFile.Write(signature); err != nil {
		sigFile.Close()
		return fingerprint.Fingerprint{}, errors.Wrap(err, "gpgmime: write signature")
	}
	if err := sigFile.Close(); err != nil {
		return fingerprint.Fingerprint{}, errors.Wrap(err, "gpgmime: write signature")
	}

	_, stderr, _ := b.run(data, "--verify", sigFile.Name(), "-")
	return validSigFingerprint(parseStatus(stderr))
}
