package gnupg

import (
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/fingerprint"
)

func (b *Backend) Encrypt(data []byte, recipients []fingerprint.Fingerprint) ([]byte, error) {
	return b.encrypt(data, recipients, nil)
}

func (b *Backend) SignEncrypt(data []byte, recipients, signers []fingerprint.Fingerprint) ([]byte, error) {
	if len(signers) == 0 {
		return nil, errors.New("gpgmime: no signers given")
	}
	return b.encrypt(data, recipients, signers)
}

func (b *Backend) encrypt(data []byte, recipients, signers []fingerprint.Fingerprint) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, errors.New("gpgmime: no recipients given")
	}

	args := recipientArguments(recipients)
	if len(signers) > 0 {
		args = append(args, localUserArguments(signers)...)
		args = append(args, "--sign")
	}
	if b.alwaysTrust {
		args = append(args, "--trust-model", "always")
	}
	args = append(args, "--encrypt", "--armor")

	stdout, stderr, err := b.run(data, args...)
	if err != nil {
		return nil, classifyRunError(err, stderr, parseStatus(stderr))
	}
	return stdout, nil
}

func (b *Backend) Decrypt(data []byte) ([]byte, error) {
	stdout, stderr, err := b.run(data, "--decrypt")
	if err != nil {
		return nil, classifyRunError(err, stderr, parseStatus(stderr))
	}
	return stdout, nil
}

func (b *Backend) DecryptVerify(data []byte) ([]byte, fingerprint.Fingerprint, error) {
	stdout, stderr, err := b.run(data, "--decrypt")
	if err != nil {
		return nil, fingerprint.Fingerprint{}, classifyRunError(err, stderr, parseStatus(stderr))
	}

	fp, err := validSigFingerprint(parseStatus(stderr))
	if err != nil {
		return nil, fingerprint.Fingerprint{}, err
	}
	return stdout, fp, nil
}
