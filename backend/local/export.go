package local

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/armor"
	"github.com/mathiasertl/gpg-mime/constants"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

// ExportKey returns the armored public key for the fingerprint.
func (b *Backend) ExportKey(fp fingerprint.Fingerprint) ([]byte, error) {
	e, err := b.keyring.publicEntity(fp)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := e.Serialize(&buf); err != nil {
		return nil, errors.Wrap(err, "gpgmime: cannot serialize public key")
	}

	armored, err := armor.ArmorWithType(buf.Bytes(), constants.PublicKeyHeader)
	if err != nil {
		return nil, err
	}
	return []byte(armored), nil
}

// ExportPrivateKey returns the armored private key for the fingerprint.
func (b *Backend) ExportPrivateKey(fp fingerprint.Fingerprint) ([]byte, error) {
	e, err := b.keyring.secretEntity(fp)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := e.SerializePrivateWithoutSigning(&buf, nil); err != nil {
		return nil, errors.Wrap(err, "gpgmime: cannot serialize private key")
	}

	armored, err := armor.ArmorWithType(buf.Bytes(), constants.PrivateKeyHeader)
	if err != nil {
		return nil, err
	}
	return []byte(armored), nil
}
