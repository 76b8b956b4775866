package local

import (
	"bytes"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp/packet"
	openpgp "github.com/ProtonMail/go-crypto/openpgp/v2"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/armor"
	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/constants"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

// recipientEntities resolves the recipient fingerprints to public entities
// and enforces the recorded owner trust unless the backend always trusts.
func (b *Backend) recipientEntities(recipients []fingerprint.Fingerprint) (openpgp.EntityList, error) {
	if len(recipients) == 0 {
		return nil, errors.New("gpgmime: no recipient given")
	}

	entities := make(openpgp.EntityList, 0, len(recipients))
	for _, fp := range recipients {
		e, err := b.keyring.publicEntity(fp)
		if err != nil {
			return nil, err
		}
		primary, err := primaryFingerprint(e)
		if err != nil {
			return nil, err
		}
		if !b.alwaysTrust && b.trust.get(primary) < backend.ValidityFull {
			return nil, errors.WithMessage(backend.ErrUntrustedKey, fp.Hex())
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (b *Backend) encrypt(data []byte, recipients, signers []fingerprint.Fingerprint) ([]byte, error) {
	recipientList, err := b.recipientEntities(recipients)
	if err != nil {
		return nil, err
	}

	var signerList []*openpgp.Entity
	if len(signers) > 0 {
		if signerList, err = b.signingEntities(signers); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	armorWriter, err := armor.ArmorWriterWithType(&buf, constants.PGPMessageHeader)
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: cannot create armor writer")
	}

	messageWriter, err := openpgp.EncryptWithParams(armorWriter, recipientList, nil, &openpgp.EncryptParams{
		KeyWriter: armorWriter,
		Signers:   signerList,
		Config:    &packet.Config{},
	})
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: error in encrypting")
	}
	if _, err := messageWriter.Write(data); err != nil {
		return nil, errors.Wrap(err, "gpgmime: error in encrypting")
	}
	if err := messageWriter.Close(); err != nil {
		return nil, errors.Wrap(err, "gpgmime: error in encrypting")
	}
	if err := armorWriter.Close(); err != nil {
		return nil, errors.Wrap(err, "gpgmime: cannot close armor writer")
	}
	return buf.Bytes(), nil
}

// Encrypt encrypts data to the given recipients and returns the armored
// ciphertext.
func (b *Backend) Encrypt(data []byte, recipients []fingerprint.Fingerprint) ([]byte, error) {
	return b.encrypt(data, recipients, nil)
}

// SignEncrypt signs and encrypts data in one pass.
func (b *Backend) SignEncrypt(data []byte, recipients, signers []fingerprint.Fingerprint) ([]byte, error) {
	if len(signers) == 0 {
		return nil, errors.New("gpgmime: no signer given")
	}
	return b.encrypt(data, recipients, signers)
}

func (b *Backend) readMessage(data []byte) (*openpgp.MessageDetails, []byte, error) {
	messageReader, armored := armor.IsPGPArmored(bytes.NewReader(data))
	if armored {
		unarmored, err := armor.Unarmor(data)
		if err != nil {
			return nil, nil, err
		}
		messageReader = bytes.NewReader(unarmored)
	}

	keyring := append(openpgp.EntityList{}, b.keyring.secret...)
	keyring = append(keyring, b.keyring.public...)

	md, err := openpgp.ReadMessage(messageReader, keyring, nil, &packet.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "gpgmime: cannot decrypt message")
	}

	plaintext, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, nil, errors.Wrap(err, "gpgmime: cannot decrypt message")
	}
	return md, plaintext, nil
}

// Decrypt decrypts an armored message with the private keys in the keyring.
func (b *Backend) Decrypt(data []byte) ([]byte, error) {
	_, plaintext, err := b.readMessage(data)
	return plaintext, err
}

// DecryptVerify decrypts an armored message and verifies the embedded
// signature, returning the plaintext and the signer fingerprint.
func (b *Backend) DecryptVerify(data []byte) ([]byte, fingerprint.Fingerprint, error) {
	md, plaintext, err := b.readMessage(data)
	if err != nil {
		return nil, fingerprint.Fingerprint{}, err
	}

	fp, err := signerFingerprint(md)
	if err != nil {
		return nil, fp, err
	}
	return plaintext, fp, nil
}
