package local

import (
	"bytes"
	"io"

	pgpErrors "github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	openpgp "github.com/ProtonMail/go-crypto/openpgp/v2"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/armor"
	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/constants"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

// signingEntities resolves the signer fingerprints to unlocked private
// entities.
func (b *Backend) signingEntities(signers []fingerprint.Fingerprint) ([]*openpgp.Entity, error) {
	if len(signers) == 0 {
		return nil, errors.New("gpgmime: no signer given")
	}

	entities := make([]*openpgp.Entity, 0, len(signers))
	for _, fp := range signers {
		e, err := b.keyring.secretEntity(fp)
		if err != nil {
			return nil, err
		}
		if e.PrivateKey.Encrypted {
			return nil, errors.Errorf("gpgmime: private key %s is locked", fp.Hex())
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Sign creates a detached armored signature of data.
func (b *Backend) Sign(data []byte, signers []fingerprint.Fingerprint) ([]byte, error) {
	entities, err := b.signingEntities(signers)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	armorWriter, err := armor.ArmorWriterWithType(&buf, constants.PGPSignatureHeader)
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: cannot create armor writer")
	}

	messageWriter, err := openpgp.DetachSignWriter(armorWriter, entities, &openpgp.SignParams{
		Config: &packet.Config{},
	})
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: error in signing")
	}
	if _, err := messageWriter.Write(data); err != nil {
		return nil, errors.Wrap(err, "gpgmime: error in signing")
	}
	if err := messageWriter.Close(); err != nil {
		return nil, errors.Wrap(err, "gpgmime: error in signing")
	}
	if err := armorWriter.Close(); err != nil {
		return nil, errors.Wrap(err, "gpgmime: cannot close armor writer")
	}
	return buf.Bytes(), nil
}

// Verify checks a detached signature and returns the fingerprint of the
// key that created it.
func (b *Backend) Verify(data, signature []byte) (fingerprint.Fingerprint, error) {
	var fp fingerprint.Fingerprint

	sigReader, armored := armor.IsPGPArmored(bytes.NewReader(signature))
	if armored {
		unarmored, err := armor.Unarmor(signature)
		if err != nil {
			return fp, err
		}
		sigReader = bytes.NewReader(unarmored)
	}

	md, err := openpgp.VerifyDetachedSignatureReader(
		b.keyring.public,
		bytes.NewReader(data),
		sigReader,
		&packet.Config{},
	)
	if err != nil {
		return fp, errors.Wrap(err, "gpgmime: cannot verify signature")
	}
	if _, err := io.Copy(io.Discard, md.UnverifiedBody); err != nil {
		return fp, errors.Wrap(err, "gpgmime: cannot verify signature")
	}

	return signerFingerprint(md)
}

// signerFingerprint extracts the fingerprint of the first successfully
// verified signature from fully read message details.
func signerFingerprint(md *openpgp.MessageDetails) (fingerprint.Fingerprint, error) {
	var fp fingerprint.Fingerprint
	var sigErr error

	for _, candidate := range md.SignatureCandidates {
		if candidate.SignatureError == nil && candidate.SignedBy != nil {
			return fingerprint.FromBytes(candidate.SignedBy.Entity.PrimaryKey.Fingerprint)
		}
		if candidate.SignatureError != nil {
			sigErr = candidate.SignatureError
		}
	}

	if errors.Is(sigErr, pgpErrors.ErrUnknownIssuer) {
		return fp, errors.WithMessage(backend.ErrKeyNotFound, "signing key not in keyring")
	}
	if sigErr != nil {
		return fp, errors.Wrap(sigErr, "gpgmime: signature verification failed")
	}
	return fp, errors.New("gpgmime: message carries no verifiable signature")
}
