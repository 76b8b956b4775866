package local

import (
	"time"

	"github.com/ProtonMail/go-crypto/openpgp/packet"
	openpgp "github.com/ProtonMail/go-crypto/openpgp/v2"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

// ImportKey adds a public key to the keyring and returns the fingerprint
// of the first imported key.
func (b *Backend) ImportKey(data []byte) (fingerprint.Fingerprint, error) {
	entities, err := readEntities(data)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}

	for _, e := range entities {
		b.keyring.addPublic(e)
	}
	if err := b.keyring.save(); err != nil {
		return fingerprint.Fingerprint{}, err
	}
	return primaryFingerprint(entities[0])
}

// ImportPrivateKey adds a private key to the keyring and returns its
// fingerprint. The public part is imported alongside.
func (b *Backend) ImportPrivateKey(data []byte) (fingerprint.Fingerprint, error) {
	entities, err := readEntities(data)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}

	for _, e := range entities {
		if e.PrivateKey == nil {
			return fingerprint.Fingerprint{}, errors.New("gpgmime: key data contains no private key")
		}
		b.keyring.addSecret(e)
		b.keyring.addPublic(e)
	}
	if err := b.keyring.save(); err != nil {
		return fingerprint.Fingerprint{}, err
	}
	return primaryFingerprint(entities[0])
}

// CreateKey generates a new key pair, stores it in the keyring with
// ultimate owner trust and returns its fingerprint. A lifetime of zero
// creates a key that does not expire.
func (b *Backend) CreateKey(name, email string, lifetimeSecs uint32) (fingerprint.Fingerprint, error) {
	config := &packet.Config{
		KeyLifetimeSecs: lifetimeSecs,
	}

	entity, err := openpgp.NewEntity(name, "", email, config)
	if err != nil {
		return fingerprint.Fingerprint{}, errors.Wrap(err, "gpgmime: cannot generate key")
	}

	b.keyring.addSecret(entity)
	b.keyring.addPublic(entity)
	if err := b.keyring.save(); err != nil {
		return fingerprint.Fingerprint{}, err
	}

	fp, err := primaryFingerprint(entity)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	if err := b.trust.set(fp, backend.ValidityUltimate); err != nil {
		return fingerprint.Fingerprint{}, err
	}
	return fp, nil
}

// GetTrust returns the owner trust recorded for the key. Trust is kept
// per primary key, a subkey fingerprint resolves to it.
func (b *Backend) GetTrust(fp fingerprint.Fingerprint) (backend.Validity, error) {
	e, err := b.keyring.publicEntity(fp)
	if err != nil {
		return backend.ValidityUnknown, err
	}
	primary, err := primaryFingerprint(e)
	if err != nil {
		return backend.ValidityUnknown, err
	}
	return b.trust.get(primary), nil
}

// SetTrust records the owner trust for the key. ValidityUnknown cannot be
// set again once a trust level was recorded.
func (b *Backend) SetTrust(fp fingerprint.Fingerprint, trust backend.Validity) error {
	if trust == backend.ValidityUnknown || !trust.Valid() {
		return errors.Errorf("gpgmime: cannot set trust to %s", trust)
	}
	e, err := b.keyring.publicEntity(fp)
	if err != nil {
		return err
	}
	primary, err := primaryFingerprint(e)
	if err != nil {
		return err
	}
	return b.trust.set(primary, trust)
}

// Expires returns when the key expires, or nil if it does not expire.
func (b *Backend) Expires(fp fingerprint.Fingerprint) (*time.Time, error) {
	e, err := b.keyring.publicEntity(fp)
	if err != nil {
		return nil, err
	}

	sig, err := e.PrimarySelfSignature(time.Time{}, &packet.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: key has no valid self-signature")
	}
	if sig.KeyLifetimeSecs == nil || *sig.KeyLifetimeSecs == 0 {
		return nil, nil
	}

	expiry := e.PrimaryKey.CreationTime.Add(time.Duration(*sig.KeyLifetimeSecs) * time.Second)
	return &expiry, nil
}
