package local

import (
	"bytes"
	"os"
	"path/filepath"

	openpgp "github.com/ProtonMail/go-crypto/openpgp/v2"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/armor"
	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

const (
	pubringFilename = "pubring.gpg"
	secringFilename = "secring.gpg"
)

// keyring holds the public and private entities known to the backend and
// persists them in the keyring directory.
type keyring struct {
	home string

	public openpgp.EntityList
	secret openpgp.EntityList
}

func openKeyring(home string) (*keyring, error) {
	kr := &keyring{home: home}

	var err error
	if kr.public, err = readRingFile(filepath.Join(home, pubringFilename)); err != nil {
		return nil, err
	}
	if kr.secret, err = readRingFile(filepath.Join(home, secringFilename)); err != nil {
		return nil, err
	}
	return kr, nil
}

func readRingFile(path string) (openpgp.EntityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return openpgp.EntityList{}, nil
		}
		return nil, errors.Wrapf(err, "gpgmime: cannot read %s", filepath.Base(path))
	}
	if len(data) == 0 {
		return openpgp.EntityList{}, nil
	}

	entities, err := openpgp.ReadKeyRing(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "gpgmime: cannot parse %s", filepath.Base(path))
	}
	return entities, nil
}

func (kr *keyring) save() error {
	var pubBuf bytes.Buffer
	for _, e := range kr.public {
		if err := e.Serialize(&pubBuf); err != nil {
			return errors.Wrap(err, "gpgmime: cannot serialize public key")
		}
	}

	var secBuf bytes.Buffer
	for _, e := range kr.secret {
		if err := e.SerializePrivateWithoutSigning(&secBuf, nil); err != nil {
			return errors.Wrap(err, "gpgmime: cannot serialize private key")
		}
	}

	if err := os.WriteFile(filepath.Join(kr.home, pubringFilename), pubBuf.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "gpgmime: cannot write pubring")
	}
	if err := os.WriteFile(filepath.Join(kr.home, secringFilename), secBuf.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "gpgmime: cannot write secring")
	}
	return nil
}

// readEntities parses armored or binary key material.
func readEntities(data []byte) (openpgp.EntityList, error) {
	r, armored := armor.IsPGPArmored(bytes.NewReader(data))

	var entities openpgp.EntityList
	var err error
	if armored {
		entities, err = openpgp.ReadArmoredKeyRing(r)
	} else {
		entities, err = openpgp.ReadKeyRing(r)
	}
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: cannot read key data")
	}
	if len(entities) == 0 {
		return nil, errors.New("gpgmime: key data contains no keys")
	}
	return entities, nil
}

// matches reports whether fp identifies the entity's primary key or one of
// its subkeys.
func matches(e *openpgp.Entity, fp fingerprint.Fingerprint) bool {
	raw := fp.Bytes()
	if bytes.Equal(e.PrimaryKey.Fingerprint, raw[:]) {
		return true
	}
	for _, sub := range e.Subkeys {
		if bytes.Equal(sub.PublicKey.Fingerprint, raw[:]) {
			return true
		}
	}
	return false
}

// publicEntity resolves fp against the public keyring.
func (kr *keyring) publicEntity(fp fingerprint.Fingerprint) (*openpgp.Entity, error) {
	for _, e := range kr.public {
		if matches(e, fp) {
			return e, nil
		}
	}
	return nil, errors.WithMessage(backend.ErrKeyNotFound, fp.Hex())
}

// secretEntity resolves fp against the private keyring.
func (kr *keyring) secretEntity(fp fingerprint.Fingerprint) (*openpgp.Entity, error) {
	for _, e := range kr.secret {
		if matches(e, fp) && e.PrivateKey != nil {
			return e, nil
		}
	}
	return nil, errors.WithMessage(backend.ErrKeyNotFound, fp.Hex())
}

// addPublic merges an entity into the public keyring, replacing an earlier
// serialization of the same primary key.
func (kr *keyring) addPublic(e *openpgp.Entity) {
	kr.public = replaceOrAppend(kr.public, e)
}

func (kr *keyring) addSecret(e *openpgp.Entity) {
	kr.secret = replaceOrAppend(kr.secret, e)
}

func replaceOrAppend(list openpgp.EntityList, e *openpgp.Entity) openpgp.EntityList {
	for i, existing := range list {
		if bytes.Equal(existing.PrimaryKey.Fingerprint, e.PrimaryKey.Fingerprint) {
			list[i] = e
			return list
		}
	}
	return append(list, e)
}

func primaryFingerprint(e *openpgp.Entity) (fingerprint.Fingerprint, error) {
	return fingerprint.FromBytes(e.PrimaryKey.Fingerprint)
}
