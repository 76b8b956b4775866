// Package backend defines the uniform contract implemented by all GPG
// backends. A backend wraps one concrete OpenPGP implementation and exposes
// signing, encryption and key management over the keyring that
// implementation owns.
//
// Two implementations ship with this module: backend/local keeps a file
// based keyring and performs all operations in process, backend/gnupg
// shells out to the system gpg binary.
package backend

import (
	"time"

	"github.com/mathiasertl/gpg-mime/fingerprint"
)

// Backend is a uniform interface over a GPG implementation.
//
// All operations are synchronous, blocking delegations to the underlying
// implementation. The keyring is treated as an externally synchronized
// resource; backends add no locking of their own.
type Backend interface {
	// Sign creates a detached, armored signature of data with the given
	// signing keys. It fails with ErrKeyNotFound if a signer fingerprint
	// is unknown to the keyring or has no private part.
	Sign(data []byte, signers []fingerprint.Fingerprint) ([]byte, error)

	// Encrypt encrypts data to the given recipients and returns the
	// armored ciphertext. It fails with ErrKeyNotFound if a recipient key
	// is missing and with ErrUntrustedKey if a recipient key's validity
	// is insufficient and the backend is not configured to always trust.
	Encrypt(data []byte, recipients []fingerprint.Fingerprint) ([]byte, error)

	// SignEncrypt signs and encrypts data in one pass.
	SignEncrypt(data []byte, recipients, signers []fingerprint.Fingerprint) ([]byte, error)

	// Verify checks a detached signature and returns the fingerprint of
	// the signing key.
	Verify(data, signature []byte) (fingerprint.Fingerprint, error)

	// Decrypt decrypts an armored message with the private keys in the
	// keyring.
	Decrypt(data []byte) ([]byte, error)

	// DecryptVerify decrypts an armored message and verifies its embedded
	// signature, returning the plaintext and the signer fingerprint.
	DecryptVerify(data []byte) ([]byte, fingerprint.Fingerprint, error)

	// ImportKey adds a public key to the keyring and returns the
	// fingerprint of the first imported key. Importing the same key again
	// returns the same fingerprint.
	ImportKey(data []byte) (fingerprint.Fingerprint, error)

	// ImportPrivateKey adds a private key to the keyring and returns its
	// fingerprint.
	ImportPrivateKey(data []byte) (fingerprint.Fingerprint, error)

	// ExportKey returns the armored public key for the fingerprint.
	ExportKey(fp fingerprint.Fingerprint) ([]byte, error)

	// ExportPrivateKey returns the armored private key for the
	// fingerprint.
	ExportPrivateKey(fp fingerprint.Fingerprint) ([]byte, error)

	// GetTrust returns the owner trust recorded for the key. Keys without
	// a recorded trust have ValidityUnknown.
	GetTrust(fp fingerprint.Fingerprint) (Validity, error)

	// SetTrust records the owner trust for the key. ValidityUnknown
	// cannot be set.
	SetTrust(fp fingerprint.Fingerprint, trust Validity) error

	// Expires returns when the key expires, or nil if it does not expire.
	Expires(fp fingerprint.Fingerprint) (*time.Time, error)

	// Close releases resources associated with the backend.
	Close() error
}

// AlwaysTruster is implemented by backends that can produce a variant of
// themselves that skips the recipient trust check, sharing the underlying
// keyring.
type AlwaysTruster interface {
	AlwaysTrust() Backend
}

// Options holds the construction parameters shared by all backends.
// Options not used by a particular backend are ignored.
type Options struct {
	// Home is the keyring directory, equivalent to GNUPGHOME.
	Home string

	// Path is the path of the gpg binary. Backends that do not invoke the
	// binary ignore it.
	Path string

	// AlwaysTrust makes Encrypt trust all recipient keys regardless of
	// their recorded validity.
	AlwaysTrust bool
}
