// Package local implements a GPG backend that performs all OpenPGP
// operations in process and keeps its keyring in a directory on disk.
//
// The keyring directory holds pubring.gpg and secring.gpg with binary key
// serializations and trustdb.json with the recorded owner trust. It is the
// in-process equivalent of a GNUPGHOME.
package local

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
)

// Backend is a pure-Go GPG backend built on ProtonMail/go-crypto.
type Backend struct {
	home        string
	alwaysTrust bool

	keyring *keyring
	trust   *trustDB
}

var _ backend.Backend = (*Backend)(nil)

// New opens the keyring in opts.Home, creating the directory when missing.
// opts.Path is ignored, the backend does not invoke the gpg binary.
func New(opts backend.Options) (*Backend, error) {
	home := opts.Home
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "gpgmime: cannot determine home directory")
		}
		home = filepath.Join(userHome, ".gpg-mime")
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, errors.Wrap(err, "gpgmime: cannot create keyring directory")
	}

	kr, err := openKeyring(home)
	if err != nil {
		return nil, err
	}

	trust, err := openTrustDB(home)
	if err != nil {
		return nil, err
	}

	return &Backend{
		home:        home,
		alwaysTrust: opts.AlwaysTrust,
		keyring:     kr,
		trust:       trust,
	}, nil
}

// AlwaysTrust returns a backend sharing this keyring that skips the
// recipient trust check.
func (b *Backend) AlwaysTrust() backend.Backend {
	trusting := *b
	trusting.alwaysTrust = true
	return &trusting
}

// Home returns the keyring directory of the backend.
func (b *Backend) Home() string {
	return b.home
}

// Close implements backend.Backend. The backend holds no open resources
// between operations.
func (b *Backend) Close() error {
	return nil
}
