package gnupg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

// secretKeyFlag is set on an IMPORT_OK status line when the imported key
// contained a private part, see doc/DETAILS in the GnuPG source.
const secretKeyFlag = 16

func (b *Backend) ImportKey(data []byte) (fingerprint.Fingerprint, error) {
	fp, _, err := b.importKeys(data)
	return fp, err
}

func (b *Backend) ImportPrivateKey(data []byte) (fingerprint.Fingerprint, error) {
	fp, flags, err := b.importKeys(data)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	if flags&secretKeyFlag == 0 {
		return fingerprint.Fingerprint{}, errors.New("gpgmime: key has no private part")
	}
	return fp, nil
}

// importKeys runs gpg --import and returns the fingerprint and status
// flags of the first imported key.
func (b *Backend) importKeys(data []byte) (fingerprint.Fingerprint, int, error) {
	_, stderr, err := b.run(data, "--import")

	fp, flags, ok := importedKey(parseStatus(stderr))
	if !ok {
		if err != nil {
			return fingerprint.Fingerprint{}, 0, err
		}
		return fingerprint.Fingerprint{}, 0, errors.New("gpgmime: gpg imported no keys")
	}
	return fp, flags, nil
}

// importedKey extracts the first imported fingerprint from IMPORT_OK
// status lines. gpg emits a separate line for the public and the secret
// part of one key, so the flags of all lines for that fingerprint are
// combined.
func importedKey(status []statusLine) (fingerprint.Fingerprint, int, bool) {
	var fp fingerprint.Fingerprint
	flags := 0

	for _, line := range status {
		if line.keyword != "IMPORT_OK" || len(line.args) < 2 {
			continue
		}
		lineFp, err := fingerprint.Parse(line.args[1])
		if err != nil {
			continue
		}
		if !fp.IsSet() {
			fp = lineFp
		}
		if lineFp != fp {
			continue
		}
		if lineFlags, err := strconv.Atoi(line.args[0]); err == nil {
			flags |= lineFlags
		}
	}
	return fp, flags, fp.IsSet()
}

func (b *Backend) ExportKey(fp fingerprint.Fingerprint) ([]byte, error) {
	stdout, _, err := b.run(nil, "--export", "--armor", "0x"+fp.Hex())
	if err != nil {
		return nil, err
	}
	if len(stdout) == 0 {
		return nil, errors.WithMessage(backend.ErrKeyNotFound, fp.Hex())
	}
	return stdout, nil
}

func (b *Backend) ExportPrivateKey(fp fingerprint.Fingerprint) ([]byte, error) {
	args := []string{
		"--pinentry-mode", "loopback",
		"--passphrase", "",
		"--export-secret-keys", "--armor", "0x" + fp.Hex(),
	}
	stdout, _, err := b.run(nil, args...)
	if err != nil {
		return nil, err
	}
	if len(stdout) == 0 {
		return nil, errors.WithMessage(backend.ErrKeyNotFound, fp.Hex())
	}
	return stdout, nil
}

// CreateKey generates a new key pair with default algorithm parameters.
// lifetimeSecs of zero creates a key that does not expire. GnuPG marks
// keys it generated as ultimately trusted.
func (b *Backend) CreateKey(name, email string, lifetimeSecs uint32) (fingerprint.Fingerprint, error) {
	expire := "none"
	if lifetimeSecs > 0 {
		expire = fmt.Sprintf("seconds=%d", lifetimeSecs)
	}
	uid := fmt.Sprintf("%s <%s>", name, email)

	args := []string{
		"--pinentry-mode", "loopback",
		"--passphrase", "",
		"--quick-generate-key", uid, "default", "default", expire,
	}
	_, stderr, err := b.run(nil, args...)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}

	line, ok := findStatus(parseStatus(stderr), "KEY_CREATED")
	if !ok || len(line.args) < 2 {
		return fingerprint.Fingerprint{}, errors.New("gpgmime: gpg reported no created key")
	}
	return fingerprint.Parse(line.args[1])
}

// listKey returns the colon-format listing for one key. A subkey
// fingerprint resolves to the listing of its primary key.
func (b *Backend) listKey(fp fingerprint.Fingerprint) (keyListing, error) {
	args := []string{"--with-colons", "--with-fingerprint", "--list-keys", "0x" + fp.Hex()}
	stdout, _, err := b.run(nil, args...)
	if err != nil {
		// gpg exits non-zero when the key is not in the keyring
		return keyListing{}, errors.WithMessage(backend.ErrKeyNotFound, fp.Hex())
	}

	for _, listing := range parseListKeys(string(stdout)) {
		if listing.matches(fp) {
			return listing, nil
		}
	}
	return keyListing{}, errors.WithMessage(backend.ErrKeyNotFound, fp.Hex())
}

func (b *Backend) GetTrust(fp fingerprint.Fingerprint) (backend.Validity, error) {
	listing, err := b.listKey(fp)
	if err != nil {
		return backend.ValidityUnknown, err
	}

	stdout, _, err := b.run(nil, "--export-ownertrust")
	if err != nil {
		return backend.ValidityUnknown, err
	}
	// the ownertrust db is keyed by the primary fingerprint
	return parseOwnertrust(string(stdout), listing.Fingerprint), nil
}

func (b *Backend) SetTrust(fp fingerprint.Fingerprint, trust backend.Validity) error {
	if !trust.Valid() || trust == backend.ValidityUnknown {
		return errors.Errorf("gpgmime: cannot set trust to %s", trust)
	}
	listing, err := b.listKey(fp)
	if err != nil {
		return err
	}

	// the ownertrust db stores validity levels offset by two
	line := fmt.Sprintf("%s:%d:\n", listing.Fingerprint.Hex(), int(trust)+2)
	_, _, err = b.run([]byte(line), "--import-ownertrust")
	return err
}

func (b *Backend) Expires(fp fingerprint.Fingerprint) (*time.Time, error) {
	listing, err := b.listKey(fp)
	if err != nil {
		return nil, err
	}
	return listing.Expires, nil
}

// localUserArguments returns one --local-user argument pair per signer.
func localUserArguments(signers []fingerprint.Fingerprint) []string {
	args := make([]string, 0, 2*len(signers))
	for _, fp := range signers {
		args = append(args, "--local-user", "0x"+fp.Hex())
	}
	return args
}

// recipientArguments returns one --recipient argument pair per recipient.
func recipientArguments(recipients []fingerprint.Fingerprint) []string {
	args := make([]string, 0, 2*len(recipients))
	for _, fp := range recipients {
		args = append(args, "--recipient", "0x"+fp.Hex())
	}
	return args
}

// classifyRunError prefers the status-line classification over the raw
// exec error, falling back to stderr heuristics for versions of gpg that
// report missing secret keys without a status line.
func classifyRunError(err error, stderr []byte, status []statusLine) error {
	if invErr := invalidKeyError(status); invErr != nil {
		return invErr
	}
	if strings.Contains(string(stderr), "No secret key") ||
		strings.Contains(string(stderr), "No public key") {
		return errors.WithMessage(backend.ErrKeyNotFound, "gpg")
	}
	return err
}
