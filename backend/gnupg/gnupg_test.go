package gnupg

import (
	"os/exec"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

// newTestBackend returns a backend with an isolated home directory,
// skipping the test when no gpg binary is installed.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	if _, err := exec.LookPath(DefaultPath); err != nil {
		t.Skipf("%s not installed", DefaultPath)
	}

	b, err := New(backend.Options{Home: t.TempDir()})
	require.NoError(t, err)
	return b
}

func TestNewMissingBinary(t *testing.T) {
	_, err := New(backend.Options{Path: "gpg-binary-that-does-not-exist"})
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	b := newTestBackend(t)

	version, err := b.Version()
	require.NoError(t, err)
	assert.Regexp(t, `^\d+\.\d+\.\d+$`, version)
}

func TestSignVerify(t *testing.T) {
	b := newTestBackend(t)
	fp, err := b.CreateKey("user one", "user1@example.com", 0)
	require.NoError(t, err)

	data := []byte("testdata")
	signature, err := b.Sign(data, []fingerprint.Fingerprint{fp})
	require.NoError(t, err)
	assert.Contains(t, string(signature), "-----BEGIN PGP SIGNATURE-----")

	signedBy, err := b.Verify(data, signature)
	require.NoError(t, err)
	assert.Equal(t, fp, signedBy)
}

func TestEncryptDecrypt(t *testing.T) {
	b := newTestBackend(t)
	fp, err := b.CreateKey("user one", "user1@example.com", 0)
	require.NoError(t, err)

	data := []byte("testdata")
	encrypted, err := b.Encrypt(data, []fingerprint.Fingerprint{fp})
	require.NoError(t, err)
	assert.Contains(t, string(encrypted), "-----BEGIN PGP MESSAGE-----")

	decrypted, err := b.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, data, decrypted)
}

func TestSignEncryptDecryptVerify(t *testing.T) {
	b := newTestBackend(t)
	fp, err := b.CreateKey("user one", "user1@example.com", 0)
	require.NoError(t, err)

	data := []byte("testdata")
	encrypted, err := b.SignEncrypt(data, []fingerprint.Fingerprint{fp}, []fingerprint.Fingerprint{fp})
	require.NoError(t, err)

	decrypted, signedBy, err := b.DecryptVerify(encrypted)
	require.NoError(t, err)
	assert.Equal(t, data, decrypted)
	assert.Equal(t, fp, signedBy)
}

func TestTrust(t *testing.T) {
	b := newTestBackend(t)
	fp, err := b.CreateKey("user one", "user1@example.com", 0)
	require.NoError(t, err)

	// generated keys are ultimately trusted
	trust, err := b.GetTrust(fp)
	require.NoError(t, err)
	assert.Equal(t, backend.ValidityUltimate, trust)

	require.NoError(t, b.SetTrust(fp, backend.ValidityNever))
	trust, err = b.GetTrust(fp)
	require.NoError(t, err)
	assert.Equal(t, backend.ValidityNever, trust)

	assert.Error(t, b.SetTrust(fp, backend.ValidityUnknown))
}

func TestExpires(t *testing.T) {
	b := newTestBackend(t)

	noExpiry, err := b.CreateKey("user one", "user1@example.com", 0)
	require.NoError(t, err)
	expires, err := b.Expires(noExpiry)
	require.NoError(t, err)
	assert.Nil(t, expires)

	withExpiry, err := b.CreateKey("user two", "user2@example.com", 86400)
	require.NoError(t, err)
	expires, err = b.Expires(withExpiry)
	require.NoError(t, err)
	assert.NotNil(t, expires)
}

func TestUnknownKey(t *testing.T) {
	b := newTestBackend(t)
	unknown := fingerprint.MustParse("A999B7498D1A8DC473E53C92309F635DAD1B5517")

	_, err := b.GetTrust(unknown)
	assert.True(t, errors.Is(err, backend.ErrKeyNotFound))

	_, err = b.ExportKey(unknown)
	assert.True(t, errors.Is(err, backend.ErrKeyNotFound))

	_, err = b.Sign([]byte("testdata"), []fingerprint.Fingerprint{unknown})
	assert.True(t, errors.Is(err, backend.ErrKeyNotFound))

	_, err = b.Encrypt([]byte("testdata"), []fingerprint.Fingerprint{unknown})
	assert.True(t, errors.Is(err, backend.ErrKeyNotFound))
}

func TestExportImport(t *testing.T) {
	b := newTestBackend(t)
	fp, err := b.CreateKey("user one", "user1@example.com", 0)
	require.NoError(t, err)

	pub, err := b.ExportKey(fp)
	require.NoError(t, err)
	assert.Contains(t, string(pub), "-----BEGIN PGP PUBLIC KEY BLOCK-----")

	other := newTestBackend(t)
	imported, err := other.ImportKey(pub)
	require.NoError(t, err)
	assert.Equal(t, fp, imported)

	priv, err := b.ExportPrivateKey(fp)
	require.NoError(t, err)
	imported, err = other.ImportPrivateKey(priv)
	require.NoError(t, err)
	assert.Equal(t, fp, imported)

	// a public key has no private part to import
	_, err = other.ImportPrivateKey(pub)
	assert.Error(t, err)
}

func TestSubkeyFingerprint(t *testing.T) {
	b := newTestBackend(t)
	fp, err := b.CreateKey("user one", "user1@example.com", 0)
	require.NoError(t, err)

	listing, err := b.listKey(fp)
	require.NoError(t, err)
	require.NotEmpty(t, listing.Subkeys)
	subFp := listing.Subkeys[0]
	require.NotEqual(t, fp, subFp)

	// trust and expiry resolve a subkey fingerprint to its primary key
	expires, err := b.Expires(subFp)
	require.NoError(t, err)
	assert.Nil(t, expires)

	trust, err := b.GetTrust(subFp)
	require.NoError(t, err)
	assert.Equal(t, backend.ValidityUltimate, trust)

	require.NoError(t, b.SetTrust(subFp, backend.ValidityFull))
	trust, err = b.GetTrust(fp)
	require.NoError(t, err)
	assert.Equal(t, backend.ValidityFull, trust)
}
