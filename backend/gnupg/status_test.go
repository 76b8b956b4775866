package gnupg

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

func TestParseStatus(t *testing.T) {
	stderr := []byte(`gpg: key 309F635DAD1B5517: public key imported
[GNUPG:] IMPORT_OK 1 A999B7498D1A8DC473E53C92309F635DAD1B5517
[GNUPG:] IMPORT_RES 1 0 1 0 0 0 0 0 0 0 0 0 0 0 0
`)
	lines := parseStatus(stderr)
	require.Len(t, lines, 2)
	assert.Equal(t, "IMPORT_OK", lines[0].keyword)
	assert.Equal(t, []string{"1", "A999B7498D1A8DC473E53C92309F635DAD1B5517"}, lines[0].args)

	line, ok := findStatus(lines, "IMPORT_RES")
	require.True(t, ok)
	assert.Equal(t, "IMPORT_RES", line.keyword)

	_, ok = findStatus(lines, "KEY_CREATED")
	assert.False(t, ok)
}

func TestInvalidKeyError(t *testing.T) {
	notFound := parseStatus([]byte("[GNUPG:] INV_RECP 1 user1@example.com\n"))
	assert.True(t, errors.Is(invalidKeyError(notFound), backend.ErrKeyNotFound))

	untrusted := parseStatus([]byte("[GNUPG:] INV_RECP 10 A999B7498D1A8DC473E53C92309F635DAD1B5517\n"))
	assert.True(t, errors.Is(invalidKeyError(untrusted), backend.ErrUntrustedKey))

	noSecret := parseStatus([]byte("[GNUPG:] INV_SGNR 9 user1@example.com\n"))
	assert.True(t, errors.Is(invalidKeyError(noSecret), backend.ErrKeyNotFound))

	assert.NoError(t, invalidKeyError(parseStatus([]byte("[GNUPG:] GOODSIG deadbeef user\n"))))
}

func TestValidSigFingerprint(t *testing.T) {
	good := parseStatus([]byte(`[GNUPG:] GOODSIG 309F635DAD1B5517 user one <user1@example.com>
[GNUPG:] VALIDSIG A999B7498D1A8DC473E53C92309F635DAD1B5517 2018-09-04 1536081182 0 4 0 1 8 00 A999B7498D1A8DC473E53C92309F635DAD1B5517
`))
	fp, err := validSigFingerprint(good)
	require.NoError(t, err)
	assert.Equal(t, fingerprint.MustParse("A999B7498D1A8DC473E53C92309F635DAD1B5517"), fp)

	missingKey := parseStatus([]byte("[GNUPG:] ERRSIG 309F635DAD1B5517 1 8 00 1536081182 9 A999B7498D1A8DC473E53C92309F635DAD1B5517\n"))
	_, err = validSigFingerprint(missingKey)
	assert.True(t, errors.Is(err, backend.ErrKeyNotFound))

	_, err = validSigFingerprint(nil)
	assert.Error(t, err)
}

func TestImportedKey(t *testing.T) {
	// a secret key import reports the public and the secret part on
	// separate IMPORT_OK lines
	secret := parseStatus([]byte(`[GNUPG:] IMPORT_OK 1 A999B7498D1A8DC473E53C92309F635DAD1B5517
[GNUPG:] IMPORT_OK 17 A999B7498D1A8DC473E53C92309F635DAD1B5517
[GNUPG:] IMPORT_RES 1 0 1 0 0 0 0 0 0 1 1 0 0 0 0
`))
	fp, flags, ok := importedKey(secret)
	require.True(t, ok)
	assert.Equal(t, fingerprint.MustParse("A999B7498D1A8DC473E53C92309F635DAD1B5517"), fp)
	assert.NotZero(t, flags&secretKeyFlag)

	public := parseStatus([]byte("[GNUPG:] IMPORT_OK 1 A999B7498D1A8DC473E53C92309F635DAD1B5517\n"))
	fp, flags, ok = importedKey(public)
	require.True(t, ok)
	assert.Equal(t, fingerprint.MustParse("A999B7498D1A8DC473E53C92309F635DAD1B5517"), fp)
	assert.Zero(t, flags&secretKeyFlag)

	// later keys in the same import do not contribute flags
	two := parseStatus([]byte(`[GNUPG:] IMPORT_OK 1 A999B7498D1A8DC473E53C92309F635DAD1B5517
[GNUPG:] IMPORT_OK 17 B8390AC24B2872C16AC0A95A0AC203C5F8B849AE
`))
	fp, flags, ok = importedKey(two)
	require.True(t, ok)
	assert.Equal(t, fingerprint.MustParse("A999B7498D1A8DC473E53C92309F635DAD1B5517"), fp)
	assert.Zero(t, flags&secretKeyFlag)

	_, _, ok = importedKey(nil)
	assert.False(t, ok)
}
