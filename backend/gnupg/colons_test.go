package gnupg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

const exampleListKeys = `tru::1:1550861416:1640882817:3:1:5
pub:u:4096:1:309F635DAD1B5517:1536081182:1646224110::-:::scESC::::::23::0:
fpr:::::::::A999B7498D1A8DC473E53C92309F635DAD1B5517:
uid:u::::1536081182::F4A1AF61BA52BA8363D9D7CC25D2D9BF6E1D8F6C::user one <user1@example.com>::::::::::0:
sub:u:4096:1:627B1B4E8E532C34:1536081182::::::e::::::23:
fpr:::::::::58B67D78347A57F95287B2B98FF9CDCC2B36AC53:
pub:f:4096:1:0AC203C5F8B849AE:1536081199:::-:::scESC::::::23::0:
fpr:::::::::B8390AC24B2872C16AC0A95A0AC203C5F8B849AE:
uid:f::::1536081199::C0A64E28D1F9F6F185E5ED2A85E0B67D4F9C6E27::user two <user2@example.com>::::::::::0:
pub:-:2048:1:9F635DAD1B55170A:1536081200:::-:::scESC::::::23::0:
fpr:::::::::1A8DC473E53C92309F635DAD1B55170AA999B749:
uid:-::::1536081200::D0A64E28D1F9F6F185E5ED2A85E0B67D4F9C6E28::user three <user3@example.com>::::::::::0:
`

func TestParseListKeys(t *testing.T) {
	keys := parseListKeys(exampleListKeys)
	require.Len(t, keys, 3)

	assert.Equal(t, fingerprint.MustParse("A999B7498D1A8DC473E53C92309F635DAD1B5517"), keys[0].Fingerprint)
	assert.Equal(t, backend.ValidityUltimate, keys[0].Validity)
	require.NotNil(t, keys[0].Expires)
	assert.Equal(t, time.Unix(1646224110, 0).UTC(), *keys[0].Expires)

	assert.Equal(t, fingerprint.MustParse("B8390AC24B2872C16AC0A95A0AC203C5F8B849AE"), keys[1].Fingerprint)
	assert.Equal(t, backend.ValidityFull, keys[1].Validity)
	assert.Nil(t, keys[1].Expires)

	assert.Equal(t, backend.ValidityUnknown, keys[2].Validity)
	assert.Nil(t, keys[2].Expires)
}

func TestParseListKeysSubkeyFingerprints(t *testing.T) {
	keys := parseListKeys(exampleListKeys)
	require.Len(t, keys, 3)

	subFp := fingerprint.MustParse("58B67D78347A57F95287B2B98FF9CDCC2B36AC53")
	for _, key := range keys {
		assert.NotEqual(t, subFp, key.Fingerprint)
	}

	require.Len(t, keys[0].Subkeys, 1)
	assert.Equal(t, subFp, keys[0].Subkeys[0])
	assert.Empty(t, keys[1].Subkeys)

	assert.True(t, keys[0].matches(subFp))
	assert.True(t, keys[0].matches(keys[0].Fingerprint))
	assert.False(t, keys[1].matches(subFp))
}

func TestParseListKeysEmpty(t *testing.T) {
	assert.Empty(t, parseListKeys(""))
	assert.Empty(t, parseListKeys("tru::1:1550861416:0:3:1:5\n"))
}

func TestParseOwnertrust(t *testing.T) {
	fp := fingerprint.MustParse("A999B7498D1A8DC473E53C92309F635DAD1B5517")
	output := `# List of assigned trustvalues, created Tue 04 Sep 2018
# (Use "gpg --import-ownertrust" to restore them)
A999B7498D1A8DC473E53C92309F635DAD1B5517:6:
B8390AC24B2872C16AC0A95A0AC203C5F8B849AE:3:
`

	assert.Equal(t, backend.ValidityUltimate, parseOwnertrust(output, fp))
	assert.Equal(t, backend.ValidityNever,
		parseOwnertrust(output, fingerprint.MustParse("B8390AC24B2872C16AC0A95A0AC203C5F8B849AE")))
	assert.Equal(t, backend.ValidityUnknown,
		parseOwnertrust(output, fingerprint.MustParse("1A8DC473E53C92309F635DAD1B55170AA999B749")))
	assert.Equal(t, backend.ValidityUnknown, parseOwnertrust("", fp))
}

func TestParseValidityField(t *testing.T) {
	assert.Equal(t, backend.ValidityUnknown, parseValidityField("-"))
	assert.Equal(t, backend.ValidityUnknown, parseValidityField("q"))
	assert.Equal(t, backend.ValidityNever, parseValidityField("n"))
	assert.Equal(t, backend.ValidityMarginal, parseValidityField("m"))
	assert.Equal(t, backend.ValidityFull, parseValidityField("f"))
	assert.Equal(t, backend.ValidityUltimate, parseValidityField("u"))
}
