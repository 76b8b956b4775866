// Package armor contains a set of helper methods for armoring and
// unarmoring data.
package armor

import (
	"bufio"
	"bytes"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/internal"
)

const armorPrefix = "-----BEGIN PGP"

// ArmorWithType armors input with the given armorType.
func ArmorWithType(input []byte, armorType string) (string, error) {
	var b bytes.Buffer

	w, err := armor.Encode(&b, armorType, internal.ArmorHeaders)
	if err != nil {
		return "", errors.Wrap(err, "gpgmime: unable to encode armoring")
	}
	if _, err = w.Write(input); err != nil {
		return "", errors.Wrap(err, "gpgmime: unable to write armored data")
	}
	if err = w.Close(); err != nil {
		return "", errors.Wrap(err, "gpgmime: unable to close armor writer")
	}
	return b.String(), nil
}

// ArmorWriterWithType returns a io.WriteCloser which, when written to,
// writes armored data to w with the given armorType.
func ArmorWriterWithType(w io.Writer, armorType string) (io.WriteCloser, error) {
	return armor.Encode(w, armorType, internal.ArmorHeaders)
}

// Unarmor unarmors an armored input into a byte array.
func Unarmor(input []byte) ([]byte, error) {
	block, err := armor.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: unable to unarmor")
	}
	return io.ReadAll(block.Body)
}

// IsPGPArmored reads a prefix from the reader and checks if it is armored.
// Returns an equivalent reader that starts from the beginning of the input.
func IsPGPArmored(in io.Reader) (io.Reader, bool) {
	buffered := bufio.NewReader(in)
	prefix, _ := buffered.Peek(len(armorPrefix))
	return buffered, bytes.HasPrefix(prefix, []byte(armorPrefix))
}
