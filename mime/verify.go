package mime

import (
	"bufio"
	"bytes"
	"io"
	"mime"
	"net/textproto"

	gomime "github.com/ProtonMail/go-mime"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/constants"
	"github.com/mathiasertl/gpg-mime/fingerprint"
	"github.com/mathiasertl/gpg-mime/internal"
)

// Verify checks a serialized multipart/signed message and returns the
// fingerprint of the signing key. The signed part is canonicalized the
// same way Sign canonicalizes it, so minor transport damage (line ending
// rewrites, stripped trailing whitespace) does not break verification.
func Verify(b backend.Backend, message []byte) (fingerprint.Fingerprint, error) {
	header, body, err := splitHeader(message)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}

	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		return fingerprint.Fingerprint{}, errors.Wrap(err, "gpgmime: message content type")
	}
	if mediaType != constants.MultipartSigned {
		return fingerprint.Fingerprint{}, errors.Errorf("gpgmime: message is %s, not %s", mediaType, constants.MultipartSigned)
	}

	parts, err := splitMultipart(body, params["boundary"])
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	if len(parts) != 2 {
		return fingerprint.Fingerprint{}, errors.Errorf("gpgmime: multipart/signed with %d parts", len(parts))
	}

	signature, err := partBody(parts[1])
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}

	signed := internal.Canonicalize(internal.TrimEachLine(parts[0]))
	return b.Verify(signed, signature)
}

// DecryptPayload decrypts a serialized multipart/encrypted message and
// returns the serialized entity it carried.
func DecryptPayload(b backend.Backend, message []byte) ([]byte, error) {
	ciphertext, err := encryptedData(message)
	if err != nil {
		return nil, err
	}
	return b.Decrypt(ciphertext)
}

// DecryptVerifyPayload decrypts a serialized multipart/encrypted message
// and verifies the signature embedded in the ciphertext, returning the
// carried entity and the signer.
func DecryptVerifyPayload(b backend.Backend, message []byte) ([]byte, fingerprint.Fingerprint, error) {
	ciphertext, err := encryptedData(message)
	if err != nil {
		return nil, fingerprint.Fingerprint{}, err
	}
	return b.DecryptVerify(ciphertext)
}

// encryptedData extracts the ciphertext from a multipart/encrypted
// message, checking the RFC 3156 control part.
func encryptedData(message []byte) ([]byte, error) {
	header, body, err := splitHeader(message)
	if err != nil {
		return nil, err
	}

	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: message content type")
	}
	if mediaType != constants.MultipartEncrypted {
		return nil, errors.Errorf("gpgmime: message is %s, not %s", mediaType, constants.MultipartEncrypted)
	}

	parts, err := splitMultipart(body, params["boundary"])
	if err != nil {
		return nil, err
	}
	if len(parts) != 2 {
		return nil, errors.Errorf("gpgmime: multipart/encrypted with %d parts", len(parts))
	}

	controlHeader, _, err := splitHeader(parts[0])
	if err != nil {
		return nil, err
	}
	controlType, _, _ := mime.ParseMediaType(controlHeader.Get("Content-Type"))
	if controlType != constants.ProtocolEncrypted {
		return nil, errors.Errorf("gpgmime: control part is %s, not %s", controlType, constants.ProtocolEncrypted)
	}

	return partBody(parts[1])
}

// splitHeader parses the header block of a serialized entity and returns
// it together with the remaining body bytes.
func splitHeader(data []byte) (textproto.MIMEHeader, []byte, error) {
	reader := bufio.NewReader(bytes.NewReader(data))
	header, err := textproto.NewReader(reader).ReadMIMEHeader()
	if err != nil {
		return nil, nil, errors.Wrap(err, "gpgmime: parsing entity header")
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "gpgmime: reading entity body")
	}
	return header, body, nil
}

// partBody returns the decoded body of a serialized part, honoring its
// Content-Transfer-Encoding.
func partBody(part []byte) ([]byte, error) {
	header, body, err := splitHeader(part)
	if err != nil {
		return nil, err
	}

	decoded := gomime.DecodeContentEncoding(
		bytes.NewReader(body), header.Get("Content-Transfer-Encoding"))
	if decoded == nil {
		return nil, errors.Errorf("gpgmime: unsupported transfer encoding %q",
			header.Get("Content-Transfer-Encoding"))
	}
	return io.ReadAll(decoded)
}

// splitMultipart splits the body of a multipart entity on its boundary,
// returning the raw bytes of each part. Raw bytes are preserved because
// the first part of a multipart/signed message must be verified exactly
// as it appears on the wire.
func splitMultipart(body []byte, boundary string) ([][]byte, error) {
	if boundary == "" {
		return nil, errors.New("gpgmime: multipart entity without boundary")
	}

	// a leading newline lets the scan below treat a boundary at the very
	// start of the body like any other
	marker := []byte("\n--" + boundary)
	data := append([]byte("\n"), body...)

	var offsets []int
	for i := 0; ; {
		idx := bytes.Index(data[i:], marker)
		if idx < 0 {
			break
		}
		offsets = append(offsets, i+idx)
		i += idx + len(marker)
	}
	if len(offsets) < 2 {
		return nil, errors.New("gpgmime: multipart boundary not found")
	}

	var parts [][]byte
	for n := 0; n < len(offsets)-1; n++ {
		after := data[offsets[n]+len(marker):]
		// two trailing dashes mark the closing boundary
		if bytes.HasPrefix(after, []byte("--")) {
			break
		}

		start := offsets[n] + len(marker)
		if nl := bytes.IndexByte(data[start:], '\n'); nl >= 0 {
			start += nl + 1
		}
		part := bytes.TrimSuffix(data[start:offsets[n+1]], []byte("\r"))
		parts = append(parts, part)
	}
	return parts, nil
}
