package mime

import (
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

// SignatureVerificationError reports the outcome of verifying the
// signature of a decrypted MIME message. Status is one of the SIGNATURE_*
// constants.
type SignatureVerificationError struct {
	Status  int
	Message string
	Cause   error
}

func (e SignatureVerificationError) Error() string {
	if e.Cause != nil {
		return "gpgmime: signature verification: " + e.Message + ": " + e.Cause.Error()
	}
	return "gpgmime: signature verification: " + e.Message
}

func (e SignatureVerificationError) Unwrap() error {
	return e.Cause
}

// signatureCollector walks a decrypted MIME tree looking for a
// multipart/signed layer and verifies its signature against the backend's
// keyring, passing all other parts through to the wrapped acceptor.
type signatureCollector struct {
	backend  backend.Backend
	target   gomime.VisitAcceptor
	signedBy fingerprint.Fingerprint
	verified error
}

func newSignatureCollector(target gomime.VisitAcceptor, b backend.Backend) *signatureCollector {
	return &signatureCollector{
		backend: b,
		target:  target,
	}
}

// Accept collects and verifies the signature.
func (sc *signatureCollector) Accept(
	part io.Reader, header textproto.MIMEHeader,
	hasPlainSibling, isFirst, isLast bool,
) (err error) {
	parentMediaType, params, _ := mime.ParseMediaType(header.Get("Content-Type"))

	if parentMediaType != constants.MultipartSigned {
		sc.verified = newSignatureNotSigned()
		return sc.target.Accept(part, header, hasPlainSibling, isFirst, isLast)
	}

	newPart, rawBody := gomime.GetRawMimePart(part, "--"+params["boundary"])
	multiparts, multipartHeaders, err := gomime.GetMultipartParts(newPart, params)
	if err != nil {
		return err
	}

	hasPlainChild := false
	for _, childHeader := range multipartHeaders {
		mediaType, _, _ := mime.ParseMediaType(childHeader.Get("Content-Type"))
		hasPlainChild = (mediaType == "text/plain")
	}
	if len(multiparts) != 2 {
		sc.verified = newSignatureNotSigned()
		// not a valid multipart/signed layout, pass the parts along
		if _, err = io.ReadAll(rawBody); err != nil {
			return errors.Wrap(err, "gpgmime: reading raw message body")
		}

		for i, p := range multiparts {
			if err = sc.target.Accept(p, multipartHeaders[i], hasPlainChild, true, true); err != nil {
				return err
			}
		}
		return nil
	}

	if err = sc.target.Accept(multiparts[0], multipartHeaders[0], hasPlainChild, true, true); err != nil {
		return errors.Wrap(err, "gpgmime: parsing signed part")
	}

	partData, err := io.ReadAll(multiparts[1])
	if err != nil {
		return errors.Wrap(err, "gpgmime: reading signature part")
	}
	signature, err := io.ReadAll(gomime.DecodeContentEncoding(
		bytes.NewReader(partData), multipartHeaders[1].Get("Content-Transfer-Encoding")))
	if err != nil {
		return errors.Wrap(err, "gpgmime: decoding signature part")
	}

	signed, _ := io.ReadAll(rawBody)
	canonical := internal.Canonicalize(internal.TrimEachLine(signed))

	signedBy, err := sc.backend.Verify(canonical, signature)
	switch {
	case errors.Is(err, backend.ErrKeyNotFound):
		sc.verified = newSignatureNoVerifier()
	case err != nil:
		sc.verified = newSignatureFailed(err)
	default:
		sc.signedBy = signedBy
		sc.verified = nil
	}
	return nil
}

func newSignatureNotSigned() SignatureVerificationError {
	return SignatureVerificationError{
		Status:  constants.SIGNATURE_NOT_SIGNED,
		Message: "missing signature",
	}
}

func newSignatureNoVerifier() SignatureVerificationError {
	return SignatureVerificationError{
		Status:  constants.SIGNATURE_NO_VERIFIER,
		Message: "no matching signature key",
	}
}

func newSignatureFailed(cause error) SignatureVerificationError {
	return SignatureVerificationError{
		Status:  constants.SIGNATURE_FAILED,
		Message: "invalid signature",
		Cause:   cause,
	}
}
