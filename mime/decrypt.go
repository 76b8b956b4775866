package mime

import (
	"bytes"
	"io"
	"net/mail"
	"net/textproto"

	gomime "github.com/ProtonMail/go-mime"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/constants"
)

// Callbacks receives the pieces of a decrypted MIME message.
type Callbacks interface {
	OnBody(body string, mimetype string)
	OnAttachment(headers string, data []byte)
	OnVerified(status int)
	OnError(err error)
}

// Decrypt decrypts a multipart/encrypted message and walks the decrypted
// MIME tree, reporting the body, attachments and signature status through
// the callbacks. Signatures embedded in the ciphertext and signatures in
// an inner multipart/signed layer are both honored; verification fails
// only if neither is valid.
func Decrypt(message []byte, b backend.Backend, callbacks Callbacks) {
	ciphertext, err := encryptedData(message)
	if err != nil {
		callbacks.OnError(err)
		return
	}

	plaintext, _, embeddedErr := b.DecryptVerify(ciphertext)
	if embeddedErr != nil {
		// fall back to plain decryption, the signature may live in an
		// inner multipart/signed layer instead
		plaintext, err = b.Decrypt(ciphertext)
		if err != nil {
			callbacks.OnError(err)
			return
		}
	}

	body, attachments, attachmentHeaders, err := parseDecrypted(plaintext, b)
	mimeSigErr, err := separateSigError(err)
	if err != nil {
		callbacks.OnError(err)
		return
	}

	if embeddedErr != nil && mimeSigErr != nil {
		callbacks.OnError(mimeSigErr)
		callbacks.OnVerified(mimeSigErr.Status)
	} else {
		callbacks.OnVerified(constants.SIGNATURE_OK)
	}

	bodyContent, bodyMimeType := body.GetBody()
	callbacks.OnBody(bodyContent, bodyMimeType)
	for i := 0; i < len(attachments); i++ {
		callbacks.OnAttachment(attachmentHeaders[i], []byte(attachments[i]))
	}
}

func separateSigError(err error) (*SignatureVerificationError, error) {
	sigErr := &SignatureVerificationError{}
	if errors.As(err, sigErr) {
		return sigErr, nil
	}
	return nil, err
}

// parseDecrypted walks a decrypted MIME message with the go-mime visitors,
// collecting the body and attachments and verifying any multipart/signed
// layer against the backend's keyring.
func parseDecrypted(
	plaintext []byte, b backend.Backend,
) (*gomime.BodyCollector, []string, []string, error) {
	parsed, err := mail.ReadMessage(bytes.NewReader(plaintext))
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "gpgmime: reading decrypted message")
	}

	header := textproto.MIMEHeader(parsed.Header)
	bodyData, err := io.ReadAll(parsed.Body)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "gpgmime: reading decrypted message body")
	}

	printAccepter := gomime.NewMIMEPrinter()
	bodyCollector := gomime.NewBodyCollector(printAccepter)
	attachmentsCollector := gomime.NewAttachmentsCollector(bodyCollector)
	mimeVisitor := gomime.NewMimeVisitor(attachmentsCollector)

	collector := newSignatureCollector(mimeVisitor, b)

	err = gomime.VisitAll(bytes.NewReader(bodyData), header, collector)
	if err == nil {
		err = collector.verified
	}

	return bodyCollector,
		attachmentsCollector.GetAttachments(),
		attachmentsCollector.GetAttHeaders(),
		err
}
