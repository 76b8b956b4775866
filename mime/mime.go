// Package mime builds and consumes RFC 3156 PGP/MIME messages on top of a
// GPG backend. Signing wraps an entity in multipart/signed, encryption
// wraps it in multipart/encrypted.
package mime

import (
	"mime"
	"net/textproto"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/constants"
	"github.com/mathiasertl/gpg-mime/fingerprint"
	"github.com/mathiasertl/gpg-mime/internal"
)

// Sign wraps entity in a multipart/signed container carrying a detached
// signature by the given signers.
//
// The entity is serialized with CRLF line endings and trailing whitespace
// stripped before signing, and the signed bytes are embedded unchanged.
func Sign(b backend.Backend, entity *Entity, signers []fingerprint.Fingerprint) (*Entity, error) {
	payload, err := signPayload(entity)
	if err != nil {
		return nil, err
	}

	signature, err := b.Sign(payload, signers)
	if err != nil {
		return nil, err
	}

	container := NewMultipart("signed", &Entity{Raw: payload}, signaturePart(signature))
	setContainerParams(container, map[string]string{
		"protocol": constants.ProtocolSignature,
		"micalg":   constants.MicAlgSHA256,
	})
	return container, nil
}

// Encrypt wraps entity in a multipart/encrypted container readable only by
// the given recipients.
func Encrypt(b backend.Backend, entity *Entity, recipients []fingerprint.Fingerprint) (*Entity, error) {
	payload, err := signPayload(entity)
	if err != nil {
		return nil, err
	}

	ciphertext, err := b.Encrypt(payload, recipients)
	if err != nil {
		return nil, err
	}
	return encryptedContainer(ciphertext), nil
}

// SignEncrypt signs entity with the given signers and wraps it in a
// multipart/encrypted container readable only by the given recipients. The
// signature travels inside the encrypted payload.
func SignEncrypt(
	b backend.Backend, entity *Entity, recipients, signers []fingerprint.Fingerprint,
) (*Entity, error) {
	payload, err := signPayload(entity)
	if err != nil {
		return nil, err
	}

	ciphertext, err := b.SignEncrypt(payload, recipients, signers)
	if err != nil {
		return nil, err
	}
	return encryptedContainer(ciphertext), nil
}

// signPayload serializes an entity into the canonical form that is signed
// or encrypted.
func signPayload(entity *Entity) ([]byte, error) {
	serialized, err := entity.Bytes()
	if err != nil {
		return nil, err
	}
	return internal.Canonicalize(internal.TrimEachLine(serialized)), nil
}

func signaturePart(signature []byte) *Entity {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", mime.FormatMediaType(
		constants.ProtocolSignature, map[string]string{"name": constants.SignatureFilename}))
	header.Set("Content-Description", "OpenPGP digital signature")
	header.Set("Content-Disposition", mime.FormatMediaType(
		"attachment", map[string]string{"filename": constants.SignatureFilename}))

	return &Entity{Header: header, Body: internal.Canonicalize(signature)}
}

func encryptedContainer(ciphertext []byte) *Entity {
	controlHeader := textproto.MIMEHeader{}
	controlHeader.Set("Content-Type", constants.ProtocolEncrypted)
	controlHeader.Set("Content-Description", "PGP/MIME version identification")
	control := &Entity{
		Header: controlHeader,
		Body:   internal.Canonicalize([]byte(constants.ControlVersion)),
	}

	dataHeader := textproto.MIMEHeader{}
	dataHeader.Set("Content-Type", mime.FormatMediaType(
		constants.OctetStream, map[string]string{"name": constants.EncryptedFilename}))
	dataHeader.Set("Content-Description", "OpenPGP encrypted message")
	dataHeader.Set("Content-Disposition", mime.FormatMediaType(
		"inline", map[string]string{"filename": constants.EncryptedFilename}))
	data := &Entity{Header: dataHeader, Body: internal.Canonicalize(ciphertext)}

	container := NewMultipart("encrypted", control, data)
	setContainerParams(container, map[string]string{"protocol": constants.ProtocolEncrypted})
	return container
}

// setContainerParams adds parameters to the Content-Type of a multipart
// container built by NewMultipart.
func setContainerParams(container *Entity, params map[string]string) {
	mediaType, existing, err := mime.ParseMediaType(container.Header.Get("Content-Type"))
	if err != nil {
		return
	}
	for key, value := range params {
		existing[key] = value
	}
	container.Header.Set("Content-Type", mime.FormatMediaType(mediaType, existing))
}
