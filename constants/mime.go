package constants

// Content types and parameters mandated by RFC 3156 for PGP/MIME messages.
const (
	MultipartSigned    = "multipart/signed"
	MultipartEncrypted = "multipart/encrypted"

	ProtocolSignature = "application/pgp-signature"
	ProtocolEncrypted = "application/pgp-encrypted"

	OctetStream = "application/octet-stream"

	// MicAlgSHA256 is the micalg parameter of multipart/signed messages.
	// All backends currently produce SHA-256 signatures.
	MicAlgSHA256 = "pgp-sha256"

	// ControlVersion is the body of the RFC 3156 chapter 4 control message.
	ControlVersion = "Version: 1\n"

	SignatureFilename = "signature.asc"
	EncryptedFilename = "encrypted.asc"
)

// Signature verification statuses reported by the mime package.
const (
	SIGNATURE_OK          int = 0
	SIGNATURE_NOT_SIGNED  int = 1
	SIGNATURE_NO_VERIFIER int = 2
	SIGNATURE_FAILED      int = 3
)
