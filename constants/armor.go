// Package constants provides the protocol constants used for PGP/MIME mail.
package constants

// Constants for armored data.
const (
	ArmorHeaderVersion = "gpg-mime " + Version
	ArmorHeaderComment = "https://github.com/mathiasertl/gpg-mime"
	PGPMessageHeader   = "PGP MESSAGE"
	PGPSignatureHeader = "PGP SIGNATURE"
	PublicKeyHeader    = "PGP PUBLIC KEY BLOCK"
	PrivateKeyHeader   = "PGP PRIVATE KEY BLOCK"
)
