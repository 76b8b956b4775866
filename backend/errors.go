package backend

import "github.com/pkg/errors"

// ErrKeyNotFound is returned when a fingerprint does not resolve to a
// usable key in the keyring.
var ErrKeyNotFound = errors.New("gpgmime: key not found")

// ErrUntrustedKey is returned when encryption is refused because a
// recipient key's validity is insufficient.
var ErrUntrustedKey = errors.New("gpgmime: key not trusted")
