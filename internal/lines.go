// Package internal contains internal methods and constants.
package internal

import (
	"bytes"

	"github.com/mathiasertl/gpg-mime/constants"
)

var nl = []byte("\n")
var rnl = []byte("\r\n")

// Canonicalize converts all line endings to CRLF, as required for the
// signed part of a PGP/MIME message (RFC 3156, section 5).
func Canonicalize(text []byte) []byte {
	return bytes.ReplaceAll(bytes.ReplaceAll(text, rnl, nl), nl, rnl)
}

// TrimEachLine removes trailing whitespace from every line.
func TrimEachLine(text []byte) []byte {
	lines := bytes.Split(text, nl)

	for i := range lines {
		lines[i] = bytes.TrimRight(lines[i], " \t\r")
	}

	return bytes.Join(lines, nl)
}

// ArmorHeaders is the set of armor headers added to armored output.
var ArmorHeaders = map[string]string{
	"Version": constants.ArmorHeaderVersion,
	"Comment": constants.ArmorHeaderComment,
}
