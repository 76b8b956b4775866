package mime

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"net/textproto"
	"sort"

	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/internal"
)

// An Entity is one MIME entity: a header and either a body, child parts or
// pre-serialized raw bytes. Entities built through the constructors
// serialize with CRLF line endings as required for PGP/MIME payloads.
type Entity struct {
	Header textproto.MIMEHeader

	// Body is the transfer-encoded content of a leaf entity.
	Body []byte

	// Parts holds the children of a multipart entity. The boundary is
	// taken from the Content-Type header.
	Parts []*Entity

	// Raw, if set, is emitted verbatim instead of Header, Body and Parts.
	// Signed payloads are stored this way so the embedded bytes stay
	// identical to the signed bytes.
	Raw []byte
}

// NewText returns a text/plain entity with the given content, encoded as
// quoted-printable UTF-8.
func NewText(text string) *Entity {
	return newTextEntity("text/plain", text)
}

// NewHTML returns a text/html entity with the given content, encoded as
// quoted-printable UTF-8.
func NewHTML(html string) *Entity {
	return newTextEntity("text/html", html)
}

func newTextEntity(mediaType, content string) *Entity {
	var buf bytes.Buffer
	qp := quotedprintable.NewWriter(&buf)
	qp.Write(internal.Canonicalize([]byte(content))) //nolint:errcheck
	qp.Close()                                       //nolint:errcheck

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", mediaType+`; charset="utf-8"`)
	header.Set("Content-Transfer-Encoding", "quoted-printable")

	return &Entity{Header: header, Body: buf.Bytes()}
}

// NewAttachment returns a base64 encoded attachment entity. An empty
// contentType selects application/octet-stream.
func NewAttachment(filename, contentType string, data []byte) *Entity {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", mime.FormatMediaType(contentType, map[string]string{"name": filename}))
	header.Set("Content-Transfer-Encoding", "base64")
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))

	return &Entity{Header: header, Body: wrapBase64(data)}
}

// NewMultipart returns a multipart entity of the given subtype, e.g.
// "mixed" or "alternative", with a random boundary.
func NewMultipart(subtype string, parts ...*Entity) *Entity {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", mime.FormatMediaType(
		"multipart/"+subtype, map[string]string{"boundary": randomBoundary()}))

	return &Entity{Header: header, Parts: parts}
}

// Bytes serializes the entity with CRLF line endings.
func (e *Entity) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Entity) write(w io.Writer) error {
	if e.Raw != nil {
		_, err := w.Write(e.Raw)
		return err
	}

	if err := writeHeader(w, e.Header); err != nil {
		return err
	}

	if len(e.Parts) == 0 {
		_, err := w.Write(e.Body)
		return err
	}

	_, params, err := mime.ParseMediaType(e.Header.Get("Content-Type"))
	if err != nil {
		return errors.Wrap(err, "gpgmime: multipart entity")
	}
	boundary, ok := params["boundary"]
	if !ok {
		return errors.New("gpgmime: multipart entity without boundary")
	}

	for _, part := range e.Parts {
		if _, err := fmt.Fprintf(w, "--%s\r\n", boundary); err != nil {
			return err
		}
		if err := part.write(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "--%s--\r\n", boundary)
	return err
}

// writeHeader writes the header block and the empty separator line.
// Content-Type leads, the remaining fields follow in sorted order so
// serialization is deterministic.
func writeHeader(w io.Writer, header textproto.MIMEHeader) error {
	keys := make([]string, 0, len(header))
	for key := range header {
		if key != "Content-Type" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if header.Get("Content-Type") != "" {
		keys = append([]string{"Content-Type"}, keys...)
	}

	for _, key := range keys {
		for _, value := range header.Values(key) {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", key, value); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// wrapBase64 encodes data and folds the output at 76 characters per
// RFC 2045.
func wrapBase64(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)

	var buf bytes.Buffer
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	return buf.Bytes()
}

func randomBoundary() string {
	var raw [16]byte
	if _, err := io.ReadFull(rand.Reader, raw[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", raw)
}
