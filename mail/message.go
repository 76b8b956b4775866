// Package mail integrates PGP/MIME with outgoing email. A Message that
// names GPG recipients or signers is transparently encrypted or signed
// when it is serialized or sent.
package mail

import (
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
	"github.com/mathiasertl/gpg-mime/mime"
)

// An Attachment is a file attached to a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// A Message is an outgoing email. GPGRecipients and GPGSigners control the
// PGP/MIME transformation: naming recipients encrypts the message (signing
// it first if signers are also named), naming only signers produces a
// signed message. A message with neither is sent unchanged.
type Message struct {
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string

	// Body is the text/plain content. HTML, if set, is offered as a
	// multipart/alternative sibling.
	Body string
	HTML string

	Attachments []Attachment

	GPGRecipients []fingerprint.Fingerprint
	GPGSigners    []fingerprint.Fingerprint

	// GPGAlwaysTrust skips the trust check on recipient keys for this
	// message even if the backend performs it otherwise.
	GPGAlwaysTrust bool
}

// Signed reports whether the message will carry a signature.
func (m *Message) Signed() bool {
	return len(m.GPGSigners) > 0
}

// Encrypted reports whether the message will be encrypted.
func (m *Message) Encrypted() bool {
	return len(m.GPGRecipients) > 0
}

// Entity builds the MIME entity for the message, applying the PGP/MIME
// transformation if GPG recipients or signers are set. Failures leave
// nothing to send: a message that cannot be protected is never returned in
// the clear.
func (m *Message) Entity(b backend.Backend) (*mime.Entity, error) {
	entity := m.payload()

	if m.GPGAlwaysTrust && m.Encrypted() {
		if truster, ok := b.(backend.AlwaysTruster); ok {
			b = truster.AlwaysTrust()
		}
	}

	switch {
	case m.Encrypted() && m.Signed():
		return mime.SignEncrypt(b, entity, m.GPGRecipients, m.GPGSigners)
	case m.Encrypted():
		return mime.Encrypt(b, entity, m.GPGRecipients)
	case m.Signed():
		return mime.Sign(b, entity, m.GPGSigners)
	default:
		return entity, nil
	}
}

// payload builds the unprotected MIME entity from body, HTML alternative
// and attachments.
func (m *Message) payload() *mime.Entity {
	entity := mime.NewText(m.Body)
	if m.HTML != "" {
		entity = mime.NewMultipart("alternative", entity, mime.NewHTML(m.HTML))
	}

	if len(m.Attachments) > 0 {
		parts := []*mime.Entity{entity}
		for _, attachment := range m.Attachments {
			parts = append(parts, mime.NewAttachment(
				attachment.Filename, attachment.ContentType, attachment.Data))
		}
		entity = mime.NewMultipart("mixed", parts...)
	}
	return entity
}

// Bytes serializes the complete message including the top-level mail
// headers. Bcc recipients are deliberately absent from the headers, they
// only appear on the SMTP envelope.
func (m *Message) Bytes(b backend.Backend) ([]byte, error) {
	if m.From == "" {
		return nil, errors.New("gpgmime: message has no From address")
	}
	if len(m.To)+len(m.Cc)+len(m.Bcc) == 0 {
		return nil, errors.New("gpgmime: message has no recipients")
	}

	entity, err := m.Entity(b)
	if err != nil {
		return nil, err
	}

	header := textproto.MIMEHeader{}
	header.Set("From", m.From)
	if len(m.To) > 0 {
		header.Set("To", strings.Join(m.To, ", "))
	}
	if len(m.Cc) > 0 {
		header.Set("Cc", strings.Join(m.Cc, ", "))
	}
	header.Set("Subject", m.Subject)
	header.Set("Date", time.Now().Format(time.RFC1123Z))
	header.Set("Message-Id", messageID(m.From))
	header.Set("Mime-Version", "1.0")
	for key, values := range entity.Header {
		header[key] = values
	}

	return (&mime.Entity{
		Header: header,
		Body:   entity.Body,
		Parts:  entity.Parts,
		Raw:    entity.Raw,
	}).Bytes()
}

// Recipients returns all envelope recipients, including Bcc.
func (m *Message) Recipients() []string {
	recipients := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	recipients = append(recipients, m.To...)
	recipients = append(recipients, m.Cc...)
	recipients = append(recipients, m.Bcc...)
	return recipients
}

// messageID generates a unique Message-Id using the domain of the sender
// address.
func messageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 {
		domain = strings.Trim(from[at+1:], "> ")
	}
	return fmt.Sprintf("<%s@%s>", uuid.Must(uuid.NewV4()), domain)
}
