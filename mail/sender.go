package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/effective-security/xlog"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

var logger = xlog.NewPackageLogger("github.com/mathiasertl/gpg-mime", "mail")

// A Sender delivers messages.
type Sender interface {
	Send(msg *Message) error
}

// SMTPOptions configures an SMTPSender.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string

	// UseTLS upgrades the connection with STARTTLS before authenticating.
	UseTLS bool

	// DefaultFrom is used when a message has no From address.
	DefaultFrom string
}

// SMTPSender delivers messages over SMTP, applying the PGP/MIME
// transformation before anything reaches the server.
type SMTPSender struct {
	opts    SMTPOptions
	backend backend.Backend
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender returns a sender delivering through the given SMTP server.
// The backend performs the PGP/MIME transformations.
func NewSMTPSender(opts SMTPOptions, b backend.Backend) *SMTPSender {
	if opts.Port == 0 {
		opts.Port = 25
	}
	return &SMTPSender{opts: opts, backend: b}
}

// Send transforms and delivers one message. The transformation happens
// before the SMTP dialog starts, so a failed signing or encryption never
// leaks an unprotected message.
func (s *SMTPSender) Send(msg *Message) error {
	if msg.From == "" {
		msg.From = s.opts.DefaultFrom
	}

	serialized, err := msg.Bytes(s.backend)
	if err != nil {
		return err
	}

	recipients := msg.Recipients()
	logger.KV(xlog.DEBUG,
		"op", "send",
		"host", s.opts.Host,
		"recipients", len(recipients),
		"gpg_recipients", fingerprint.Hexes(msg.GPGRecipients),
		"gpg_signers", fingerprint.Hexes(msg.GPGSigners),
	)

	address := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	client, err := smtp.Dial(address)
	if err != nil {
		return errors.Wrapf(err, "gpgmime: connecting to %s", address)
	}
	defer client.Close()

	if s.opts.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.opts.Host}); err != nil {
			return errors.Wrap(err, "gpgmime: starttls")
		}
	}
	if s.opts.Username != "" {
		auth := smtp.PlainAuth("", s.opts.Username, s.opts.Password, s.opts.Host)
		if err := client.Auth(auth); err != nil {
			return errors.Wrap(err, "gpgmime: smtp auth")
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return errors.Wrap(err, "gpgmime: envelope sender rejected")
	}
	for _, recipient := range recipients {
		if err := client.Rcpt(recipient); err != nil {
			return errors.Wrapf(err, "gpgmime: recipient %s rejected", recipient)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "gpgmime: smtp data")
	}
	if _, err := writer.Write(serialized); err != nil {
		return errors.Wrap(err, "gpgmime: writing message")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "gpgmime: finishing message")
	}

	return client.Quit()
}
