package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/fingerprint"
	"github.com/mathiasertl/gpg-mime/mail"
)

// TestmailCmd sends every sign/encrypt and plain/multipart combination
// through the configured SMTP server.
type TestmailCmd struct {
	To   []string `required:"" help:"Recipient address"`
	From string   `help:"Sender address, defaults to smtp.default_from"`

	Recipient   []string `required:"" help:"Fingerprint of the GPG recipient key"`
	Signer      []string `required:"" help:"Fingerprint of the GPG signing key"`
	AlwaysTrust bool     `help:"Skip the trust check on recipient keys"`
}

// Run the command.
func (a *TestmailCmd) Run(cli *Cli) error {
	recipients, err := parseFingerprints(a.Recipient)
	if err != nil {
		return err
	}
	signers, err := parseFingerprints(a.Signer)
	if err != nil {
		return err
	}
	b, err := cli.Backend()
	if err != nil {
		return err
	}

	sender := mail.NewSMTPSender(cli.Config().SMTPOptions(), b)
	for _, variant := range messageVariants(a.To, a.From, recipients, signers, a.AlwaysTrust) {
		if err := sender.Send(variant.message); err != nil {
			return errors.WithMessagef(err, "sending %q", variant.name)
		}
		fmt.Fprintf(cli.Writer(), "sent %s\n", variant.name)
	}
	return nil
}

// BackendsCmd writes sample signed and encrypted messages to a directory
// for manual inspection with a mail client.
type BackendsCmd struct {
	Dest string `arg:"" help:"Directory to write the messages to"`
	Fp   string `required:"" help:"Fingerprint used as signer and recipient"`

	To          string `default:"user@example.com" help:"To header of the generated messages"`
	From        string `default:"user@example.com" help:"From header of the generated messages"`
	AlwaysTrust bool   `help:"Skip the trust check on the recipient key"`
}

// Run the command.
func (a *BackendsCmd) Run(cli *Cli) error {
	fp, err := fingerprint.Parse(a.Fp)
	if err != nil {
		return err
	}
	b, err := cli.Backend()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.Dest, 0o755); err != nil {
		return errors.WithStack(err)
	}

	fps := []fingerprint.Fingerprint{fp}
	samples := []struct {
		filename   string
		recipients []fingerprint.Fingerprint
		signers    []fingerprint.Fingerprint
	}{
		{"signed-only.eml", nil, fps},
		{"encrypted-only.eml", fps, nil},
		{"signed-encrypted.eml", fps, fps},
	}
	for _, sample := range samples {
		msg := &mail.Message{
			From:           a.From,
			To:             []string{a.To},
			Subject:        "gpgmime-tool " + sample.filename,
			Body:           "This is a PGP/MIME test message.\n",
			GPGRecipients:  sample.recipients,
			GPGSigners:     sample.signers,
			GPGAlwaysTrust: a.AlwaysTrust,
		}
		serialized, err := msg.Bytes(b)
		if err != nil {
			return errors.WithMessagef(err, "building %q", sample.filename)
		}
		path := filepath.Join(a.Dest, sample.filename)
		if err := os.WriteFile(path, serialized, 0o644); err != nil {
			return errors.WithStack(err)
		}
		fmt.Fprintf(cli.Writer(), "wrote %s\n", path)
	}
	return nil
}

type messageVariant struct {
	name    string
	message *mail.Message
}

func messageVariants(to []string, from string, recipients, signers []fingerprint.Fingerprint, alwaysTrust bool) []messageVariant {
	attachment := mail.Attachment{
		Filename:    "hello.txt",
		ContentType: "text/plain",
		Data:        []byte("attached text\n"),
	}

	variants := make([]messageVariant, 0, 6)
	for _, protection := range []struct {
		name       string
		recipients []fingerprint.Fingerprint
		signers    []fingerprint.Fingerprint
	}{
		{"signed", nil, signers},
		{"encrypted", recipients, nil},
		{"signed+encrypted", recipients, signers},
	} {
		plain := &mail.Message{
			From:           from,
			To:             to,
			Subject:        "gpgmime-tool testmail: " + protection.name,
			Body:           "This is a " + protection.name + " test message.\n",
			GPGRecipients:  protection.recipients,
			GPGSigners:     protection.signers,
			GPGAlwaysTrust: alwaysTrust,
		}
		multipart := &mail.Message{
			From:           from,
			To:             to,
			Subject:        "gpgmime-tool testmail: " + protection.name + " multipart",
			Body:           "This is a " + protection.name + " multipart test message.\n",
			HTML:           "<p>This is a <b>" + protection.name + "</b> multipart test message.</p>",
			Attachments:    []mail.Attachment{attachment},
			GPGRecipients:  protection.recipients,
			GPGSigners:     protection.signers,
			GPGAlwaysTrust: alwaysTrust,
		}
		variants = append(variants,
			messageVariant{protection.name, plain},
			messageVariant{protection.name + " multipart", multipart},
		)
	}
	return variants
}
