package cli

import (
	"github.com/mathiasertl/gpg-mime/mail"
)

// SendmailCmd sends a message over the configured SMTP server.
type SendmailCmd struct {
	To      []string `required:"" help:"Recipient address"`
	From    string   `help:"Sender address, defaults to smtp.default_from"`
	Subject string   `default:"gpgmime-tool test mail" help:"Message subject"`
	Body    string   `arg:"" optional:"" help:"Message body, read from stdin when omitted"`

	Recipient   []string `help:"Fingerprint of a GPG recipient key, encrypts the message"`
	Signer      []string `help:"Fingerprint of a GPG signing key, signs the message"`
	AlwaysTrust bool     `help:"Skip the trust check on recipient keys"`
}

// Run the command.
func (a *SendmailCmd) Run(cli *Cli) error {
	body := a.Body
	if body == "" {
		raw, err := cli.ReadFile("-")
		if err != nil {
			return err
		}
		body = string(raw)
	}

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

	cfg := cli.Config()
	sender := mail.NewSMTPSender(cfg.SMTPOptions(), b)
	return sender.Send(&mail.Message{
		From:           a.From,
		To:             a.To,
		Subject:        a.Subject,
		Body:           body,
		GPGRecipients:  recipients,
		GPGSigners:     signers,
		GPGAlwaysTrust: a.AlwaysTrust,
	})
}
