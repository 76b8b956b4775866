package cli

import (
	"fmt"

	"github.com/mathiasertl/gpg-mime/fingerprint"
	"github.com/mathiasertl/gpg-mime/mime"
)

func parseFingerprints(values []string) ([]fingerprint.Fingerprint, error) {
	fps := make([]fingerprint.Fingerprint, 0, len(values))
	for _, value := range values {
		fp, err := fingerprint.Parse(value)
		if err != nil {
			return nil, err
		}
		fps = append(fps, fp)
	}
	return fps, nil
}

// SignCmd wraps text in a multipart/signed message.
type SignCmd struct {
	File   string   `arg:"" help:"Text file to sign, or - for stdin"`
	Signer []string `required:"" help:"Fingerprint of a signing key"`
}

// Run the command.
func (a *SignCmd) Run(cli *Cli) error {
	data, err := cli.ReadFile(a.File)
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

	signed, err := mime.Sign(b, mime.NewText(string(data)), signers)
	if err != nil {
		return err
	}
	serialized, err := signed.Bytes()
	if err != nil {
		return err
	}
	_, err = cli.Writer().Write(serialized)
	return err
}

// VerifyCmd verifies a multipart/signed message.
type VerifyCmd struct {
	File string `arg:"" help:"Message file to verify, or - for stdin"`
}

// Run the command.
func (a *VerifyCmd) Run(cli *Cli) error {
	data, err := cli.ReadFile(a.File)
	if err != nil {
		return err
	}
	b, err := cli.Backend()
	if err != nil {
		return err
	}

	signedBy, err := mime.Verify(b, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.Writer(), "good signature from %s\n", signedBy.Hex())
	return nil
}

// EncryptCmd wraps text in a multipart/encrypted message.
type EncryptCmd struct {
	File      string   `arg:"" help:"Text file to encrypt, or - for stdin"`
	Recipient []string `required:"" help:"Fingerprint of a recipient key"`
	Signer    []string `help:"Fingerprint of a signing key"`
}

// Run the command.
func (a *EncryptCmd) Run(cli *Cli) error {
	data, err := cli.ReadFile(a.File)
	if err != nil {
		return err
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

	entity := mime.NewText(string(data))
	var encrypted *mime.Entity
	if len(signers) > 0 {
		encrypted, err = mime.SignEncrypt(b, entity, recipients, signers)
	} else {
		encrypted, err = mime.Encrypt(b, entity, recipients)
	}
	if err != nil {
		return err
	}

	serialized, err := encrypted.Bytes()
	if err != nil {
		return err
	}
	_, err = cli.Writer().Write(serialized)
	return err
}

// DecryptCmd decrypts a multipart/encrypted message.
type DecryptCmd struct {
	File   string `arg:"" help:"Message file to decrypt, or - for stdin"`
	Verify bool   `help:"Require a valid signature on the encrypted payload"`
}

// Run the command.
func (a *DecryptCmd) Run(cli *Cli) error {
	data, err := cli.ReadFile(a.File)
	if err != nil {
		return err
	}
	b, err := cli.Backend()
	if err != nil {
		return err
	}

	if a.Verify {
		plaintext, signedBy, err := mime.DecryptVerifyPayload(b, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.ErrWriter(), "good signature from %s\n", signedBy.Hex())
		_, err = cli.Writer().Write(plaintext)
		return err
	}

	plaintext, err := mime.DecryptPayload(b, data)
	if err != nil {
		return err
	}
	_, err = cli.Writer().Write(plaintext)
	return err
}
