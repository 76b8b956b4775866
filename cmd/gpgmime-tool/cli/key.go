package cli

import (
	"fmt"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

// KeyCmd groups the key management commands.
type KeyCmd struct {
	Create  KeyCreateCmd  `cmd:"" help:"Generate a new key pair"`
	Import  KeyImportCmd  `cmd:"" help:"Import an armored key into the keyring"`
	Export  KeyExportCmd  `cmd:"" help:"Export an armored public key"`
	Fetch   KeyFetchCmd   `cmd:"" help:"Fetch a key from the keyserver and import it"`
	Submit  KeySubmitCmd  `cmd:"" help:"Upload a public key to the keyserver"`
	Trust   KeyTrustCmd   `cmd:"" help:"Show or set the owner trust of a key"`
	Expires KeyExpiresCmd `cmd:"" help:"Show when a key expires"`
}

// keyCreator is implemented by backends that can generate keys.
type keyCreator interface {
	CreateKey(name, email string, lifetimeSecs uint32) (fingerprint.Fingerprint, error)
}

// KeyCreateCmd generates a new key pair.
type KeyCreateCmd struct {
	Name     string `arg:"" help:"Name of the key holder"`
	Email    string `arg:"" help:"Email address of the key holder"`
	Lifetime uint32 `help:"Key lifetime in seconds, 0 for no expiry" default:"0"`
}

// Run the command.
func (a *KeyCreateCmd) Run(cli *Cli) error {
	b, err := cli.Backend()
	if err != nil {
		return err
	}
	creator, ok := b.(keyCreator)
	if !ok {
		return fmt.Errorf("the configured backend cannot generate keys")
	}

	fp, err := creator.CreateKey(a.Name, a.Email, a.Lifetime)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.Writer(), fp.Hex())
	return nil
}

// KeyImportCmd imports an armored key.
type KeyImportCmd struct {
	File    string `arg:"" help:"Armored key file, or - for stdin"`
	Private bool   `help:"Import as a private key"`
}

// Run the command.
func (a *KeyImportCmd) Run(cli *Cli) error {
	data, err := cli.ReadFile(a.File)
	if err != nil {
		return err
	}
	b, err := cli.Backend()
	if err != nil {
		return err
	}

	var fp fingerprint.Fingerprint
	if a.Private {
		fp, err = b.ImportPrivateKey(data)
	} else {
		fp, err = b.ImportKey(data)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.Writer(), fp.Hex())
	return nil
}

// KeyExportCmd exports an armored public key.
type KeyExportCmd struct {
	Fingerprint string `arg:"" help:"Fingerprint of the key to export"`
	Private     bool   `help:"Export the private key"`
}

// Run the command.
func (a *KeyExportCmd) Run(cli *Cli) error {
	fp, err := fingerprint.Parse(a.Fingerprint)
	if err != nil {
		return err
	}
	b, err := cli.Backend()
	if err != nil {
		return err
	}

	var key []byte
	if a.Private {
		key, err = b.ExportPrivateKey(fp)
	} else {
		key, err = b.ExportKey(fp)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(cli.Writer(), string(key))
	return nil
}

// KeyFetchCmd fetches a key from the keyserver and imports it.
type KeyFetchCmd struct {
	Search string `arg:"" help:"Email address, key ID or fingerprint to fetch"`
}

// Run the command.
func (a *KeyFetchCmd) Run(cli *Cli) error {
	client, err := cli.Config().Keyserver()
	if err != nil {
		return err
	}

	key, err := client.Fetch(cli.Context(), a.Search)
	if err != nil {
		return err
	}

	b, err := cli.Backend()
	if err != nil {
		return err
	}
	fp, err := b.ImportKey(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.Writer(), fp.Hex())
	return nil
}

// KeySubmitCmd uploads a public key to the keyserver.
type KeySubmitCmd struct {
	Fingerprint string `arg:"" help:"Fingerprint of the key to upload"`
}

// Run the command.
func (a *KeySubmitCmd) Run(cli *Cli) error {
	fp, err := fingerprint.Parse(a.Fingerprint)
	if err != nil {
		return err
	}
	b, err := cli.Backend()
	if err != nil {
		return err
	}
	key, err := b.ExportKey(fp)
	if err != nil {
		return err
	}

	client, err := cli.Config().Keyserver()
	if err != nil {
		return err
	}
	return client.Submit(cli.Context(), key)
}

// KeyTrustCmd shows or sets the owner trust of a key.
type KeyTrustCmd struct {
	Fingerprint string `arg:"" help:"Fingerprint of the key"`
	Level       string `arg:"" optional:"" help:"Trust level to set: never, marginal, full or ultimate"`
}

// Run the command.
func (a *KeyTrustCmd) Run(cli *Cli) error {
	fp, err := fingerprint.Parse(a.Fingerprint)
	if err != nil {
		return err
	}
	b, err := cli.Backend()
	if err != nil {
		return err
	}

	if a.Level != "" {
		trust, err := backend.ParseValidity(a.Level)
		if err != nil {
			return err
		}
		return b.SetTrust(fp, trust)
	}

	trust, err := b.GetTrust(fp)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.Writer(), trust.String())
	return nil
}

// KeyExpiresCmd shows when a key expires.
type KeyExpiresCmd struct {
	Fingerprint string `arg:"" help:"Fingerprint of the key"`
}

// Run the command.
func (a *KeyExpiresCmd) Run(cli *Cli) error {
	fp, err := fingerprint.Parse(a.Fingerprint)
	if err != nil {
		return err
	}
	b, err := cli.Backend()
	if err != nil {
		return err
	}

	expires, err := b.Expires(fp)
	if err != nil {
		return err
	}
	if expires == nil {
		fmt.Fprintln(cli.Writer(), "never")
		return nil
	}
	fmt.Fprintln(cli.Writer(), expires.UTC().Format("2006-01-02 15:04:05 MST"))
	return nil
}
