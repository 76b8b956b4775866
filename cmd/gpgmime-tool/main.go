package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/mathiasertl/gpg-mime/cmd/gpgmime-tool/cli"
	"github.com/mathiasertl/gpg-mime/constants"
)

type app struct {
	cli.Cli

	Key      cli.KeyCmd      `cmd:"" help:"Key management commands"`
	Sign     cli.SignCmd     `cmd:"" help:"Create a PGP/MIME signed message"`
	Verify   cli.VerifyCmd   `cmd:"" help:"Verify a PGP/MIME signed message"`
	Encrypt  cli.EncryptCmd  `cmd:"" help:"Create a PGP/MIME encrypted message"`
	Decrypt  cli.DecryptCmd  `cmd:"" help:"Decrypt a PGP/MIME encrypted message"`
	Sendmail cli.SendmailCmd `cmd:"" help:"Send a PGP/MIME message over SMTP"`
	Testmail cli.TestmailCmd `cmd:"" help:"Send all sign/encrypt test combinations over SMTP"`
	Backends cli.BackendsCmd `cmd:"" help:"Write sample signed and encrypted messages to a directory"`
}

func main() {
	realMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

func realMain(args []string, out io.Writer, errout io.Writer, exit func(int)) {
	cl := app{
		Cli: cli.Cli{},
	}
	cl.Cli.WithErrWriter(errout).
		WithWriter(out)

	parser, err := kong.New(&cl,
		kong.Name("gpgmime-tool"),
		kong.Description("PGP/MIME mail tools"),
		kong.Writers(out, errout),
		kong.Exit(exit),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": constants.Version,
		})
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args[1:])
	parser.FatalIfErrorf(err)

	if ctx != nil {
		err = ctx.Run(&cl.Cli)
		ctx.FatalIfErrorf(err)
	}
}
