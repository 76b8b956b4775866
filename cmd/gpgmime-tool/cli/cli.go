// Package cli implements the commands of gpgmime-tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/effective-security/xlog"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/config"
)

// VersionFlag prints the version and exits.
type VersionFlag bool

// BeforeApply implements the kong hook.
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Fprintln(app.Stdout, vars["version"])
	app.Exit(0)
	return nil
}

// Cli provides the context shared by all commands.
type Cli struct {
	Version VersionFlag `name:"version" help:"Print version information and quit" hidden:""`

	Cfg   string `help:"Configuration file" type:"path" env:"GPGMIME_CONFIG"`
	Debug bool   `short:"D" help:"Enable debug logging"`

	// stdin is the source to read from, typically os.Stdin
	stdin io.Reader
	// output is the destination for command output, typically os.Stdout
	output io.Writer
	// errOutput is the destination for errors, typically os.Stderr
	errOutput io.Writer

	ctx     context.Context
	cfg     *config.Config
	backend backend.Backend
}

// Context for requests
func (c *Cli) Context() context.Context {
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	return c.ctx
}

// Reader is the source to read from, typically set to os.Stdin
func (c *Cli) Reader() io.Reader {
	if c.stdin != nil {
		return c.stdin
	}
	return os.Stdin
}

// WithReader allows to specify a custom reader
func (c *Cli) WithReader(reader io.Reader) *Cli {
	c.stdin = reader
	return c
}

// Writer returns a writer for command output
func (c *Cli) Writer() io.Writer {
	if c.output != nil {
		return c.output
	}
	return os.Stdout
}

// WithWriter allows to specify a custom writer
func (c *Cli) WithWriter(out io.Writer) *Cli {
	c.output = out
	return c
}

// ErrWriter returns a writer for error output
func (c *Cli) ErrWriter() io.Writer {
	if c.errOutput != nil {
		return c.errOutput
	}
	return os.Stderr
}

// WithErrWriter allows to specify a custom error writer
func (c *Cli) WithErrWriter(out io.Writer) *Cli {
	c.errOutput = out
	return c
}

// AfterApply hook loads the configuration.
func (c *Cli) AfterApply(_ *kong.Kong, _ kong.Vars) error {
	if c.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.ERROR)
	}

	if c.Cfg == "" {
		c.cfg = config.Default()
		return nil
	}
	cfg, err := config.Load(c.Cfg)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// Config returns the loaded configuration.
func (c *Cli) Config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// WithConfig allows to specify a custom configuration.
func (c *Cli) WithConfig(cfg *config.Config) *Cli {
	c.cfg = cfg
	return c
}

// Backend returns the configured GPG backend, opening it on first use.
func (c *Cli) Backend() (backend.Backend, error) {
	if c.backend == nil {
		b, err := c.Config().OpenBackend()
		if err != nil {
			return nil, err
		}
		c.backend = b
	}
	return c.backend, nil
}

// ReadFile reads from the command's input stream if the file is "-".
func (c *Cli) ReadFile(filename string) ([]byte, error) {
	if filename == "" {
		return nil, errors.New("empty file name")
	}
	if filename == "-" {
		return io.ReadAll(c.Reader())
	}
	return os.ReadFile(filename)
}
