// Package gnupg implements the backend interface by calling out to the
// system GnuPG binary.
package gnupg

import (
	"bytes"
	"os/exec"
	"regexp"

	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
)

// DefaultPath is the gpg binary used when Options.Path is empty.
const DefaultPath = "gpg"

var versionRegexp = regexp.MustCompile(`gpg \(GnuPG.*\) (\d+\.\d+\.\d+)`)

// Backend talks to an external gpg process. The zero value is not usable,
// construct it with New.
type Backend struct {
	path        string
	home        string
	alwaysTrust bool
}

var _ backend.Backend = (*Backend)(nil)

// New returns a backend backed by the gpg binary named in opts.Path. If
// opts.Home is set it is passed as --homedir, otherwise gpg uses its
// default home directory.
func New(opts backend.Options) (*Backend, error) {
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	if _, err := exec.LookPath(path); err != nil {
		return nil, errors.Wrapf(err, "gpgmime: gpg binary %q not found", path)
	}

	return &Backend{
		path:        path,
		home:        opts.Home,
		alwaysTrust: opts.AlwaysTrust,
	}, nil
}

// Version returns the version of the gpg binary, e.g. "2.4.4".
func (b *Backend) Version() (string, error) {
	stdout, _, err := b.run(nil, "--version")
	if err != nil {
		return "", err
	}

	match := versionRegexp.FindSubmatch(stdout)
	if match == nil {
		return "", errors.New("gpgmime: no version string in gpg output")
	}
	return string(match[1]), nil
}

// AlwaysTrust returns a backend on the same keyring that passes
// --trust-model always to gpg.
func (b *Backend) AlwaysTrust() backend.Backend {
	trusting := *b
	trusting.alwaysTrust = true
	return &trusting
}

func (b *Backend) Close() error {
	return nil
}

// run executes gpg with the global arguments prepended, feeding stdin (if
// non-nil) to the process. Stdout and stderr are captured separately so
// binary output is never mixed with diagnostics.
func (b *Backend) run(stdin []byte, arguments ...string) (stdout, stderr []byte, err error) {
	cmd := exec.Command(b.path, b.globalArguments(arguments...)...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	runErr := cmd.Run()
	if runErr != nil {
		err = errors.Wrapf(runErr, "gpgmime: gpg %v failed: %s", arguments, errBuf.String())
	}
	return outBuf.Bytes(), errBuf.Bytes(), err
}

func (b *Backend) globalArguments(arguments ...string) []string {
	global := []string{"--batch", "--no-tty", "--status-fd", "2"}
	if b.home != "" {
		global = append(global, "--homedir", b.home)
	}
	return append(global, arguments...)
}
