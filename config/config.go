// Package config loads the YAML configuration shared by the library's
// command line tool and by applications embedding the mail integration.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/backend/gnupg"
	"github.com/mathiasertl/gpg-mime/backend/local"
	"github.com/mathiasertl/gpg-mime/keyserver"
	"github.com/mathiasertl/gpg-mime/mail"
)

// Backend names accepted in the gpg section.
const (
	BackendLocal = "local"
	BackendGnuPG = "gnupg"
)

// Config is the root of the configuration file.
type Config struct {
	SMTP SMTP `yaml:"smtp"`
	GPG  GPG  `yaml:"gpg"`
}

// SMTP configures outgoing mail delivery.
type SMTP struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	UseTLS      bool   `yaml:"use_tls"`
	DefaultFrom string `yaml:"default_from"`
}

// GPG selects and configures the GPG backend.
type GPG struct {
	// Backend is "local" or "gnupg".
	Backend string `yaml:"backend"`

	// Home is the keyring directory. Empty selects the backend default.
	Home string `yaml:"home"`

	// Path is the gpg binary used by the gnupg backend.
	Path string `yaml:"path"`

	AlwaysTrust bool `yaml:"always_trust"`

	// Keyserver is the HKP server used for key discovery.
	Keyserver string `yaml:"keyserver"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		SMTP: SMTP{Host: "localhost", Port: 25},
		GPG: GPG{
			Backend:   BackendLocal,
			Keyserver: keyserver.DefaultBaseURL,
		},
	}
}

// Load reads the configuration file at path, filling unset fields with
// defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "gpgmime: reading config %q", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "gpgmime: parsing config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no backend can work with.
func (c *Config) Validate() error {
	switch c.GPG.Backend {
	case BackendLocal, BackendGnuPG:
	case "":
		c.GPG.Backend = BackendLocal
	default:
		return errors.Errorf("gpgmime: unknown gpg backend %q", c.GPG.Backend)
	}

	if c.SMTP.Port < 0 || c.SMTP.Port > 65535 {
		return errors.Errorf("gpgmime: invalid smtp port %d", c.SMTP.Port)
	}
	return nil
}

// OpenBackend constructs the configured GPG backend.
func (c *Config) OpenBackend() (backend.Backend, error) {
	opts := backend.Options{
		Home:        c.GPG.Home,
		Path:        c.GPG.Path,
		AlwaysTrust: c.GPG.AlwaysTrust,
	}

	switch c.GPG.Backend {
	case BackendGnuPG:
		return gnupg.New(opts)
	default:
		return local.New(opts)
	}
}

// Keyserver returns a client for the configured keyserver.
func (c *Config) Keyserver() (*keyserver.Client, error) {
	return keyserver.NewClient(c.GPG.Keyserver)
}

// SMTPOptions returns the delivery options for mail.NewSMTPSender.
func (c *Config) SMTPOptions() mail.SMTPOptions {
	return mail.SMTPOptions{
		Host:        c.SMTP.Host,
		Port:        c.SMTP.Port,
		Username:    c.SMTP.Username,
		Password:    c.SMTP.Password,
		UseTLS:      c.SMTP.UseTLS,
		DefaultFrom: c.SMTP.DefaultFrom,
	}
}
