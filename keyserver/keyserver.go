// Package keyserver implements an HKP client for fetching keys from and
// submitting keys to OpenPGP keyservers.
package keyserver

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/effective-security/xlog"
	"github.com/pkg/errors"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

var logger = xlog.NewPackageLogger("github.com/mathiasertl/gpg-mime", "keyserver")

const (
	// DefaultBaseURL is the keyserver used when none is configured.
	DefaultBaseURL = "https://keys.openpgp.org"

	// DefaultTimeout bounds a single keyserver request.
	DefaultTimeout = 3 * time.Second

	userAgent = "gpg-mime"
)

// A Client talks to one HKP keyserver.
type Client struct {
	client    *http.Client
	BaseURL   *url.URL
	UserAgent string
}

// NewClient returns a client for the keyserver at baseURL, e.g.
// "https://keys.openpgp.org". An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "gpgmime: keyserver URL %q", baseURL)
	}

	return &Client{
		client:    &http.Client{Timeout: DefaultTimeout},
		BaseURL:   parsed,
		UserAgent: userAgent,
	}, nil
}

// Fetch retrieves the armored key matching search, which may be an email
// address, a key ID or a 0x-prefixed fingerprint. It returns
// backend.ErrKeyNotFound when the keyserver knows no matching key.
func (c *Client) Fetch(ctx context.Context, search string) ([]byte, error) {
	lookup := *c.BaseURL
	lookup.Path = "/pks/lookup"
	lookup.RawQuery = url.Values{
		"op":      []string{"get"},
		"options": []string{"mr"},
		"search":  []string{search},
	}.Encode()

	logger.KV(xlog.DEBUG, "op", "fetch", "server", c.BaseURL.Host, "search", search)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, lookup.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: keyserver request")
	}
	request.Header.Set("User-Agent", c.UserAgent)

	response, err := c.client.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: keyserver lookup")
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusNotFound:
		return nil, errors.WithMessage(backend.ErrKeyNotFound, search)
	case response.StatusCode != http.StatusOK:
		return nil, errors.Errorf("gpgmime: keyserver returned %s", response.Status)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "gpgmime: keyserver response")
	}
	if len(body) == 0 {
		return nil, errors.WithMessage(backend.ErrKeyNotFound, search)
	}
	return body, nil
}

// FetchFingerprint retrieves the armored key for an exact fingerprint.
func (c *Client) FetchFingerprint(ctx context.Context, fp fingerprint.Fingerprint) ([]byte, error) {
	return c.Fetch(ctx, "0x"+fp.Hex())
}

// Submit uploads an armored key to the keyserver.
func (c *Client) Submit(ctx context.Context, armoredKey []byte) error {
	add := *c.BaseURL
	add.Path = "/pks/add"
	form := url.Values{"keytext": []string{string(armoredKey)}}

	logger.KV(xlog.DEBUG, "op", "submit", "server", c.BaseURL.Host)

	request, err := http.NewRequestWithContext(
		ctx, http.MethodPost, add.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "gpgmime: keyserver request")
	}
	request.Header.Set("User-Agent", c.UserAgent)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := c.client.Do(request)
	if err != nil {
		return errors.Wrap(err, "gpgmime: keyserver submit")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return errors.Errorf("gpgmime: keyserver returned %s", response.Status)
	}
	return nil
}
