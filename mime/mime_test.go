package mime

import (
	"mime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathiasertl/gpg-mime/backend"
	"github.com/mathiasertl/gpg-mime/backend/local"
	"github.com/mathiasertl/gpg-mime/constants"
	"github.com/mathiasertl/gpg-mime/fingerprint"
)

func newTestBackend(t *testing.T) (*local.Backend, fingerprint.Fingerprint) {
	t.Helper()
	b, err := local.New(backend.Options{Home: t.TempDir()})
	require.NoError(t, err)
	fp, err := b.CreateKey("user one", "user1@example.com", 0)
	require.NoError(t, err)
	return b, fp
}

func TestNewText(t *testing.T) {
	entity := NewText("hello\nworld\n")
	assert.Equal(t, `text/plain; charset="utf-8"`, entity.Header.Get("Content-Type"))
	assert.Equal(t, "quoted-printable", entity.Header.Get("Content-Transfer-Encoding"))

	serialized, err := entity.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(serialized), "hello\r\nworld\r\n")
	assert.NotContains(t, strings.ReplaceAll(string(serialized), "\r\n", ""), "\n")
}

func TestNewAttachment(t *testing.T) {
	entity := NewAttachment("data.bin", "", []byte("attachment content"))

	mediaType, params, err := mime.ParseMediaType(entity.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", mediaType)
	assert.Equal(t, "data.bin", params["name"])
	assert.Equal(t, "base64", entity.Header.Get("Content-Transfer-Encoding"))

	disposition, params, err := mime.ParseMediaType(entity.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "data.bin", params["filename"])
}

func TestNewMultipart(t *testing.T) {
	container := NewMultipart("mixed", NewText("body"), NewAttachment("a.txt", "text/plain", []byte("a")))

	mediaType, params, err := mime.ParseMediaType(container.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)
	require.NotEmpty(t, params["boundary"])

	serialized, err := container.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(serialized), "--"+params["boundary"]+"\r\n")
	assert.Contains(t, string(serialized), "--"+params["boundary"]+"--\r\n")
}

func TestSignVerify(t *testing.T) {
	b, fp := newTestBackend(t)

	signed, err := Sign(b, NewText("signed content\n"), []fingerprint.Fingerprint{fp})
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(signed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, constants.MultipartSigned, mediaType)
	assert.Equal(t, constants.ProtocolSignature, params["protocol"])
	assert.Equal(t, constants.MicAlgSHA256, params["micalg"])

	message, err := signed.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(message), "signed content")
	assert.Contains(t, string(message), "-----BEGIN PGP SIGNATURE-----")

	signedBy, err := Verify(b, message)
	require.NoError(t, err)
	assert.Equal(t, fp, signedBy)
}

func TestVerifyTamperedMessage(t *testing.T) {
	b, fp := newTestBackend(t)

	signed, err := Sign(b, NewText("signed content\n"), []fingerprint.Fingerprint{fp})
	require.NoError(t, err)
	message, err := signed.Bytes()
	require.NoError(t, err)

	tampered := strings.Replace(string(message), "signed content", "changed content", 1)
	_, err = Verify(b, []byte(tampered))
	assert.Error(t, err)
}

func TestVerifyUnixLineEndings(t *testing.T) {
	b, fp := newTestBackend(t)

	signed, err := Sign(b, NewText("signed content\n"), []fingerprint.Fingerprint{fp})
	require.NoError(t, err)
	message, err := signed.Bytes()
	require.NoError(t, err)

	// some transports rewrite CRLF to bare LF
	mangled := strings.ReplaceAll(string(message), "\r\n", "\n")
	signedBy, err := Verify(b, []byte(mangled))
	require.NoError(t, err)
	assert.Equal(t, fp, signedBy)
}

func TestEncryptDecrypt(t *testing.T) {
	b, fp := newTestBackend(t)

	encrypted, err := Encrypt(b, NewText("secret content\n"), []fingerprint.Fingerprint{fp})
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(encrypted.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, constants.MultipartEncrypted, mediaType)
	assert.Equal(t, constants.ProtocolEncrypted, params["protocol"])

	message, err := encrypted.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(message), "Version: 1")
	assert.Contains(t, string(message), "-----BEGIN PGP MESSAGE-----")
	assert.Contains(t, string(message), "Content-Description: PGP/MIME version identification")
	assert.Contains(t, string(message), "Content-Description: OpenPGP encrypted message")
	assert.NotContains(t, string(message), "secret content")

	plaintext, err := DecryptPayload(b, message)
	require.NoError(t, err)
	assert.Contains(t, string(plaintext), "secret content")
}

func TestSignEncryptDecryptVerify(t *testing.T) {
	b, fp := newTestBackend(t)

	encrypted, err := SignEncrypt(b, NewText("secret content\n"),
		[]fingerprint.Fingerprint{fp}, []fingerprint.Fingerprint{fp})
	require.NoError(t, err)
	message, err := encrypted.Bytes()
	require.NoError(t, err)

	plaintext, signedBy, err := DecryptVerifyPayload(b, message)
	require.NoError(t, err)
	assert.Contains(t, string(plaintext), "secret content")
	assert.Equal(t, fp, signedBy)
}

type recordingCallbacks struct {
	body        string
	mimetype    string
	attachments [][]byte
	verified    []int
	errs        []error
}

func (c *recordingCallbacks) OnBody(body string, mimetype string) {
	c.body = body
	c.mimetype = mimetype
}

func (c *recordingCallbacks) OnAttachment(headers string, data []byte) {
	c.attachments = append(c.attachments, data)
}

func (c *recordingCallbacks) OnVerified(status int) {
	c.verified = append(c.verified, status)
}

func (c *recordingCallbacks) OnError(err error) {
	c.errs = append(c.errs, err)
}

func TestDecryptCallbacks(t *testing.T) {
	b, fp := newTestBackend(t)

	encrypted, err := SignEncrypt(b, NewText("callback content\n"),
		[]fingerprint.Fingerprint{fp}, []fingerprint.Fingerprint{fp})
	require.NoError(t, err)
	message, err := encrypted.Bytes()
	require.NoError(t, err)

	callbacks := &recordingCallbacks{}
	Decrypt(message, b, callbacks)

	assert.Empty(t, callbacks.errs)
	assert.Equal(t, []int{constants.SIGNATURE_OK}, callbacks.verified)
	assert.Contains(t, callbacks.body, "callback content")
	assert.Equal(t, "text/plain", callbacks.mimetype)
}

func TestDecryptCallbacksGarbage(t *testing.T) {
	b, _ := newTestBackend(t)

	callbacks := &recordingCallbacks{}
	Decrypt([]byte("not a mime message"), b, callbacks)
	assert.NotEmpty(t, callbacks.errs)
	assert.Empty(t, callbacks.verified)
}
