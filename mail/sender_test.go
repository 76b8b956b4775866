package mail

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathiasertl/gpg-mime/fingerprint"
	gpgmime "github.com/mathiasertl/gpg-mime/mime"
)

// fakeSMTPServer accepts one SMTP session and records the envelope and
// message data.
type fakeSMTPServer struct {
	listener net.Listener

	from string
	rcpt []string
	data string
	done chan struct{}
}

func newFakeSMTPServer(t *testing.T) *fakeSMTPServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &fakeSMTPServer{listener: listener, done: make(chan struct{})}
	go server.serve()
	t.Cleanup(func() { listener.Close() })
	return server
}

func (s *fakeSMTPServer) addr() (host string, port int) {
	tcp := s.listener.Addr().(*net.TCPAddr)
	return tcp.IP.String(), tcp.Port
}

func (s *fakeSMTPServer) serve() {
	defer close(s.done)

	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	write := func(line string) { conn.Write([]byte(line + "\r\n")) } //nolint:errcheck

	write("220 fake ESMTP")
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
			write("250 fake")
		case strings.HasPrefix(line, "MAIL FROM:"):
			s.from = strings.Trim(strings.TrimPrefix(line, "MAIL FROM:"), "<> ")
			write("250 ok")
		case strings.HasPrefix(line, "RCPT TO:"):
			s.rcpt = append(s.rcpt, strings.Trim(strings.TrimPrefix(line, "RCPT TO:"), "<> "))
			write("250 ok")
		case line == "DATA":
			write("354 go ahead")
			var body strings.Builder
			for {
				dataLine, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				if strings.TrimRight(dataLine, "\r\n") == "." {
					break
				}
				body.WriteString(dataLine)
			}
			s.data = body.String()
			write("250 accepted")
		case line == "QUIT":
			write("221 bye")
			return
		default:
			write("250 ok")
		}
	}
}

func TestSMTPSenderSend(t *testing.T) {
	b, fp := newTestBackend(t)
	server := newFakeSMTPServer(t)
	host, port := server.addr()

	sender := NewSMTPSender(SMTPOptions{Host: host, Port: port}, b)
	msg := &Message{
		From:          "sender@example.com",
		To:            []string{"user1@example.com"},
		Bcc:           []string{"hidden@example.com"},
		Subject:       "delivery",
		Body:          "secret content\n",
		GPGRecipients: []fingerprint.Fingerprint{fp},
	}

	require.NoError(t, sender.Send(msg))
	<-server.done

	assert.Equal(t, "sender@example.com", server.from)
	assert.Equal(t, []string{"user1@example.com", "hidden@example.com"}, server.rcpt)
	assert.NotContains(t, server.data, "secret content")
	assert.NotContains(t, server.data, "hidden@example.com")

	normalized := strings.ReplaceAll(server.data, "\n", "\r\n")
	normalized = strings.ReplaceAll(normalized, "\r\r\n", "\r\n")
	plaintext, err := gpgmime.DecryptPayload(b, stripMailHeaders([]byte(normalized)))
	require.NoError(t, err)
	assert.Contains(t, string(plaintext), "secret content")
}

func TestSMTPSenderDefaultFrom(t *testing.T) {
	b, _ := newTestBackend(t)
	server := newFakeSMTPServer(t)
	host, port := server.addr()

	sender := NewSMTPSender(SMTPOptions{Host: host, Port: port, DefaultFrom: "default@example.com"}, b)
	msg := &Message{
		To:   []string{"user1@example.com"},
		Body: "content\n",
	}

	require.NoError(t, sender.Send(msg))
	<-server.done
	assert.Equal(t, "default@example.com", server.from)
}

func TestSMTPSenderTransformFailureSendsNothing(t *testing.T) {
	b, _ := newTestBackend(t)
	server := newFakeSMTPServer(t)
	host, port := server.addr()

	sender := NewSMTPSender(SMTPOptions{Host: host, Port: port}, b)
	msg := &Message{
		From:          "sender@example.com",
		To:            []string{"user1@example.com"},
		Body:          "secret content\n",
		GPGRecipients: []fingerprint.Fingerprint{fingerprint.MustParse("A999B7498D1A8DC473E53C92309F635DAD1B5517")},
	}

	assert.Error(t, sender.Send(msg))
	assert.Empty(t, server.from)
	assert.Empty(t, server.data)
}
