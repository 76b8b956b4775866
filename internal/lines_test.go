package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, []byte("a\r\nb\r\n"), Canonicalize([]byte("a\nb\n")))
	assert.Equal(t, []byte("a\r\nb\r\n"), Canonicalize([]byte("a\r\nb\r\n")))
	assert.Equal(t, []byte("a\r\n\r\nb"), Canonicalize([]byte("a\n\r\nb")))
}

func TestTrimEachLine(t *testing.T) {
	assert.Equal(t, []byte("a\nb"), TrimEachLine([]byte("a \t\nb   ")))
	assert.Equal(t, []byte("a\nb"), TrimEachLine([]byte("a\r\nb")))
}
