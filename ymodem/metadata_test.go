package ymodem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildAndParseMetadata(t *testing.T) {
	payload := buildMetadata("foo.txt", 5, 128)
	assert.Len(t, payload, 128)
	assert.Equal(t, byte(0), payload[127])

	name, size, ok := parseMetadata(payload)
	assert.True(t, ok)
	assert.Equal(t, "foo.txt", name)
	assert.Equal(t, int64(5), size)
}

func TestParseMetadataTerminator(t *testing.T) {
	payload := make([]byte, 128)
	_, _, ok := parseMetadata(payload)
	assert.False(t, ok)
}

func TestParseMetadataMalformed(t *testing.T) {
	payload := make([]byte, 128)
	copy(payload, "justaname\x00")
	_, _, ok := parseMetadata(payload)
	assert.False(t, ok)
}
