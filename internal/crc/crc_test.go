package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum8(t *testing.T) {
	data := []byte("hello world")
	var want byte
	for _, b := range data {
		want += b
	}
	assert.Equal(t, want, Checksum8(0, data))
}

func TestChecksum8Incremental(t *testing.T) {
	data := []byte("hello world")
	whole := Checksum8(0, data)
	split := Checksum8(Checksum8(0, data[:4]), data[4:])
	assert.Equal(t, whole, split)
}

func TestCRC16KnownVector(t *testing.T) {
	assert.Equal(t, uint16(0xC362), CRC16(0, []byte("hello")))
}

func TestCRC16Incremental(t *testing.T) {
	world := CRC16(0, []byte("world"))
	combined := CRC16(world, []byte("hello"))
	assert.Equal(t, CRC16(0, []byte("worldhello")), combined)
}

func TestCRC32KnownVector(t *testing.T) {
	assert.Equal(t, uint32(0xCBF43926), CRC32(0, []byte("123456789")))
}

func TestCRC32Incremental(t *testing.T) {
	data := []byte("Hello, ZMODEM!")
	whole := CRC32(0, data)
	split := CRC32(CRC32(0, data[:5]), data[5:])
	assert.Equal(t, whole, split)
}

func TestVerifyTrailerCRC(t *testing.T) {
	payload := AppendTrailer([]byte("payload-data"), true)
	body, ok := VerifyTrailer(payload, true)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload-data"), body)
}

func TestVerifyTrailerChecksum(t *testing.T) {
	payload := AppendTrailer([]byte("payload-data"), false)
	body, ok := VerifyTrailer(payload, false)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload-data"), body)
}

func TestVerifyTrailerRejectsCorruption(t *testing.T) {
	payload := AppendTrailer([]byte("payload-data"), true)
	payload[0] ^= 0xFF
	_, ok := VerifyTrailer(payload, true)
	assert.False(t, ok)
}
