package zmodem

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagelabs/xfer/internal/crc"
)

// scriptChannel replays a fixed byte sequence for Get and discards Put;
// it models the deterministic half of a two-party exchange where every
// response the real peer would produce (ZRPOS, ZACK, …) has no bearing
// on what it sends next, letting a test script be built upfront instead
// of driven interactively over a real pipe.
type scriptChannel struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func newScriptChannel(script []byte) *scriptChannel {
	return &scriptChannel{in: bytes.NewReader(script)}
}

func (s *scriptChannel) Get(size int, timeout time.Duration) ([]byte, bool) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(s.in, buf); err != nil {
		return nil, false
	}
	return buf, true
}

func (s *scriptChannel) Put(data []byte, timeout time.Duration) (int, bool) {
	s.out.Write(data)
	return len(data), true
}

// subpacketBytes builds the wire encoding of one data subpacket: escaped
// payload, ZDLE + terminator, then an escaped CRC trailer computed over
// payload+terminator — mirroring SubpacketReader.ReadSubpacket in
// reverse so the test stays grounded in this package's own wire format
// rather than a hand-maintained duplicate.
func subpacketBytes(payload []byte, terminator byte, use32 bool) []byte {
	out := escape(payload)
	out = append(out, ZDLE, terminator)

	checked := append(append([]byte{}, payload...), terminator)
	if use32 {
		sum := crc.CRC32(0, checked)
		trailer := []byte{byte(sum), byte(sum >> 8), byte(sum >> 16), byte(sum >> 24)}
		for _, b := range trailer {
			out = append(out, escapeByte(b)...)
		}
	} else {
		sum := crc.CRC16(0, checked)
		trailer := []byte{byte(sum >> 8), byte(sum)}
		for _, b := range trailer {
			out = append(out, escapeByte(b)...)
		}
	}
	return out
}

// nopCloseBuffer adapts a bytes.Buffer into the io.WriteCloser Config.Open
// must return, tracking the name/mtime it was opened with for assertions.
type nopCloseBuffer struct {
	bytes.Buffer
	name  string
	mtime time.Time
}

func (b *nopCloseBuffer) Close() error { return nil }

func TestZMODEMReceiveOneFile(t *testing.T) {
	content := []byte("hello zmodem world")
	metadata := append([]byte("greeting.txt\x00"), []byte(strconv.Itoa(len(content))+"\x00")...)

	var script []byte
	script = append(script, encodeHexHeader(ZFILE, Header{})...)
	script = append(script, subpacketBytes(metadata, ZCRCW, false)...)
	script = append(script, encodeHexHeader(ZDATA, positionHeader(0))...)
	script = append(script, subpacketBytes(content, ZCRCE, false)...)
	script = append(script, encodeHexHeader(ZEOF, positionHeader(uint32(len(content))))...)
	script = append(script, encodeHexHeader(ZFIN, Header{})...)
	script = append(script, []byte("OO")...)

	ch := newScriptChannel(script)
	cfg := DefaultConfig()
	var opened []*nopCloseBuffer
	cfg.Open = func(name string, size int64, mtime time.Time) (io.WriteCloser, error) {
		buf := &nopCloseBuffer{name: name, mtime: mtime}
		opened = append(opened, buf)
		return buf, nil
	}

	count, err := New(ch, cfg).Recv(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, opened, 1)
	assert.Equal(t, "greeting.txt", opened[0].name)
	assert.Equal(t, content, opened[0].Bytes())
}

func TestZMODEMSkipsOfferedFile(t *testing.T) {
	content := []byte("skip me")
	metadata := append([]byte("skip.txt\x00"), []byte(strconv.Itoa(len(content))+"\x00")...)

	var script []byte
	script = append(script, encodeHexHeader(ZFILE, Header{})...)
	script = append(script, subpacketBytes(metadata, ZCRCW, false)...)
	script = append(script, encodeHexHeader(ZFIN, Header{})...)
	script = append(script, []byte("OO")...)

	ch := newScriptChannel(script)
	cfg := DefaultConfig()
	cfg.OnFileOffer = func(name string, size int64) bool { return false }
	cfg.Open = func(name string, size int64, mtime time.Time) (io.WriteCloser, error) {
		t.Fatal("Open should not be called for a skipped file")
		return nil, nil
	}

	count, err := New(ch, cfg).Recv(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
