package xmodem_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagelabs/xfer/xferio"
	"github.com/kagelabs/xfer/xmodem"
)

func fastConfig() *xmodem.Config {
	cfg := xmodem.DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.Delay = 10 * time.Millisecond
	cfg.Retry = 10
	return cfg
}

func runPair(t *testing.T, send func(a xferio.Channel) error, recv func(b xferio.Channel) ([]byte, error)) []byte {
	t.Helper()
	a, b := xferio.Pipe()

	var sendErr error
	var recvErr error
	var got []byte

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sendErr = send(a)
	}()
	go func() {
		defer wg.Done()
		got, recvErr = recv(b)
	}()
	wg.Wait()

	require.NoError(t, sendErr)
	require.NoError(t, recvErr)
	return got
}

func TestXMODEMRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 10)

	got := runPair(t, func(a xferio.Channel) error {
		return xmodem.New(a, fastConfig()).Send(context.Background(), payload)
	}, func(b xferio.Channel) ([]byte, error) {
		return xmodem.New(b, fastConfig()).Recv(context.Background())
	})

	// Plain XMODEM pads the final 128-byte packet with zero bytes; only
	// the prefix up to len(payload) is meaningful.
	require.True(t, len(got) >= len(payload))
	assert.Equal(t, payload, got[:len(payload)])
}

func TestXMODEMCRCRoundTrip(t *testing.T) {
	payload := []byte("short message, one packet")

	got := runPair(t, func(a xferio.Channel) error {
		return xmodem.NewCRC(a, fastConfig()).Send(context.Background(), payload)
	}, func(b xferio.Channel) ([]byte, error) {
		return xmodem.NewCRC(b, fastConfig()).Recv(context.Background())
	})

	require.True(t, len(got) >= len(payload))
	assert.Equal(t, payload, got[:len(payload)])
}

func TestXMODEM1KRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 1024*3+37)

	got := runPair(t, func(a xferio.Channel) error {
		return xmodem.New1K(a, fastConfig()).Send(context.Background(), payload)
	}, func(b xferio.Channel) ([]byte, error) {
		return xmodem.New1K(b, fastConfig()).Recv(context.Background())
	})

	require.True(t, len(got) >= len(payload))
	assert.Equal(t, payload, got[:len(payload)])
}

func TestXMODEMProgressCallback(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 300)

	var sentTotal, recvTotal int64
	sendCfg := fastConfig()
	sendCfg.OnProgress = func(n int64) { sentTotal = n }
	recvCfg := fastConfig()
	recvCfg.OnProgress = func(n int64) { recvTotal = n }

	runPair(t, func(a xferio.Channel) error {
		return xmodem.New(a, sendCfg).Send(context.Background(), payload)
	}, func(b xferio.Channel) ([]byte, error) {
		return xmodem.New(b, recvCfg).Recv(context.Background())
	})

	assert.Equal(t, int64(len(payload)), sentTotal)
	assert.True(t, recvTotal > 0)
}
