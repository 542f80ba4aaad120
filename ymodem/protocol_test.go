package ymodem_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kagelabs/xfer/xferio"
	"github.com/kagelabs/xfer/xmodem"
	"github.com/kagelabs/xfer/ymodem"
)

func fastConfig() *xmodem.Config {
	cfg := xmodem.DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.Delay = 10 * time.Millisecond
	cfg.Retry = 10
	return cfg
}

func TestYMODEMBatchRoundTrip(t *testing.T) {
	files := []ymodem.FileEntry{
		{Name: "foo.txt", Size: 5, Reader: bytes.NewReader([]byte("hello"))},
		{Name: "bar.bin", Size: 1500, Reader: bytes.NewReader(bytes.Repeat([]byte{0x7E}, 1500))},
	}

	a, b := xferio.Pipe()

	var sendErr, recvErr error
	var received []ymodem.ReceivedFile
	var fileCount int

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sendErr = ymodem.New(a, fastConfig()).Send(context.Background(), files)
	}()
	go func() {
		defer wg.Done()
		fileCount, recvErr = ymodem.New(b, fastConfig()).Recv(context.Background(), func(f ymodem.ReceivedFile) error {
			received = append(received, f)
			return nil
		})
	}()
	wg.Wait()

	require.NoError(t, sendErr)
	require.NoError(t, recvErr)
	require.Equal(t, 2, fileCount)
	require.Len(t, received, 2)

	require.Equal(t, "foo.txt", received[0].Name)
	require.Equal(t, []byte("hello"), received[0].Data)

	require.Equal(t, "bar.bin", received[1].Name)
	require.Equal(t, bytes.Repeat([]byte{0x7E}, 1500), received[1].Data)
}

func TestYMODEMEmptyBatch(t *testing.T) {
	a, b := xferio.Pipe()

	var sendErr, recvErr error
	var fileCount int

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sendErr = ymodem.New(a, fastConfig()).Send(context.Background(), nil)
	}()
	go func() {
		defer wg.Done()
		fileCount, recvErr = ymodem.New(b, fastConfig()).Recv(context.Background(), func(ymodem.ReceivedFile) error {
			return nil
		})
	}()
	wg.Wait()

	require.NoError(t, sendErr)
	require.NoError(t, recvErr)
	require.Equal(t, 0, fileCount)
}
