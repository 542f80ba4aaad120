package zmodem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagelabs/xfer/xferio"
)

func TestEscapeRoundTrip(t *testing.T) {
	for b := 0; b < 256; b++ {
		encoded := escapeByte(byte(b))
		a, recv := xferio.Pipe()

		done := make(chan struct{})
		var got Token
		var err error
		go func() {
			defer close(done)
			got, err = NewDecoder(recv, time.Second).Next()
		}()

		a.Put(encoded, time.Second)
		<-done

		require.NoError(t, err)
		assert.Equal(t, TokenData, got.Kind)
		assert.Equal(t, byte(b), got.Byte)
	}
}

func TestDecoderTerminators(t *testing.T) {
	for _, code := range []byte{ZCRCE, ZCRCG, ZCRCQ, ZCRCW} {
		a, recv := xferio.Pipe()
		done := make(chan struct{})
		var got Token
		var err error
		go func() {
			defer close(done)
			got, err = NewDecoder(recv, time.Second).Next()
		}()
		a.Put([]byte{ZDLE, code}, time.Second)
		<-done

		require.NoError(t, err)
		assert.Equal(t, TokenTerminator, got.Kind)
		assert.Equal(t, code, got.Byte)
	}
}

func TestDecoderCancel(t *testing.T) {
	a, recv := xferio.Pipe()
	done := make(chan struct{})
	var got Token
	var err error
	go func() {
		defer close(done)
		got, err = NewDecoder(recv, time.Second).Next()
	}()
	a.Put([]byte{ZDLE, CAN, CAN, CAN, CAN, CAN}, time.Second)
	<-done

	require.NoError(t, err)
	assert.Equal(t, TokenCancel, got.Kind)
}
