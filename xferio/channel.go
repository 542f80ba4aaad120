// Package xferio supplies the byte-channel abstraction the transfer
// engines are driven through, plus a handful of concrete adapters: a
// timed wrapper over any io.ReadWriter (or net.Conn), an in-memory
// loopback pair for tests, and an SSH-session-backed channel.
//
// The engines in this module never talk to a transport directly — they
// only ever call Channel.Get and Channel.Put. That boundary is what keeps
// serial port discovery, TCP dialing, and SSH session setup external to
// the protocol state machines, per the library's scope.
package xferio

import "time"

// Channel is the byte-oriented full-duplex transport a protocol engine is
// driven over. Implementations own all buffering; the engines never read
// or write through anything else.
type Channel interface {
	// Get attempts to read exactly size bytes within timeout. On success
	// it returns the bytes read and ok=true. On timeout, EOF, or any
	// transport error it returns ok=false; the caller cannot distinguish
	// those cases and is not meant to — see the protocol
	Get(size int, timeout time.Duration) (data []byte, ok bool)

	// Put attempts to write data within timeout, returning the number of
	// bytes accepted and ok=true on success, or ok=false on timeout or
	// transport error.
	Put(data []byte, timeout time.Duration) (n int, ok bool)
}
