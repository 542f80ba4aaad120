package xferio

import "net"

// Pipe returns two connected Channels, each the other's peer, suitable for
// driving a sender and a receiver against each other in-process. Grounded
// on the loopback harness pattern in xx25-go-zmodem's loopback_test.go,
// backed here by net.Pipe so the usual timeout machinery in StreamChannel
// (which prefers real read/write deadlines) exercises its primary path
// rather than the goroutine fallback.
func Pipe() (a, b Channel) {
	connA, connB := net.Pipe()
	return NewStreamChannel(connA, nil), NewStreamChannel(connB, nil)
}
