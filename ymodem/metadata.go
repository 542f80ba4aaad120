package ymodem

import (
	"strconv"
	"strings"
)

// buildMetadata encodes the packet-0 payload for name/size as
// "<basename>\0<size-as-decimal-ascii>\0...", zero-padded to
// packetSize. Only name and size are populated; the optional
// mtime/mode/serial octal fields the format allows are left blank, as
// this library does not preserve those attributes.
func buildMetadata(name string, size int64, packetSize int) []byte {
	body := name + "\x00" + strconv.FormatInt(size, 10) + "\x00"
	buf := make([]byte, packetSize)
	copy(buf, body)
	return buf
}

// isTerminator reports whether a packet-0 payload is the all-zero batch
// terminator.
func isTerminator(payload []byte) bool {
	for _, b := range payload {
		if b != 0 {
			return false
		}
	}
	return true
}

// parseMetadata decodes a packet-0 payload into name and size. ok is false
// for the terminator packet or a malformed payload.
func parseMetadata(payload []byte) (name string, size int64, ok bool) {
	if isTerminator(payload) {
		return "", 0, false
	}

	fields := strings.SplitN(string(payload), "\x00", 3)
	if len(fields) < 2 || fields[0] == "" {
		return "", 0, false
	}
	sizeField := strings.TrimSpace(strings.SplitN(fields[1], " ", 2)[0])
	size, err := strconv.ParseInt(sizeField, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return fields[0], size, true
}
