package zmodem

import (
	"strconv"
	"strings"
	"time"
)

// parseFileMetadata decodes a ZFILE subpacket payload: bytes up to the
// first NUL are the filename; the following space-separated tokens are
// (in order) size (decimal), mtime (octal), mode (octal, ignored), serial
// (octal, ignored). Any field that fails to parse is treated as absent.
func parseFileMetadata(payload []byte) (name string, size int64, mtime time.Time) {
	nul := strings.IndexByte(string(payload), 0)
	if nul < 0 {
		return string(payload), 0, time.Time{}
	}
	name = string(payload[:nul])

	rest := strings.TrimRight(string(payload[nul+1:]), "\x00")
	fields := strings.Fields(rest)

	if len(fields) > 0 {
		if n, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
			size = n
		}
	}
	if len(fields) > 1 {
		if secs, err := strconv.ParseInt(fields[1], 8, 64); err == nil {
			mtime = time.Unix(secs, 0)
		}
	}
	return name, size, mtime
}
