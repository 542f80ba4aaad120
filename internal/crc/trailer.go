package crc

// VerifyTrailer checks the checksum/CRC-16 trailer appended to payload and,
// on success, returns the payload with the trailer stripped. crcMode
// selects a two-byte big-endian CRC-16 trailer when true, a one-byte
// 8-bit additive checksum trailer when false.
func VerifyTrailer(payload []byte, crcMode bool) (data []byte, ok bool) {
	if crcMode {
		if len(payload) < 2 {
			return nil, false
		}
		body := payload[:len(payload)-2]
		want := uint16(payload[len(payload)-2])<<8 | uint16(payload[len(payload)-1])
		return body, CRC16(0, body) == want
	}

	if len(payload) < 1 {
		return nil, false
	}
	body := payload[:len(payload)-1]
	want := payload[len(payload)-1]
	return body, Checksum8(0, body) == want
}

// AppendTrailer appends the checksum/CRC-16 trailer for data, selecting a
// two-byte big-endian CRC-16 when crcMode is true or a one-byte checksum
// otherwise.
func AppendTrailer(data []byte, crcMode bool) []byte {
	if crcMode {
		crc := CRC16(0, data)
		return append(append([]byte{}, data...), byte(crc>>8), byte(crc))
	}
	return append(append([]byte{}, data...), Checksum8(0, data))
}
