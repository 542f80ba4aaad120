package zmodem

import (
	"time"

	"github.com/kagelabs/xfer/internal/crc"
	"github.com/kagelabs/xfer/xfererr"
	"github.com/kagelabs/xfer/xferio"
)

// Subpacket is one data subpacket read from a ZDATA frame.
type Subpacket struct {
	Payload []byte

	// Terminator is the ZCRC* code that ended this subpacket.
	Terminator byte

	// AckExpected is true for ZCRCQ/ZCRCW: the receiver must reply with
	// a ZACK at the current position.
	AckExpected bool

	// FrameEnds is true for ZCRCE/ZCRCW: no further subpackets follow in
	// this ZDATA frame; the next thing on the wire is a header.
	FrameEnds bool
}

// SubpacketReader reads ZDLE-encoded data subpackets: ZDLE-decoded bytes
// accumulate into the payload until a token carrying the terminator tag
// arrives. Implements the functionality the classic rz/sz retrieved
// sources referenced as _recv_16_data but never defined.
type SubpacketReader struct {
	dec   *Decoder
	use32 bool
}

// NewSubpacketReader wraps ch for subpacket reads bounded by timeout.
// use32 selects the trailing CRC-32 vs CRC-16 per the frame's encoding.
func NewSubpacketReader(ch xferio.Channel, timeout time.Duration, use32 bool) *SubpacketReader {
	return &SubpacketReader{dec: NewDecoder(ch, timeout), use32: use32}
}

// ReadSubpacket reads one subpacket and validates its trailing CRC over
// the payload plus terminator byte, matching the original lrzsz wire
// format (the CRC covers the terminator code, not just the data).
func (r *SubpacketReader) ReadSubpacket() (Subpacket, error) {
	var payload []byte
	for {
		tok, err := r.dec.Next()
		if err != nil {
			return Subpacket{}, err
		}
		if tok.Kind == TokenCancel {
			return Subpacket{}, xfererr.New(xfererr.PeerCancelled, "subpacket: peer cancelled")
		}
		if tok.Kind == TokenData {
			payload = append(payload, tok.Byte)
			continue
		}

		// TokenTerminator: read the trailing CRC, which covers the
		// payload followed by the terminator byte itself.
		checked := append(append([]byte{}, payload...), tok.Byte)
		if r.use32 {
			crcBytes, err := r.readRawCRC(4)
			if err != nil {
				return Subpacket{}, err
			}
			want := uint32(crcBytes[0]) | uint32(crcBytes[1])<<8 | uint32(crcBytes[2])<<16 | uint32(crcBytes[3])<<24
			if crc.CRC32(0, checked) != want {
				return Subpacket{}, xfererr.New(xfererr.TrailerInvalid, "subpacket: crc32 mismatch")
			}
		} else {
			crcBytes, err := r.readRawCRC(2)
			if err != nil {
				return Subpacket{}, err
			}
			want := uint16(crcBytes[0])<<8 | uint16(crcBytes[1])
			if crc.CRC16(0, checked) != want {
				return Subpacket{}, xfererr.New(xfererr.TrailerInvalid, "subpacket: crc16 mismatch")
			}
		}

		return Subpacket{
			Payload:     payload,
			Terminator:  tok.Byte,
			AckExpected: tok.Byte == ZCRCQ || tok.Byte == ZCRCW,
			FrameEnds:   tok.Byte == ZCRCE || tok.Byte == ZCRCW,
		}, nil
	}
}

// readRawCRC reads n ZDLE-decoded bytes that are known to be a CRC
// trailer (never a terminator code themselves).
func (r *SubpacketReader) readRawCRC(n int) ([]byte, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		tok, err := r.dec.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokenData {
			return nil, xfererr.New(xfererr.TrailerInvalid, "subpacket: unexpected terminator inside crc trailer")
		}
		out[i] = tok.Byte
	}
	return out, nil
}
