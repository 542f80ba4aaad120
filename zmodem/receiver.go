package zmodem

import (
	"context"

	"github.com/kagelabs/xfer/xfererr"
	"github.com/kagelabs/xfer/xferio"
	"github.com/kagelabs/xfer/xferlog"
)

// Receiver drives the ZMODEM receive-only state machine: await connection,
// accept or skip each offered file, pull its data subpackets to EOF, then
// tear down on ZFIN. Grounded on the classic rz/sz Receiver in receiver.go,
// with the ReaderWithTimeout/io.Writer pipeline replaced by xferio.Channel
// and HeaderReader/SubpacketReader, and disk I/O replaced by the
// Config.Open callback.
type Receiver struct {
	ch      xferio.Channel
	headers *HeaderReader
	cfg     *Config
	logger  xferlog.Logger
}

// NewReceiver constructs a Receiver over ch. A nil cfg uses
// DefaultConfig().
func NewReceiver(ch xferio.Channel, cfg *Config) *Receiver {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = xferlog.Noop{}
	}
	return &Receiver{
		ch:      ch,
		headers: NewHeaderReader(ch, cfg.Timeout),
		cfg:     cfg,
		logger:  logger,
	}
}

// Recv runs the receiver to completion and returns the number of files
// received. Each accepted file's bytes are streamed directly to the
// io.WriteCloser returned by cfg.Open as its subpackets decode, so a file
// is never held in memory in full.
func (r *Receiver) Recv(ctx context.Context) (int, error) {
	frame, err := r.awaitConnection(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	errorBudget := r.cfg.Retry
	for {
		switch frame.Type {
		case ZFILE:
			accepted, err := r.receiveFile(ctx, frame)
			if err != nil {
				return count, err
			}
			if accepted {
				count++
			}
		case ZFIN:
			return count, r.close(ctx)
		default:
			r.logger.Debug("zmodem: ignoring %s in AwaitingFileOffer", frameTypeName(int(frame.Type)))
			r.sendHeader(ZCOMPL, positionHeader(0))
		}

		frame, err = r.nextHeader(&errorBudget)
		if err != nil {
			return count, err
		}
	}
}

// nextHeader reads the next header, retrying with a ZNAK on a malformed
// frame until errorBudget (reset to cfg.Retry on every clean read) is
// exhausted.
func (r *Receiver) nextHeader(errorBudget *int) (HeaderFrame, error) {
	for {
		frame, err := r.headers.ReadHeader()
		if err != nil {
			if xfererr.Is(err, xfererr.InvalidHeader) {
				*errorBudget--
				if *errorBudget <= 0 {
					return HeaderFrame{}, err
				}
				r.sendHeader(ZNAK, positionHeader(0))
				continue
			}
			return HeaderFrame{}, err
		}
		*errorBudget = r.cfg.Retry
		return frame, nil
	}
}

// awaitConnection repeatedly emits ZRINIT until the peer responds with
// anything other than a timeout or ZRQINIT, and returns that response so
// the caller can dispatch it instead of reading a fresh header that was
// never sent — the first non-ZRQINIT frame here is already the ZFILE
// offer (or ZFIN) that starts the next state.
func (r *Receiver) awaitConnection(ctx context.Context) (HeaderFrame, error) {
	for attempt := 0; attempt < r.cfg.Retry; attempt++ {
		if err := ctxDone(ctx); err != nil {
			return HeaderFrame{}, err
		}
		r.sendHeader(ZRINIT, Header{localCapabilities, 0, 0, 0})

		headers := r.headers
		if r.cfg.Delay > 0 {
			headers = NewHeaderReader(r.ch, r.cfg.Delay)
		}
		frame, err := headers.ReadHeader()
		if err != nil {
			continue
		}
		if frame.Type == ZRQINIT {
			continue
		}
		return frame, nil
	}
	return HeaderFrame{}, xfererr.New(xfererr.NegotiationFailed, "no connection after %d attempts", r.cfg.Retry)
}

// receiveFile implements the ReceivingFile state: parse the ZFILE
// metadata subpacket, consult OnFileOffer, then loop on ZDATA frames
// until ZEOF at the expected size. fileFrame.Use32 selects the CRC width
// for every subpacket within this file, since the sender picks ZBIN vs
// ZBIN32 once per header and the metadata subpacket immediately follows
// ZFILE in the same encoding.
func (r *Receiver) receiveFile(ctx context.Context, fileFrame HeaderFrame) (accepted bool, err error) {
	use32 := fileFrame.Use32
	sub, err := NewSubpacketReader(r.ch, r.cfg.Timeout, use32).ReadSubpacket()
	if err != nil {
		return false, err
	}

	name, size, mtime := parseFileMetadata(sub.Payload)
	if r.cfg.OnFileOffer != nil && !r.cfg.OnFileOffer(name, size) {
		r.sendHeader(ZSKIP, positionHeader(0))
		return false, nil
	}
	if r.cfg.Open == nil {
		return false, xfererr.New(xfererr.OpenFailure, "zmodem: no Open configured to receive %s", name)
	}
	dest, err := r.cfg.Open(name, size, mtime)
	if err != nil {
		return false, xfererr.New(xfererr.OpenFailure, "zmodem: open %s: %v", name, err)
	}
	defer dest.Close()

	var written int64
	r.sendHeader(ZRPOS, positionHeader(uint32(written)))

	for {
		frame, err := r.headers.ReadHeader()
		if err != nil {
			return false, err
		}
		if frame.Type != ZDATA {
			if frame.Type == ZEOF && frame.Position() == uint32(written) {
				break
			}
			continue
		}
		if frame.Position() != uint32(written) {
			r.sendHeader(ZRPOS, positionHeader(uint32(written)))
			continue
		}

		for {
			sub, err := NewSubpacketReader(r.ch, r.cfg.Timeout, use32).ReadSubpacket()
			if err != nil {
				return false, err
			}
			payload := sub.Payload
			if written+int64(len(payload)) > size {
				payload = payload[:size-written]
			}
			if _, werr := dest.Write(payload); werr != nil {
				return false, xfererr.New(xfererr.OpenFailure, "zmodem: write %s: %v", name, werr)
			}
			written += int64(len(payload))
			if cb := r.cfg.OnProgress; cb != nil {
				cb(written)
			}
			if sub.AckExpected {
				r.sendHeader(ZACK, positionHeader(uint32(written)))
			}
			if sub.FrameEnds {
				break
			}
		}
	}

	return true, nil
}

// close implements the Closing state: send ZFIN, then read raw bytes
// until the "Over and Out" ('O' 'O') sequence.
func (r *Receiver) close(ctx context.Context) error {
	r.sendHeader(ZFIN, positionHeader(0))

	consecutiveO := 0
	for attempt := 0; attempt < r.cfg.Retry*4; attempt++ {
		data, ok := r.ch.Get(1, r.cfg.Timeout)
		if !ok {
			return xfererr.New(xfererr.ChannelFailure, "close: timeout awaiting Over-and-Out")
		}
		if data[0] == 'O' {
			consecutiveO++
			if consecutiveO == 2 {
				return nil
			}
		} else {
			consecutiveO = 0
		}
	}
	return xfererr.New(xfererr.ChannelFailure, "close: Over-and-Out not observed")
}

func (r *Receiver) sendHeader(frameType byte, hdr Header) {
	r.ch.Put(encodeHexHeader(frameType, hdr), r.cfg.Timeout)
}

func ctxDone(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
