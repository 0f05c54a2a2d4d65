package packetcodec

import (
	"errors"
	"fmt"
	"io"
)

// minReadSize is the spare capacity ReadFrom guarantees before reading.
const minReadSize = 4096

// Frame is one decoded frame: the packet id and the still-encoded fields.
type Frame struct {
	ID int32
	// Body holds the packet fields after the id. It aliases decoder memory and
	// is only valid until the next call on the Decoder.
	Body []byte
}

// Decoder splits a byte stream into frames and packets. Bytes are pushed with
// Queue or ReadFrom; TryNext and its variants either consume exactly one
// complete frame or, if the frame is still partial, consume nothing and
// return a nil packet with a nil error.
//
// Each connection owns its own Decoder; it is not safe for concurrent use.
// After an error the stream position is past the failing frame, but the
// decoder does not resynchronize: callers should treat the stream as broken.
type Decoder struct {
	buf         []byte
	cursor      int   // start of the unconsumed bytes in buf
	consumed    int64 // bytes consumed before buf[0], for error offsets
	compression bool
	registry    *Registry
	compressor  *Compressor
	inflated    []byte
	frame       Frame
	body        bodyReader
	r           Reader
}

// NewDecoder returns a Decoder dispatching packet ids through reg, or through
// DefaultRegistry if reg is nil. Compression starts disabled.
func NewDecoder(reg *Registry) *Decoder {
	if reg == nil {
		reg = DefaultRegistry
	}
	return &Decoder{registry: reg}
}

// SetCompression switches between plain and compressed frame layouts. It
// applies to the next frame decoded, including frames already queued.
func (d *Decoder) SetCompression(enabled bool) { d.compression = enabled }

// Compression reports whether compressed frames are expected.
func (d *Decoder) Compression() bool { return d.compression }

// Queue appends raw stream bytes. It never parses and never fails.
func (d *Decoder) Queue(b []byte) {
	d.compact(len(b))
	d.buf = append(d.buf, b...)
}

// ReadFrom performs one Read from r into the decoder's spare capacity and
// returns the number of bytes queued. It blocks only as long as r.Read does.
func (d *Decoder) ReadFrom(r io.Reader) (int64, error) {
	d.compact(minReadSize)
	if cap(d.buf)-len(d.buf) < minReadSize {
		d.buf = grow(d.buf, minReadSize)[:len(d.buf)]
	}
	n, err := r.Read(d.buf[len(d.buf):cap(d.buf)])
	if n < 0 {
		return 0, ErrInvalidWrite
	}
	d.buf = d.buf[:len(d.buf)+n]
	return int64(n), err
}

// Buffered returns the number of queued bytes not yet consumed.
func (d *Decoder) Buffered() int { return len(d.buf) - d.cursor }

// compact drops consumed bytes when the buffer is drained, or when the dead
// prefix is larger than what remains and n more bytes would not fit.
func (d *Decoder) compact(n int) {
	if d.cursor == 0 {
		return
	}
	live := len(d.buf) - d.cursor
	if live == 0 || (d.cursor >= live && cap(d.buf)-len(d.buf) < n) {
		copy(d.buf, d.buf[d.cursor:])
		d.buf = d.buf[:live]
		d.consumed += int64(d.cursor)
		d.cursor = 0
	}
}

// TryNextFrame peels one frame off the queued bytes. It returns nil, nil if
// the next frame has not fully arrived. The returned Frame is owned by the
// Decoder and is overwritten by the next call.
//
// A length prefix that is malformed, negative or above MaxPacketSize fails as
// soon as the prefix is readable, without waiting for the body it announces.
func (d *Decoder) TryNextFrame() (*Frame, error) {
	h, ok, err := d.nextFrame()
	if !ok || err != nil {
		return nil, err
	}
	d.frame.ID = h.id
	return &d.frame, nil
}

// TryNext decodes the next packet through the registry. It returns nil, nil
// if the next frame has not fully arrived. Length prefixes are checked as in
// TryNextFrame: a frame announced above MaxPacketSize is an error right away.
func (d *Decoder) TryNext() (Packet, error) {
	h, ok, err := d.nextFrame()
	if !ok || err != nil {
		return nil, err
	}
	pk, err := d.registry.New(h.id)
	if err != nil {
		return nil, h.fail(err)
	}
	if err := d.decodeFields(pk, d.frame.Body); err != nil {
		return nil, h.fail(err)
	}
	return pk, nil
}

// TryNextAs decodes the next packet into a new T, bypassing the registry.
// A frame carrying another packet id fails with ErrUnexpectedPacketID.
func TryNextAs[T any, P interface {
	*T
	Packet
}](d *Decoder) (*T, error) {
	h, ok, err := d.nextFrame()
	if !ok || err != nil {
		return nil, err
	}
	pk := P(new(T))
	if h.id != pk.ID() {
		return nil, h.fail(fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrUnexpectedPacketID, h.id, pk.ID()))
	}
	if err := d.decodeFields(pk, d.frame.Body); err != nil {
		return nil, h.fail(err)
	}
	return (*T)(pk), nil
}

// DecodeFrame decodes the fields of an already peeled frame into p.
// The frame id must match p.ID().
func (d *Decoder) DecodeFrame(f *Frame, p Packet) error {
	if f.ID != p.ID() {
		return fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrUnexpectedPacketID, f.ID, p.ID())
	}
	return d.decodeFields(p, f.Body)
}

// decodeFields runs p.ReadFields over body and requires it to consume body exactly.
func (d *Decoder) decodeFields(p Packet, body []byte) error {
	d.body.reset(body)
	d.r.reset(&d.body)

	err := p.ReadFields(&d.r)
	if err == nil {
		err = d.r.Err()
	}
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: packet fields need more than %d bytes", ErrTruncatedData, len(body))
	case err != nil:
		return err
	case d.body.remaining() > 0:
		return fmt.Errorf("%w: %d of %d bytes unread", ErrTrailingData, d.body.remaining(), len(body))
	}
	return nil
}

// frameHeader locates a frame in the stream for error reports.
type frameHeader struct {
	offset int64
	length int
	id     int32
}

func (h frameHeader) fail(err error) *FrameError {
	return &FrameError{Offset: h.offset, Length: h.length, ID: h.id, Err: err}
}

// nextFrame locates, consumes and unpacks one frame into d.frame.Body.
// ok is false, with a nil error, while the frame is incomplete.
func (d *Decoder) nextFrame() (h frameHeader, ok bool, err error) {
	data := d.buf[d.cursor:]
	h = frameHeader{offset: d.consumed + int64(d.cursor), length: -1, id: -1}

	frameLen, n, err := DecodeVarInt(data)
	if errors.Is(err, ErrIncompleteVarInt) {
		return h, false, nil
	}
	if err != nil {
		return h, false, h.fail(err)
	}
	h.length = int(frameLen)
	// A bad prefix leaves no frame boundary to skip to, so nothing is consumed.
	if frameLen < 0 {
		return h, false, h.fail(fmt.Errorf("%w: frame length %d", ErrNegativeLength, frameLen))
	}
	if frameLen > MaxPacketSize {
		return h, false, h.fail(fmt.Errorf("%w: frame length %d", ErrFrameTooLarge, frameLen))
	}
	if len(data)-n < int(frameLen) {
		return h, false, nil
	}

	packetBody := data[n : n+int(frameLen)]
	d.cursor += n + int(frameLen)

	if d.compression {
		if packetBody, err = d.inflate(packetBody); err != nil {
			return h, false, h.fail(err)
		}
	}

	id, idLen, err := DecodeVarInt(packetBody)
	if err != nil {
		if errors.Is(err, ErrIncompleteVarInt) {
			err = fmt.Errorf("%w: packet id", ErrTruncatedData)
		}
		return h, false, h.fail(err)
	}
	h.id = id
	d.frame.Body = packetBody[idLen:]
	return h, true, nil
}

// inflate unpacks a compressed-layout frame body into the packet body.
func (d *Decoder) inflate(frameBody []byte) ([]byte, error) {
	dataLen, n, err := DecodeVarInt(frameBody)
	if err != nil {
		if errors.Is(err, ErrIncompleteVarInt) {
			err = fmt.Errorf("%w: data length", ErrTruncatedData)
		}
		return nil, err
	}
	rest := frameBody[n:]

	switch {
	case dataLen == 0:
		return rest, nil
	case dataLen < 0:
		return nil, fmt.Errorf("%w: data length %d", ErrNegativeLength, dataLen)
	case dataLen > MaxPacketSize:
		return nil, fmt.Errorf("%w: data length %d", ErrFrameTooLarge, dataLen)
	}

	if d.compressor == nil {
		d.compressor = NewCompressor(DefaultCompressionLevel)
	}
	d.inflated, err = d.compressor.Decompress(d.inflated[:0], rest, int(dataLen))
	if err != nil {
		return nil, err
	}
	return d.inflated, nil
}
