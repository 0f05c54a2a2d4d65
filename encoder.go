package packetcodec

import (
	"bytes"
	"fmt"
	"io"
)

const (
	// NoCompression disables compression when passed to Encoder.SetCompression.
	NoCompression = -1

	// MaxPacketSize is the largest frame length, and the largest uncompressed
	// packet body, either side will produce or accept.
	MaxPacketSize = 2097152
)

// Encoder accumulates framed packets in one buffer. Each connection owns its
// own Encoder; it is not safe for concurrent use.
//
// AppendPacket is transactional: a packet is fully serialized into scratch
// space before any byte reaches the output buffer, so a failing packet leaves
// the buffer exactly as it was.
type Encoder struct {
	buf        []byte
	scratch    bytes.Buffer
	w          Writer
	zbuf       []byte
	threshold  int
	level      int
	compressor *Compressor
}

// NewEncoder returns an Encoder with compression disabled.
func NewEncoder() *Encoder {
	e := &Encoder{threshold: NoCompression, level: DefaultCompressionLevel}
	e.w = newBufferWriter(&e.scratch)
	return e
}

// SetCompression sets the compression threshold. Packet bodies longer than
// threshold bytes are compressed; shorter ones are sent with a zero data length.
// A negative threshold disables compression and the data length field altogether.
func (e *Encoder) SetCompression(threshold int) {
	if threshold < 0 {
		threshold = NoCompression
	}
	e.threshold = threshold
}

// Compression returns the current threshold, or NoCompression.
func (e *Encoder) Compression() int { return e.threshold }

// SetCompressionLevel sets the zlib level used for compressed frames.
func (e *Encoder) SetCompressionLevel(level int) {
	if level != e.level {
		e.level = level
		e.compressor = nil
	}
}

// AppendPacket frames p and appends it to the output buffer.
func (e *Encoder) AppendPacket(p Packet) error {
	body, err := e.encodeBody(p)
	if err != nil {
		return err
	}
	start := len(e.buf)
	if e.buf, err = e.appendFrame(e.buf, body); err != nil {
		e.buf = e.buf[:start]
		return fmt.Errorf("packetcodec: framing packet 0x%02x: %w", p.ID(), err)
	}
	return nil
}

// PrependPacket frames p and inserts it before everything already buffered.
func (e *Encoder) PrependPacket(p Packet) error {
	start := len(e.buf)
	if err := e.AppendPacket(p); err != nil {
		return err
	}
	frameLen := len(e.buf) - start
	if start == 0 {
		return nil
	}
	// Park the frame in zbuf, shift the older frames right, then copy it in front.
	e.zbuf = append(e.zbuf[:0], e.buf[start:]...)
	copy(e.buf[frameLen:], e.buf[:start])
	copy(e.buf, e.zbuf)
	return nil
}

// AppendBytes appends already framed bytes verbatim.
func (e *Encoder) AppendBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// Bytes returns the buffered frames. The slice is valid until the next
// modification of the Encoder.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of buffered bytes.
func (e *Encoder) Len() int { return len(e.buf) }

// Clear empties the output buffer and keeps its capacity.
func (e *Encoder) Clear() { e.buf = e.buf[:0] }

// Take returns the buffered frames and hands their ownership to the caller.
// The Encoder starts over with a new buffer.
func (e *Encoder) Take() []byte {
	b := e.buf
	e.buf = nil
	return b
}

// WriteTo writes the buffered frames to w and removes what was written.
// On a short write the unwritten tail stays buffered.
func (e *Encoder) WriteTo(w io.Writer) (int64, error) {
	if len(e.buf) == 0 {
		return 0, nil
	}
	n, err := w.Write(e.buf)
	if n < 0 || n > len(e.buf) {
		return 0, ErrInvalidWrite
	}
	rest := copy(e.buf, e.buf[n:])
	e.buf = e.buf[:rest]
	if err == nil && rest > 0 {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// encodeBody serializes VarInt(id) followed by the fields into scratch.
func (e *Encoder) encodeBody(p Packet) ([]byte, error) {
	e.scratch.Reset()
	e.w.reset()
	if s, ok := p.(Sizer); ok {
		e.scratch.Grow(MaxVarIntSize + s.Size())
	}

	e.w.WriteVarInt(p.ID())
	if err := p.WriteFields(&e.w); err != nil {
		return nil, fmt.Errorf("packetcodec: encoding packet 0x%02x: %w", p.ID(), err)
	}
	if err := e.w.Err(); err != nil {
		return nil, fmt.Errorf("packetcodec: encoding packet 0x%02x: %w", p.ID(), err)
	}
	return e.scratch.Bytes(), nil
}

func (e *Encoder) appendFrame(dst, body []byte) ([]byte, error) {
	if e.threshold >= 0 && len(body) > e.threshold && e.compressor == nil {
		e.compressor = NewCompressor(e.level)
	}
	return appendFrame(dst, body, e.threshold, e.compressor, &e.zbuf)
}

// appendFrame appends one frame carrying body to dst. Nothing is appended
// unless the whole frame is valid.
func appendFrame(dst, body []byte, threshold int, c *Compressor, zbuf *[]byte) ([]byte, error) {
	dataLen := len(body)
	if dataLen > MaxPacketSize {
		return dst, fmt.Errorf("%w: packet body is %d bytes", ErrFrameTooLarge, dataLen)
	}

	switch {
	case threshold < 0:
		dst = AppendVarInt(dst, int32(dataLen))
		return append(dst, body...), nil

	case dataLen > threshold:
		z, err := c.Compress((*zbuf)[:0], body)
		*zbuf = z
		if err != nil {
			return dst, err
		}
		frameLen := VarIntSize(int32(dataLen)) + len(z)
		if frameLen > MaxPacketSize {
			return dst, fmt.Errorf("%w: compressed frame is %d bytes", ErrFrameTooLarge, frameLen)
		}
		dst = AppendVarInt(dst, int32(frameLen))
		dst = AppendVarInt(dst, int32(dataLen))
		return append(dst, z...), nil

	default:
		frameLen := 1 + dataLen
		if frameLen > MaxPacketSize {
			return dst, fmt.Errorf("%w: frame is %d bytes", ErrFrameTooLarge, frameLen)
		}
		dst = AppendVarInt(dst, int32(frameLen))
		dst = append(dst, 0)
		return append(dst, body...), nil
	}
}
