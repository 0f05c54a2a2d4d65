package packetcodec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

type source interface {
	io.Reader
	io.ByteReader
}

// Reader deserializes packet fields. It tracks the first error; subsequent
// reads become no-ops and leave their destinations untouched.
type Reader struct {
	r       source
	count   int64 // total bytes read
	err     error // first error encountered.
	order   binary.ByteOrder
	scratch [8]byte
}

// NewReaderSize creates a new Reader. Sources that already support ReadByte
// are read directly; any other io.Reader is buffered with the given size.
func NewReaderSize(r io.Reader, size int) (*Reader, error) {
	if r == nil {
		return nil, ErrNilIO
	}

	switch reader := r.(type) {
	case *Reader:
		return &Reader{r: reader.r, order: Order}, nil
	case source:
		return &Reader{r: reader, order: Order}, nil
	}

	return &Reader{r: bufio.NewReaderSize(r, size), order: Order}, nil
}

// NewReader creates a new Reader with a default buffer size.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderSize(r, 0)
}

// reset points the Reader at a new source and clears its state.
func (r *Reader) reset(src source) {
	r.r = src
	r.count = 0
	r.err = nil
	if r.order == nil {
		r.order = Order
	}
}

// Read implements the io.Reader interface.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.r.Read(p)
	r.count += int64(n)
	r.setError(err)
	return n, r.err
}

func (r *Reader) Count() int64 { return r.count }
func (r *Reader) Err() error   { return r.err }
func (r *Reader) IsEOF() bool  { return r.err == io.EOF }

// Fail records err as the Reader's error if none is set yet.
func (r *Reader) Fail(err error) { r.setError(err) }

// setError records the first non-nil error.
func (r *Reader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Result returns the total bytes read and the final error state.
func (r *Reader) Result() (int64, error) {
	return r.count, r.err
}

// readFull reads exactly len(dest) bytes into dest.
func (r *Reader) readFull(dest []byte) bool {
	if r.err != nil {
		return false
	}
	n, err := io.ReadFull(r.r, dest)
	r.count += int64(n)
	if err != nil {
		if err == io.EOF {
			// To provide a more specific error for callers;
			// a partial read is different from a clean end-of-stream.
			err = io.ErrUnexpectedEOF
		}
		r.err = err
		return false
	}
	return true
}

// ReadBytes reads n bytes and returns a new byte slice.
func (r *Reader) ReadBytes(n int) []byte {
	if n <= 0 || !r.fits(n) {
		return nil
	}
	buf := make([]byte, n)
	if !r.readFull(buf) {
		return nil
	}
	return buf
}

// ReadBytesTo fills dest completely.
func (r *Reader) ReadBytesTo(dest []byte) {
	if len(dest) == 0 {
		return
	}
	r.readFull(dest)
}

// fits reports whether n more bytes can be read without running past the end
// of an in-memory source. It guards allocations sized by untrusted prefixes.
func (r *Reader) fits(n int) bool {
	if r.err != nil {
		return false
	}
	if body, ok := r.r.(*bodyReader); ok && n > body.remaining() {
		r.err = fmt.Errorf("%w: need %d bytes, %d remain", ErrTruncatedData, n, body.remaining())
		return false
	}
	return true
}

// --- Primitive Read Operations ---

func (r *Reader) ReadBool(dest *bool) {
	var b uint8
	r.ReadUint8(&b)
	if r.err != nil {
		return
	}
	if b > 1 {
		r.err = fmt.Errorf("%w: 0x%02x", ErrInvalidBool, b)
		return
	}
	*dest = b == 1
}

func (r *Reader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	b, err := r.r.ReadByte()
	if err == nil {
		r.count++
	} else {
		r.err = err
	}
	return b, err
}

func (r *Reader) ReadUint8(dest *uint8) {
	if b, err := r.ReadByte(); err == nil {
		*dest = b
	}
}

func (r *Reader) ReadInt8(dest *int8) {
	if b, err := r.ReadByte(); err == nil {
		*dest = int8(b)
	}
}

func (r *Reader) ReadUint16(dest *uint16) {
	if r.readFull(r.scratch[:2]) {
		*dest = r.order.Uint16(r.scratch[:2])
	}
}

func (r *Reader) ReadUint32(dest *uint32) {
	if r.readFull(r.scratch[:4]) {
		*dest = r.order.Uint32(r.scratch[:4])
	}
}

func (r *Reader) ReadUint64(dest *uint64) {
	if r.readFull(r.scratch[:8]) {
		*dest = r.order.Uint64(r.scratch[:8])
	}
}

func (r *Reader) ReadInt16(dest *int16) {
	if r.readFull(r.scratch[:2]) {
		*dest = int16(r.order.Uint16(r.scratch[:2]))
	}
}

func (r *Reader) ReadInt32(dest *int32) {
	if r.readFull(r.scratch[:4]) {
		*dest = int32(r.order.Uint32(r.scratch[:4]))
	}
}

func (r *Reader) ReadInt64(dest *int64) {
	if r.readFull(r.scratch[:8]) {
		*dest = int64(r.order.Uint64(r.scratch[:8]))
	}
}

func (r *Reader) ReadFloat32(dest *float32) {
	if r.readFull(r.scratch[:4]) {
		*dest = math.Float32frombits(r.order.Uint32(r.scratch[:4]))
	}
}

func (r *Reader) ReadFloat64(dest *float64) {
	if r.readFull(r.scratch[:8]) {
		*dest = math.Float64frombits(r.order.Uint64(r.scratch[:8]))
	}
}

// --- Protocol Read Operations ---

func (r *Reader) ReadVarInt(dest *int32) {
	if r.err != nil {
		return
	}
	v, err := ReadVarInt(r)
	if err != nil {
		r.setError(err)
		return
	}
	*dest = v
}

func (r *Reader) ReadVarLong(dest *int64) {
	if r.err != nil {
		return
	}
	v, err := ReadVarLong(r)
	if err != nil {
		r.setError(err)
		return
	}
	*dest = v
}

func (r *Reader) ReadUUID(dest *[16]byte) { r.readFull(dest[:]) }

// readLength reads a VarInt length prefix and validates it against maxBytes.
func (r *Reader) readLength(maxBytes int, limitErr error) (int, bool) {
	var n int32
	r.ReadVarInt(&n)
	if r.err != nil {
		return 0, false
	}
	if n < 0 {
		r.err = fmt.Errorf("%w: %d", ErrNegativeLength, n)
		return 0, false
	}
	if int(n) > maxBytes {
		r.err = fmt.Errorf("%w: %d bytes, maximum %d", limitErr, n, maxBytes)
		return 0, false
	}
	if !r.fits(int(n)) {
		return 0, false
	}
	return int(n), true
}

// ReadPrefixedString reads a string written by Writer.WritePrefixedString.
// maxLen bounds the string in characters.
func (r *Reader) ReadPrefixedString(dest *string, maxLen int) {
	n, ok := r.readLength(maxLen*utf8.UTFMax, ErrStringTooLong)
	if !ok {
		return
	}
	if n == 0 {
		*dest = ""
		return
	}
	buf := make([]byte, n)
	if !r.readFull(buf) {
		return
	}
	if chars := utf8.RuneCount(buf); chars > maxLen {
		r.err = fmt.Errorf("%w: %d characters, maximum %d", ErrStringTooLong, chars, maxLen)
		return
	}
	*dest = string(buf)
}

// ReadPrefixedBytes reads a slice written by Writer.WritePrefixedBytes.
func (r *Reader) ReadPrefixedBytes(dest *[]byte, maxLen int) {
	n, ok := r.readLength(maxLen, ErrArrayTooLong)
	if !ok {
		return
	}
	if n == 0 {
		*dest = nil
		return
	}
	buf := make([]byte, n)
	if !r.readFull(buf) {
		return
	}
	*dest = buf
}
