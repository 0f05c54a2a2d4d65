package packetcodec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

type sink interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
	Flush() error
}

// bufferSink lets the encoder's scratch bytes.Buffer serve as a Writer sink.
type bufferSink struct{ *bytes.Buffer }

func (bufferSink) Flush() error { return nil }

// Writer serializes packet fields. It tracks the first error that occurs;
// after an error, all subsequent write operations become no-ops.
type Writer struct {
	w       sink
	count   int64 // total bytes written
	err     error // first error encountered. Subsequent writes become no-ops.
	order   binary.ByteOrder
	scratch [MaxVarLongSize]byte
}

// NewWriterSize creates a new Writer. In-memory sinks are written directly;
// any other io.Writer is buffered with the given size.
func NewWriterSize(w io.Writer, size int) (*Writer, error) {
	if w == nil {
		return nil, ErrNilIO
	}

	switch bw := w.(type) {
	case *Writer:
		return &Writer{w: bw.w, order: Order}, nil
	case *bytes.Buffer:
		return &Writer{w: bufferSink{bw}, order: Order}, nil

	// prevent unpredictable double-buffering.
	case *bufio.Writer:
		if bw.Size() >= size {
			return &Writer{w: bw, order: Order}, nil
		}
		return nil, ErrAlreadyBuffered
	}

	return &Writer{w: bufio.NewWriterSize(w, size), order: Order}, nil
}

// NewWriter creates a new Writer with a default buffer size.
func NewWriter(w io.Writer) (*Writer, error) {
	return NewWriterSize(w, 0)
}

// newBufferWriter returns a Writer appending to buf. Used by the encoder,
// which resets and reuses it for every packet.
func newBufferWriter(buf *bytes.Buffer) Writer {
	return Writer{w: bufferSink{buf}, order: Order}
}

// reset clears the count and latched error so the Writer can be reused.
func (w *Writer) reset() {
	w.count = 0
	w.err = nil
}

// Write implements the io.Writer interface.
func (w *Writer) Write(buf []byte) (int, error) {
	if buf == nil || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(buf)
	if n < 0 {
		w.setError(ErrInvalidWrite)
		return 0, w.err
	}
	w.count += int64(n)
	w.setError(err)
	return n, w.err
}

// WriteString implements the io.StringWriter interface. It writes s without a
// length prefix; use WritePrefixedString for protocol strings.
func (w *Writer) WriteString(str string) (int, error) {
	if str == "" || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.WriteString(str)
	w.count += int64(n)
	w.setError(err)
	return n, w.err
}

func (w *Writer) Count() int64 { return w.count }
func (w *Writer) Err() error   { return w.err }

// Fail records err as the Writer's error if none is set yet. Packets use it to
// report a field that violates its own preconditions.
func (w *Writer) Fail(err error) { w.setError(err) }

// setError records the first non-nil error.
// This preserves the root cause of a failure chain instead of a later,
// less relevant error.
func (w *Writer) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Result flushes the buffer and returns the final count and error state.
func (w *Writer) Result() (int64, error) {
	w.Flush()
	return w.count, w.err
}

// Flush writes any buffered data to the underlying io.Writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	err := w.w.Flush()
	w.setError(err)
	return err
}

// WriteBytes writes a byte slice without a length prefix.
func (w *Writer) WriteBytes(buf []byte) {
	if len(buf) == 0 || w.err != nil {
		return
	}
	_, _ = w.Write(buf)
}

// --- Primitive Write Operations ---

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

func (w *Writer) WriteByte(v byte) error {
	if w.err != nil {
		return w.err
	}
	err := w.w.WriteByte(v)
	if err == nil {
		w.count++
	} else {
		w.err = err
	}
	return err
}

func (w *Writer) WriteUint8(v uint8) { _ = w.WriteByte(v) }

func (w *Writer) WriteInt8(v int8) { _ = w.WriteByte(uint8(v)) }

func (w *Writer) WriteUint16(v uint16) {
	if w.err != nil {
		return
	}
	w.order.PutUint16(w.scratch[:2], v)
	_, _ = w.Write(w.scratch[:2])
}

func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	w.order.PutUint32(w.scratch[:4], v)
	_, _ = w.Write(w.scratch[:4])
}

func (w *Writer) WriteUint64(v uint64) {
	if w.err != nil {
		return
	}
	w.order.PutUint64(w.scratch[:8], v)
	_, _ = w.Write(w.scratch[:8])
}

func (w *Writer) WriteInt16(v int16)     { w.WriteUint16(uint16(v)) }
func (w *Writer) WriteInt32(v int32)     { w.WriteUint32(uint32(v)) }
func (w *Writer) WriteInt64(v int64)     { w.WriteUint64(uint64(v)) }
func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }
func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// --- Protocol Write Operations ---

func (w *Writer) WriteVarInt(v int32) {
	if w.err != nil {
		return
	}
	n := PutVarInt(w.scratch[:], v)
	_, _ = w.Write(w.scratch[:n])
}

func (w *Writer) WriteVarLong(v int64) {
	if w.err != nil {
		return
	}
	b := VarLong(v).Append(w.scratch[:0])
	_, _ = w.Write(b)
}

// WriteUUID writes a 128-bit identifier as 16 raw bytes, most significant first.
func (w *Writer) WriteUUID(id [16]byte) { w.WriteBytes(id[:]) }

// WritePrefixedString writes a VarInt byte length followed by the UTF-8 bytes of s.
// maxLen bounds the string in characters; a longer string fails the Writer with ErrStringTooLong.
func (w *Writer) WritePrefixedString(s string, maxLen int) {
	if w.err != nil {
		return
	}
	if chars := utf8.RuneCountInString(s); chars > maxLen {
		w.setError(fmt.Errorf("%w: %d characters, maximum %d", ErrStringTooLong, chars, maxLen))
		return
	}
	w.WriteVarInt(int32(len(s)))
	_, _ = w.WriteString(s)
}

// WritePrefixedBytes writes a VarInt length followed by b. A slice longer than
// maxLen fails the Writer with ErrArrayTooLong.
func (w *Writer) WritePrefixedBytes(b []byte, maxLen int) {
	if w.err != nil {
		return
	}
	if len(b) > maxLen {
		w.setError(fmt.Errorf("%w: %d bytes, maximum %d", ErrArrayTooLong, len(b), maxLen))
		return
	}
	w.WriteVarInt(int32(len(b)))
	w.WriteBytes(b)
}
