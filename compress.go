package packetcodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// DefaultCompressionLevel trades ratio for speed; packets are compressed on every tick.
const DefaultCompressionLevel = zlib.DefaultCompression

// Compressor deflates and inflates packet bodies with zlib. The zlib state is
// kept between calls so steady-state use does not allocate.
//
// A Compressor is not safe for concurrent use; each Encoder and Decoder owns one.
type Compressor struct {
	level int
	zw    *zlib.Writer
	zr    io.ReadCloser
	src   bytes.Reader
	sink  appendWriter
	probe [1]byte
}

// NewCompressor returns a Compressor using the given zlib level.
func NewCompressor(level int) *Compressor {
	return &Compressor{level: level}
}

// appendWriter is an io.Writer that appends to a slice it does not own.
type appendWriter struct{ b []byte }

func (w *appendWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

// Compress appends the zlib encoding of src to dst.
func (c *Compressor) Compress(dst, src []byte) ([]byte, error) {
	c.sink.b = dst
	defer func() { c.sink.b = nil }()

	if c.zw == nil {
		zw, err := zlib.NewWriterLevel(&c.sink, c.level)
		if err != nil {
			return dst, err
		}
		c.zw = zw
	} else {
		c.zw.Reset(&c.sink)
	}

	if _, err := c.zw.Write(src); err != nil {
		return dst, err
	}
	if err := c.zw.Close(); err != nil {
		return dst, err
	}
	return c.sink.b, nil
}

// Decompress inflates src and appends the result to dst. The output is bounded
// by expected: a stream that inflates to more or fewer bytes than expected
// fails with ErrSizeMismatch, and a corrupt or truncated stream, or one followed
// by extra bytes in src, with ErrDecompress.
// On failure dst is returned with its original length.
func (c *Compressor) Decompress(dst, src []byte, expected int) ([]byte, error) {
	if expected < 0 {
		return dst, fmt.Errorf("%w: negative expected length %d", ErrSizeMismatch, expected)
	}
	c.src.Reset(src)

	if c.zr == nil {
		zr, err := zlib.NewReader(&c.src)
		if err != nil {
			return dst, fmt.Errorf("%w: %v", ErrDecompress, err)
		}
		c.zr = zr
	} else if err := c.zr.(zlib.Resetter).Reset(&c.src, nil); err != nil {
		return dst, fmt.Errorf("%w: %v", ErrDecompress, err)
	}

	start := len(dst)
	out := grow(dst, expected)
	n := 0
	for n < expected {
		read, err := c.zr.Read(out[start+n:])
		n += read
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) && n < expected {
			return dst, fmt.Errorf("%w: inflated %d bytes, declared %d", ErrSizeMismatch, n, expected)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		return dst, fmt.Errorf("%w: %v", ErrDecompress, err)
	}

	// The stream must end exactly here. Reading to EOF also verifies the checksum.
	for {
		read, err := c.zr.Read(c.probe[:])
		if read > 0 {
			return dst, fmt.Errorf("%w: stream inflates past declared %d bytes", ErrSizeMismatch, expected)
		}
		if errors.Is(err, io.EOF) {
			if rest := c.src.Len(); rest > 0 {
				return dst, fmt.Errorf("%w: %d bytes after end of stream", ErrDecompress, rest)
			}
			return out, nil
		}
		if err != nil {
			return dst, fmt.Errorf("%w: %v", ErrDecompress, err)
		}
	}
}

// grow extends b by n bytes, reusing spare capacity when there is enough.
func grow(b []byte, n int) []byte {
	if cap(b)-len(b) < n {
		nb := make([]byte, len(b), len(b)+n)
		copy(nb, b)
		b = nb
	}
	return b[:len(b)+n]
}
