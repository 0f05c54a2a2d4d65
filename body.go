package packetcodec

import "io"

// bodyReader reads one packet body in place. The decoder resets a single
// bodyReader onto each frame, and Reader consults remaining() to reject
// length prefixes that point past the end of the body.
type bodyReader struct {
	b   []byte
	off int
}

func newBodyReader(b []byte) *bodyReader { return &bodyReader{b: b} }

func (r *bodyReader) reset(b []byte) {
	r.b = b
	r.off = 0
}

// remaining returns the number of unread body bytes.
func (r *bodyReader) remaining() int { return len(r.b) - r.off }

func (r *bodyReader) Read(p []byte) (int, error) {
	if r.off >= len(r.b) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, r.b[r.off:])
	r.off += n
	return n, nil
}

func (r *bodyReader) ReadByte() (byte, error) {
	if r.off >= len(r.b) {
		return 0, io.EOF
	}
	c := r.b[r.off]
	r.off++
	return c, nil
}
