package packetcodec

import (
	"io"

	"golang.org/x/exp/constraints"
)

const (
	// MaxVarIntSize is the largest number of bytes a VarInt can occupy.
	MaxVarIntSize = 5
	// MaxVarLongSize is the largest number of bytes a VarLong can occupy.
	MaxVarLongSize = 10
)

// VarInt is a signed 32-bit integer carried on the wire in groups of 7 bits,
// least significant group first, with the high bit of each byte set while more
// bytes follow. Negative values are encoded as their two's-complement bit pattern
// and therefore always take MaxVarIntSize bytes.
type VarInt int32

// VarLong is the 64-bit counterpart of VarInt.
type VarLong int64

// Size returns the encoded width of v.
func (v VarInt) Size() int { return uvarSize(uint32(v)) }

// Size returns the encoded width of v.
func (v VarLong) Size() int { return uvarSize(uint64(v)) }

// Append appends the encoding of v to dst.
func (v VarInt) Append(dst []byte) []byte { return appendUvar(dst, uint32(v)) }

// Append appends the encoding of v to dst.
func (v VarLong) Append(dst []byte) []byte { return appendUvar(dst, uint64(v)) }

// AppendVarInt appends the encoding of v to dst.
func AppendVarInt(dst []byte, v int32) []byte { return appendUvar(dst, uint32(v)) }

// VarIntSize returns the number of bytes AppendVarInt would write for v.
func VarIntSize(v int32) int { return uvarSize(uint32(v)) }

// PutVarInt encodes v into buf and returns the number of bytes written.
// buf must have room for VarIntSize(v) bytes.
func PutVarInt(buf []byte, v int32) int {
	uv := uint32(v)
	i := 0
	for uv >= 0x80 {
		buf[i] = byte(uv) | 0x80
		uv >>= 7
		i++
	}
	buf[i] = byte(uv)
	return i + 1
}

// DecodeVarInt decodes a VarInt from the front of buf and returns the value and
// the number of bytes it occupied. It returns ErrIncompleteVarInt if buf ends
// before the final byte, and ErrMalformedVarInt if the value runs past MaxVarIntSize.
func DecodeVarInt(buf []byte) (int32, int, error) {
	v, n, err := decodeUvar[uint32](buf, MaxVarIntSize)
	return int32(v), n, err
}

// DecodeVarLong is DecodeVarInt for VarLong.
func DecodeVarLong(buf []byte) (int64, int, error) {
	v, n, err := decodeUvar[uint64](buf, MaxVarLongSize)
	return int64(v), n, err
}

// ReadVarInt reads a VarInt one byte at a time. An io.EOF before the first
// byte is returned as is; an EOF after it becomes io.ErrUnexpectedEOF.
func ReadVarInt(r io.ByteReader) (int32, error) {
	v, err := readUvar[uint32](r, MaxVarIntSize)
	return int32(v), err
}

// ReadVarLong is ReadVarInt for VarLong.
func ReadVarLong(r io.ByteReader) (int64, error) {
	v, err := readUvar[uint64](r, MaxVarLongSize)
	return int64(v), err
}

func appendUvar[T constraints.Unsigned](dst []byte, v T) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

func uvarSize[T constraints.Unsigned](v T) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

func decodeUvar[T constraints.Unsigned](buf []byte, max int) (T, int, error) {
	var v T
	for i, b := range buf {
		if i == max {
			return 0, 0, ErrMalformedVarInt
		}
		v |= T(b&0x7F) << (7 * i)
		if b < 0x80 {
			return v, i + 1, nil
		}
	}
	if len(buf) >= max {
		return 0, 0, ErrMalformedVarInt
	}
	return 0, 0, ErrIncompleteVarInt
}

func readUvar[T constraints.Unsigned](r io.ByteReader, max int) (T, error) {
	var v T
	for i := 0; i < max; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		v |= T(b&0x7F) << (7 * i)
		if b < 0x80 {
			return v, nil
		}
	}
	return 0, ErrMalformedVarInt
}
