package packetcodec

import (
	"errors"
	"fmt"
)

var (
	// ErrNilIO indicates that NewReader/NewWriter was called with a nil source or sink.
	ErrNilIO = errors.New("packetcodec: NewReader/NewWriter called with a nil io.Reader/io.Writer")

	// ErrAlreadyBuffered indicates that NewWriter was called with an already-buffered
	// writer whose buffer is smaller than requested.
	ErrAlreadyBuffered = errors.New("packetcodec: writer is already buffered")

	// ErrMalformedVarInt indicates a continuation-bit run longer than the maximum encoded width.
	ErrMalformedVarInt = errors.New("packetcodec: malformed var-int")

	// ErrIncompleteVarInt indicates the input ended before the last byte of a var-int.
	// The decoder treats it as "more bytes needed", never as a frame failure.
	ErrIncompleteVarInt = errors.New("packetcodec: incomplete var-int")

	// ErrDecompress indicates a corrupt or truncated compressed block.
	ErrDecompress = errors.New("packetcodec: decompression error")

	// ErrSizeMismatch indicates a compressed block inflated to a length other than declared.
	ErrSizeMismatch = errors.New("packetcodec: decompressed size mismatch")

	// ErrUnknownPacketID indicates no packet type is registered for a decoded id.
	ErrUnknownPacketID = errors.New("packetcodec: unknown packet id")

	// ErrUnexpectedPacketID is returned by TryNextAs and DecodeFrame when the frame carries another packet type.
	ErrUnexpectedPacketID = errors.New("packetcodec: unexpected packet id")

	// ErrTrailingData indicates that a packet's fields did not consume the whole packet body.
	ErrTrailingData = errors.New("packetcodec: trailing data after packet fields")

	// ErrTruncatedData indicates that a packet's fields needed more bytes than the packet body holds.
	ErrTruncatedData = errors.New("packetcodec: truncated data")

	// ErrFrameTooLarge indicates a frame or packet body above MaxPacketSize.
	ErrFrameTooLarge = errors.New("packetcodec: frame exceeds maximum packet size")

	// ErrNegativeLength indicates a length prefix that decoded to a negative value.
	ErrNegativeLength = errors.New("packetcodec: negative length prefix")

	// ErrStringTooLong indicates a string field longer than its declared maximum.
	ErrStringTooLong = errors.New("packetcodec: string exceeds maximum length")

	// ErrArrayTooLong indicates a length-prefixed array longer than its declared maximum.
	ErrArrayTooLong = errors.New("packetcodec: array exceeds maximum length")

	// ErrInvalidBool indicates a boolean field holding a byte other than 0 or 1.
	ErrInvalidBool = errors.New("packetcodec: invalid boolean value")

	// ErrInvalidWrite indicates that an io.Writer returned an invalid count from Write.
	ErrInvalidWrite = errors.New("packetcodec: writer returned invalid count from Write")
)

// FrameError reports a failure to decode one frame. Offset is the position of the
// frame's length prefix in the decoder's stream, counted from the first queued byte.
type FrameError struct {
	Offset int64
	Length int   // declared frame length, or -1 if the prefix itself was bad
	ID     int32 // packet id, or -1 if decoding failed before the id was known
	Err    error
}

func (e *FrameError) Error() string {
	if e.ID < 0 {
		return fmt.Sprintf("frame at offset %d (length %d): %v", e.Offset, e.Length, e.Err)
	}
	return fmt.Sprintf("frame at offset %d (length %d, packet 0x%02x): %v", e.Offset, e.Length, e.ID, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }
