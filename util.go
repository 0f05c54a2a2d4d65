package packetcodec

import "encoding/binary"

// Order is the byte order of multi-byte fields. The protocol is big-endian throughout.
var Order binary.ByteOrder = binary.BigEndian

func Ptr[T any](v T) *T { return &v } // Ptr returns a pointer to a copy of v, for optional fields.
