package packetcodec

import (
	"encoding/binary"
	"reflect"

	"github.com/puzpuzpuz/xsync/v4"
)

// sizeCache avoids the cost of reflection in `binary.Size` on every call.
var sizeCache = xsync.NewMap[reflect.Type, int]()

// Fixed serializes a struct made only of fixed-size fields (integers, floats,
// bools and arrays of them) in declaration order, big-endian, the way most
// simple packets lay out their fields. Embed it and add an ID method to get a
// complete Packet.
//
// Constraint: Payload MUST NOT contain slices, maps or strings.
type Fixed[Payload any] struct {
	Payload Payload
}

// Size returns the encoded size of Payload. The result is cached per type.
func (c *Fixed[Payload]) Size() int {
	payloadType := reflect.TypeOf((*Payload)(nil)).Elem()

	if size, ok := sizeCache.Load(payloadType); ok {
		return size
	}

	size := binary.Size(&c.Payload)
	sizeCache.Store(payloadType, size)
	return size
}

// WriteFields writes Payload to w.
func (c *Fixed[Payload]) WriteFields(w *Writer) error {
	if w.err != nil {
		return w.err
	}
	if err := binary.Write(w, w.order, &c.Payload); err != nil {
		w.setError(err)
	}
	return w.err
}

// ReadFields reads Payload from r.
func (c *Fixed[Payload]) ReadFields(r *Reader) error {
	if r.err != nil {
		return r.err
	}
	if !r.fits(c.Size()) {
		return r.err
	}
	if err := binary.Read(r.r, r.order, &c.Payload); err != nil {
		r.setError(err)
		return r.err
	}
	r.count += int64(c.Size())
	return nil
}
