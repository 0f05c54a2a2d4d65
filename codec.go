// Package packetcodec frames, compresses and decodes the packets of a
// length-prefixed, VarInt-based game protocol.
//
// An Encoder accumulates framed packets into one buffer ready for the socket.
// A Decoder accepts raw bytes as they arrive and hands back complete packets;
// when a frame is still partial it reports nothing and waits for more bytes.
package packetcodec

// Packet is implemented by every packet type of the protocol.
type Packet interface {
	// ID returns the packet identifier written before the fields.
	// It is stable for a given protocol version.
	ID() int32
	// WriteFields serializes the packet's fields, without the id.
	WriteFields(w *Writer) error
	// ReadFields deserializes the fields written by WriteFields.
	ReadFields(r *Reader) error
}

// Sizer is an optional interface for packets that can report the size of their
// fields in advance. The encoder uses it to reserve scratch space.
type Sizer interface {
	// Size returns the number of bytes WriteFields will produce.
	Size() int
}

// PacketWriter is the sending half of the codec as seen by code that emits packets.
// *Encoder implements it.
type PacketWriter interface {
	AppendPacket(p Packet) error
}
