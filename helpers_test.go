package packetcodec

import "errors"

// --- Test packets ---

// tinyPacket is id 5 with a 3-byte field block.
type tinyPacket struct {
	Fixed[[3]byte]
}

func (tinyPacket) ID() int32 { return 5 }

func newTiny(a, b, c byte) *tinyPacket {
	return &tinyPacket{Fixed[[3]byte]{Payload: [3]byte{a, b, c}}}
}

// bigPacket serializes to exactly 2000 bytes including its one-byte id.
type bigPacket struct {
	Fixed[[1999]byte]
}

func (bigPacket) ID() int32 { return 0x10 }

func newBig() *bigPacket {
	p := &bigPacket{}
	for i := range p.Payload {
		p.Payload[i] = byte(i % 7)
	}
	return p
}

// chatPacket exercises variable-length fields.
type chatPacket struct {
	Sender  [16]byte
	Message string
	Sent    int64 // VarLong
	Overlay bool
	Extra   []byte
}

func (chatPacket) ID() int32 { return 0x300 }

func (p *chatPacket) WriteFields(w *Writer) error {
	w.WriteUUID(p.Sender)
	w.WritePrefixedString(p.Message, 256)
	w.WriteVarLong(p.Sent)
	w.WriteBool(p.Overlay)
	w.WritePrefixedBytes(p.Extra, 1024)
	return w.Err()
}

func (p *chatPacket) ReadFields(r *Reader) error {
	r.ReadUUID(&p.Sender)
	r.ReadPrefixedString(&p.Message, 256)
	r.ReadVarLong(&p.Sent)
	r.ReadBool(&p.Overlay)
	r.ReadPrefixedBytes(&p.Extra, 1024)
	return r.Err()
}

var errBoom = errors.New("boom")

// failingPacket writes a few bytes and then fails, like a field over its limit.
type failingPacket struct{}

func (failingPacket) ID() int32 { return 0x7F }

func (failingPacket) WriteFields(w *Writer) error {
	w.WriteUint32(0xDEADBEEF)
	return errBoom
}

func (failingPacket) ReadFields(r *Reader) error { return errBoom }

func testRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(func() Packet { return new(tinyPacket) })
	reg.Register(func() Packet { return new(bigPacket) })
	reg.Register(func() Packet { return new(chatPacket) })
	return reg
}

func sampleChat() *chatPacket {
	return &chatPacket{
		Sender:  [16]byte{0: 0xAB, 15: 0xCD},
		Message: "héllo, wörld",
		Sent:    -42,
		Overlay: true,
		Extra:   []byte{1, 2, 3},
	}
}
