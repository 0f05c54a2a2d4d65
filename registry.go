package packetcodec

import (
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v4"
)

// Factory returns a new, zero-valued packet ready for ReadFields.
type Factory func() Packet

type entry struct {
	factory Factory
	typ     reflect.Type
}

// Registry maps packet ids to the types that decode them. It is filled once at
// startup and then only read, possibly from many connections at once.
type Registry struct {
	entries *xsync.Map[int32, entry]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: xsync.NewMap[int32, entry]()}
}

// DefaultRegistry is used by decoders created without a registry.
var DefaultRegistry = NewRegistry()

// Register adds f to DefaultRegistry.
func Register(f Factory) { DefaultRegistry.Register(f) }

// Register makes the packet type produced by f decodable under its ID.
// Registering the same type twice is a no-op; registering a different type
// under a taken id panics, since it can only be a programming error.
func (r *Registry) Register(f Factory) {
	pk := f()
	e := entry{factory: f, typ: reflect.TypeOf(pk)}
	if prev, loaded := r.entries.LoadOrStore(pk.ID(), e); loaded && prev.typ != e.typ {
		panic(fmt.Sprintf("packetcodec: packet id 0x%02x registered by both %v and %v", pk.ID(), prev.typ, e.typ))
	}
}

// Lookup returns the factory registered for id.
func (r *Registry) Lookup(id int32) (Factory, bool) {
	e, ok := r.entries.Load(id)
	if !ok {
		return nil, false
	}
	return e.factory, true
}

// New returns a fresh packet for id, or ErrUnknownPacketID.
func (r *Registry) New(id int32) (Packet, error) {
	f, ok := r.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownPacketID, id)
	}
	return f(), nil
}

// Len returns the number of registered packet types.
func (r *Registry) Len() int { return r.entries.Size() }
