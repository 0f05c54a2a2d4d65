// Package packets is a small catalog of clientbound play packets for protocol
// version 761. Importing it registers every packet in packetcodec.DefaultRegistry.
package packets

import (
	"fmt"

	"github.com/oy3o/packetcodec"
)

// ProtocolVersion is the protocol the ids below belong to.
const ProtocolVersion = 761

// Packet ids.
const (
	SpawnEntityID               int32 = 0x00
	GameStateChangeID           int32 = 0x1C
	KeepAliveID                 int32 = 0x1F
	ChunkDataID                 int32 = 0x20
	SetTabListHeaderAndFooterID int32 = 0x61
)

// Field limits.
const (
	MaxTextLength      = 262144
	MaxChunkDataSize   = 2 * 1024 * 1024
	MaxHeightmapsSize  = 64 * 1024
	LightArraySize     = 2048
	MaxLightArrayCount = 26
)

func init() {
	packetcodec.Register(func() packetcodec.Packet { return new(SpawnEntity) })
	packetcodec.Register(func() packetcodec.Packet { return new(GameStateChange) })
	packetcodec.Register(func() packetcodec.Packet { return new(KeepAlive) })
	packetcodec.Register(func() packetcodec.Packet { return new(ChunkData) })
	packetcodec.Register(func() packetcodec.Packet { return new(SetTabListHeaderAndFooter) })
}

// GameEventKind selects what a GameStateChange announces.
type GameEventKind uint8

const (
	NoRespawnBlockAvailable GameEventKind = iota
	EndRaining
	BeginRaining
	ChangeGameMode
	WinGame
	DemoEvent
	ArrowHitPlayer
	RainLevelChange
	ThunderLevelChange
	PlayPufferfishStingSound
	PlayElderGuardianMobAppearance
	EnableRespawnScreen
)

// GameEvent is the field block of GameStateChange.
type GameEvent struct {
	Kind  GameEventKind
	Value float32
}

// GameStateChange announces a world or player state change, such as weather.
type GameStateChange struct {
	packetcodec.Fixed[GameEvent]
}

// NewGameStateChange returns a GameStateChange carrying kind and value.
func NewGameStateChange(kind GameEventKind, value float32) *GameStateChange {
	return &GameStateChange{packetcodec.Fixed[GameEvent]{Payload: GameEvent{Kind: kind, Value: value}}}
}

func (GameStateChange) ID() int32 { return GameStateChangeID }

// KeepAlive must be echoed by the client with the same ID.
type KeepAlive struct {
	KeepAliveID int64
}

func (KeepAlive) ID() int32 { return KeepAliveID }
func (*KeepAlive) Size() int { return 8 }

func (p *KeepAlive) WriteFields(w *packetcodec.Writer) error {
	w.WriteInt64(p.KeepAliveID)
	return w.Err()
}

func (p *KeepAlive) ReadFields(r *packetcodec.Reader) error {
	r.ReadInt64(&p.KeepAliveID)
	return r.Err()
}

// SpawnEntity spawns a non-player entity.
type SpawnEntity struct {
	EntityID   int32 // VarInt
	ObjectUUID [16]byte
	Kind       int32 // VarInt
	Position   [3]float64
	Pitch      uint8 // angle in 1/256 of a turn
	Yaw        uint8
	HeadYaw    uint8
	Data       int32 // VarInt
	Velocity   [3]int16
}

func (SpawnEntity) ID() int32 { return SpawnEntityID }

func (p *SpawnEntity) Size() int {
	return packetcodec.VarIntSize(p.EntityID) + 16 + packetcodec.VarIntSize(p.Kind) +
		3*8 + 3 + packetcodec.VarIntSize(p.Data) + 3*2
}

func (p *SpawnEntity) WriteFields(w *packetcodec.Writer) error {
	w.WriteVarInt(p.EntityID)
	w.WriteUUID(p.ObjectUUID)
	w.WriteVarInt(p.Kind)
	for _, v := range p.Position {
		w.WriteFloat64(v)
	}
	w.WriteUint8(p.Pitch)
	w.WriteUint8(p.Yaw)
	w.WriteUint8(p.HeadYaw)
	w.WriteVarInt(p.Data)
	for _, v := range p.Velocity {
		w.WriteInt16(v)
	}
	return w.Err()
}

func (p *SpawnEntity) ReadFields(r *packetcodec.Reader) error {
	r.ReadVarInt(&p.EntityID)
	r.ReadUUID(&p.ObjectUUID)
	r.ReadVarInt(&p.Kind)
	for i := range p.Position {
		r.ReadFloat64(&p.Position[i])
	}
	r.ReadUint8(&p.Pitch)
	r.ReadUint8(&p.Yaw)
	r.ReadUint8(&p.HeadYaw)
	r.ReadVarInt(&p.Data)
	for i := range p.Velocity {
		r.ReadInt16(&p.Velocity[i])
	}
	return r.Err()
}

// SetTabListHeaderAndFooter sets the text above and below the player list.
// Header and Footer are JSON text components, passed through untouched.
type SetTabListHeaderAndFooter struct {
	Header string
	Footer string
}

func (SetTabListHeaderAndFooter) ID() int32 { return SetTabListHeaderAndFooterID }

func (p *SetTabListHeaderAndFooter) WriteFields(w *packetcodec.Writer) error {
	w.WritePrefixedString(p.Header, MaxTextLength)
	w.WritePrefixedString(p.Footer, MaxTextLength)
	return w.Err()
}

func (p *SetTabListHeaderAndFooter) ReadFields(r *packetcodec.Reader) error {
	r.ReadPrefixedString(&p.Header, MaxTextLength)
	r.ReadPrefixedString(&p.Footer, MaxTextLength)
	return r.Err()
}

// ChunkData carries one chunk column and its sky light. Heightmaps is an
// already encoded NBT compound and is not interpreted here.
type ChunkData struct {
	ChunkX     int32
	ChunkZ     int32
	Heightmaps []byte
	Blocks     []byte
	TrustEdges bool
	SkyLight   [][]byte // each exactly LightArraySize bytes
}

func (ChunkData) ID() int32 { return ChunkDataID }

func (p *ChunkData) WriteFields(w *packetcodec.Writer) error {
	w.WriteInt32(p.ChunkX)
	w.WriteInt32(p.ChunkZ)
	w.WritePrefixedBytes(p.Heightmaps, MaxHeightmapsSize)
	w.WritePrefixedBytes(p.Blocks, MaxChunkDataSize)
	w.WriteBool(p.TrustEdges)
	if len(p.SkyLight) > MaxLightArrayCount {
		w.Fail(fmt.Errorf("%w: %d light arrays, maximum %d", packetcodec.ErrArrayTooLong, len(p.SkyLight), MaxLightArrayCount))
		return w.Err()
	}
	w.WriteVarInt(int32(len(p.SkyLight)))
	for _, arr := range p.SkyLight {
		if len(arr) != LightArraySize {
			w.Fail(fmt.Errorf("light array is %d bytes, want %d", len(arr), LightArraySize))
			return w.Err()
		}
		w.WritePrefixedBytes(arr, LightArraySize)
	}
	return w.Err()
}

func (p *ChunkData) ReadFields(r *packetcodec.Reader) error {
	r.ReadInt32(&p.ChunkX)
	r.ReadInt32(&p.ChunkZ)
	r.ReadPrefixedBytes(&p.Heightmaps, MaxHeightmapsSize)
	r.ReadPrefixedBytes(&p.Blocks, MaxChunkDataSize)
	r.ReadBool(&p.TrustEdges)

	var count int32
	r.ReadVarInt(&count)
	if r.Err() != nil {
		return r.Err()
	}
	if count < 0 || count > MaxLightArrayCount {
		r.Fail(fmt.Errorf("%w: %d light arrays, maximum %d", packetcodec.ErrArrayTooLong, count, MaxLightArrayCount))
		return r.Err()
	}
	p.SkyLight = nil
	if count > 0 {
		p.SkyLight = make([][]byte, count)
	}
	for i := range p.SkyLight {
		r.ReadPrefixedBytes(&p.SkyLight[i], LightArraySize)
		if r.Err() == nil && len(p.SkyLight[i]) != LightArraySize {
			r.Fail(fmt.Errorf("light array is %d bytes, want %d", len(p.SkyLight[i]), LightArraySize))
		}
	}
	return r.Err()
}
