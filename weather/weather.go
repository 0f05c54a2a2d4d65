// Package weather turns weather state into the game events that clients
// render as rain and thunder.
package weather

import (
	"github.com/oy3o/packetcodec"
	"github.com/oy3o/packetcodec/packets"
)

const (
	LevelMin float32 = 0
	LevelMax float32 = 1
)

// Weather is the weather of one world.
type Weather struct {
	// Rain is the rain level between LevelMin and LevelMax.
	// nil means no rain level is set.
	Rain *float32
	// Thunder is the thunder level between LevelMin and LevelMax.
	// nil means no thunder level is set.
	Thunder *float32
}

// Clamp limits level to [LevelMin, LevelMax].
func Clamp(level float32) float32 {
	return min(max(level, LevelMin), LevelMax)
}

// BeginRaining tells the receivers that rain starts.
func BeginRaining(w packetcodec.PacketWriter) error {
	return w.AppendPacket(packets.NewGameStateChange(packets.BeginRaining, 0))
}

// EndRaining tells the receivers that rain stops.
func EndRaining(w packetcodec.PacketWriter) error {
	return w.AppendPacket(packets.NewGameStateChange(packets.EndRaining, 0))
}

// SetRainLevel sends the rain level, clamped to the valid range.
func SetRainLevel(w packetcodec.PacketWriter, level float32) error {
	return w.AppendPacket(packets.NewGameStateChange(packets.RainLevelChange, Clamp(level)))
}

// SetThunderLevel sends the thunder level, clamped to the valid range.
func SetThunderLevel(w packetcodec.PacketWriter, level float32) error {
	return w.AppendPacket(packets.NewGameStateChange(packets.ThunderLevelChange, Clamp(level)))
}

// SetWeather sends every level that is set in wt, rain first.
func SetWeather(w packetcodec.PacketWriter, wt Weather) error {
	if wt.Rain != nil {
		if err := SetRainLevel(w, *wt.Rain); err != nil {
			return err
		}
	}
	if wt.Thunder != nil {
		if err := SetThunderLevel(w, *wt.Thunder); err != nil {
			return err
		}
	}
	return nil
}

// Update sends what receivers need to follow a world's weather from prev to
// next, where nil means the world has no weather. Rain begins when weather
// appears and ends when it goes away. Appearing or changed weather then sends
// its levels.
func Update(w packetcodec.PacketWriter, prev, next *Weather) error {
	switch {
	case next == nil:
		if prev == nil {
			return nil
		}
		return EndRaining(w)
	case prev == nil:
		if err := BeginRaining(w); err != nil {
			return err
		}
		return SetWeather(w, *next)
	case !prev.Equal(*next):
		return SetWeather(w, *next)
	}
	return nil
}

// Equal reports whether wt and other set the same levels.
func (wt Weather) Equal(other Weather) bool {
	return levelEqual(wt.Rain, other.Rain) && levelEqual(wt.Thunder, other.Thunder)
}

func levelEqual(a, b *float32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
