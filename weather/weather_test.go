package weather

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/packetcodec"
	"github.com/oy3o/packetcodec/packets"
)

// recorder collects appended packets.
type recorder struct {
	sent []packetcodec.Packet
	err  error
}

func (r *recorder) AppendPacket(p packetcodec.Packet) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, p)
	return nil
}

func events(t *testing.T, sent []packetcodec.Packet) []packets.GameEvent {
	t.Helper()
	var out []packets.GameEvent
	for _, p := range sent {
		gsc, ok := p.(*packets.GameStateChange)
		require.True(t, ok, "unexpected packet %T", p)
		out = append(out, gsc.Payload)
	}
	return out
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(0), Clamp(-3))
	assert.Equal(t, float32(0.25), Clamp(0.25))
	assert.Equal(t, float32(1), Clamp(7))
}

func TestRainToggles(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, BeginRaining(rec))
	require.NoError(t, EndRaining(rec))
	assert.Equal(t, []packets.GameEvent{
		{Kind: packets.BeginRaining},
		{Kind: packets.EndRaining},
	}, events(t, rec.sent))
}

func TestSetWeather(t *testing.T) {
	t.Run("RainThenThunder", func(t *testing.T) {
		rec := &recorder{}
		require.NoError(t, SetWeather(rec, Weather{Rain: packetcodec.Ptr[float32](2), Thunder: packetcodec.Ptr[float32](0.5)}))
		assert.Equal(t, []packets.GameEvent{
			{Kind: packets.RainLevelChange, Value: 1},
			{Kind: packets.ThunderLevelChange, Value: 0.5},
		}, events(t, rec.sent))
	})

	t.Run("OnlyThunder", func(t *testing.T) {
		rec := &recorder{}
		require.NoError(t, SetWeather(rec, Weather{Thunder: packetcodec.Ptr[float32](-1)}))
		assert.Equal(t, []packets.GameEvent{{Kind: packets.ThunderLevelChange, Value: 0}}, events(t, rec.sent))
	})

	t.Run("Nothing", func(t *testing.T) {
		rec := &recorder{}
		require.NoError(t, SetWeather(rec, Weather{}))
		assert.Empty(t, rec.sent)
	})

	t.Run("WriterError", func(t *testing.T) {
		errClosed := errors.New("closed")
		rec := &recorder{err: errClosed}
		err := SetWeather(rec, Weather{Rain: packetcodec.Ptr[float32](1), Thunder: packetcodec.Ptr[float32](1)})
		assert.ErrorIs(t, err, errClosed)
	})
}

func TestSetWeatherOverTheWire(t *testing.T) {
	enc := packetcodec.NewEncoder()
	require.NoError(t, SetWeather(enc, Weather{Rain: packetcodec.Ptr[float32](0.75), Thunder: packetcodec.Ptr[float32](0.1)}))

	dec := packetcodec.NewDecoder(nil)
	dec.Queue(enc.Bytes())

	rain, err := packetcodec.TryNextAs[packets.GameStateChange](dec)
	require.NoError(t, err)
	assert.Equal(t, packets.GameEvent{Kind: packets.RainLevelChange, Value: 0.75}, rain.Payload)

	thunder, err := packetcodec.TryNextAs[packets.GameStateChange](dec)
	require.NoError(t, err)
	assert.Equal(t, packets.GameEvent{Kind: packets.ThunderLevelChange, Value: 0.1}, thunder.Payload)
}

func TestUpdate(t *testing.T) {
	level := packetcodec.Ptr[float32]
	tests := []struct {
		name       string
		prev, next *Weather
		want       []packets.GameEvent
	}{
		{name: "NoWeather"},
		{
			name: "Added",
			next: &Weather{Rain: level(0.5)},
			want: []packets.GameEvent{
				{Kind: packets.BeginRaining},
				{Kind: packets.RainLevelChange, Value: 0.5},
			},
		},
		{
			name: "AddedWithoutLevels",
			next: &Weather{},
			want: []packets.GameEvent{{Kind: packets.BeginRaining}},
		},
		{
			name: "Removed",
			prev: &Weather{Rain: level(1), Thunder: level(1)},
			want: []packets.GameEvent{{Kind: packets.EndRaining}},
		},
		{
			name: "Changed",
			prev: &Weather{Rain: level(0.5)},
			next: &Weather{Rain: level(0.5), Thunder: level(0.25)},
			want: []packets.GameEvent{
				{Kind: packets.RainLevelChange, Value: 0.5},
				{Kind: packets.ThunderLevelChange, Value: 0.25},
			},
		},
		{
			name: "Unchanged",
			prev: &Weather{Rain: level(0.5), Thunder: level(0.25)},
			next: &Weather{Rain: level(0.5), Thunder: level(0.25)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			require.NoError(t, Update(rec, tc.prev, tc.next))
			assert.Equal(t, tc.want, events(t, rec.sent))
		})
	}

	t.Run("WriterError", func(t *testing.T) {
		errClosed := errors.New("closed")
		rec := &recorder{err: errClosed}
		assert.ErrorIs(t, Update(rec, nil, &Weather{Rain: level(1)}), errClosed)
		assert.ErrorIs(t, Update(rec, &Weather{}, nil), errClosed)
	})
}

func TestWeatherEqual(t *testing.T) {
	a := Weather{Rain: packetcodec.Ptr[float32](0.5)}
	assert.True(t, a.Equal(Weather{Rain: packetcodec.Ptr[float32](0.5)}))
	assert.False(t, a.Equal(Weather{Rain: packetcodec.Ptr[float32](0.6)}))
	assert.False(t, a.Equal(Weather{}))
	assert.False(t, a.Equal(Weather{Rain: a.Rain, Thunder: packetcodec.Ptr[float32](0)}))
}
