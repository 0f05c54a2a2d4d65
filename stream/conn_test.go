package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"testing/iotest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/packetcodec"
	"github.com/oy3o/packetcodec/packets"
	"github.com/oy3o/packetcodec/weather"
)

// counterValue returns the value of the named counter gathered from reg.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("counter %s not registered", name)
	return 0
}

type readWriter struct {
	io.Reader
	io.Writer
}

func TestConnRoundTrip(t *testing.T) {
	for _, threshold := range []int{packetcodec.NoCompression, 64} {
		client, server := net.Pipe()
		reg := prometheus.NewRegistry()
		metrics := NewMetrics(reg)

		cfg := DefaultConfig()
		cfg.CompressionThreshold = threshold
		sender := New(client, cfg, WithMetrics(metrics))
		receiver := New(server, cfg, WithMetrics(metrics))

		sent := []packetcodec.Packet{
			&packets.KeepAlive{KeepAliveID: 42},
			&packets.SetTabListHeaderAndFooter{Header: "header", Footer: string(bytes.Repeat([]byte("f"), 500))},
			packets.NewGameStateChange(packets.WinGame, 1),
		}
		for _, pk := range sent {
			require.NoError(t, sender.WritePacket(pk))
		}
		wire := sender.Buffered()
		require.Positive(t, wire)

		flushed := make(chan error, 1)
		go func() { flushed <- sender.Flush() }()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		for _, want := range sent {
			got, err := receiver.ReadPacket(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		cancel()
		require.NoError(t, <-flushed)
		assert.Zero(t, sender.Buffered())

		assert.Equal(t, 3.0, counterValue(t, reg, "packetcodec_packets_written_total"))
		assert.Equal(t, 3.0, counterValue(t, reg, "packetcodec_packets_read_total"))
		assert.Equal(t, float64(wire), counterValue(t, reg, "packetcodec_written_bytes_total"))
		assert.Equal(t, float64(wire), counterValue(t, reg, "packetcodec_read_bytes_total"))

		client.Close()
		server.Close()
	}
}

func TestConnWeather(t *testing.T) {
	var out bytes.Buffer
	c := New(readWriter{Reader: &out, Writer: &out}, DefaultConfig())
	require.NoError(t, weather.SetWeather(c, weather.Weather{Rain: packetcodec.Ptr[float32](1)}))
	require.NoError(t, c.Flush())

	pk, err := c.ReadPacket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, packets.NewGameStateChange(packets.RainLevelChange, 1), pk)
}

func TestConnReadErrors(t *testing.T) {
	t.Run("CleanEOF", func(t *testing.T) {
		c := New(readWriter{Reader: bytes.NewReader(nil), Writer: io.Discard}, DefaultConfig())
		_, err := c.ReadPacket(context.Background())
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("EOFMidFrame", func(t *testing.T) {
		frame, err := packetcodec.AppendPacket(nil, &packets.KeepAlive{KeepAliveID: 1})
		require.NoError(t, err)
		c := New(readWriter{Reader: bytes.NewReader(frame[:4]), Writer: io.Discard}, DefaultConfig())
		_, err = c.ReadPacket(context.Background())
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("DataWithEOF", func(t *testing.T) {
		frame, err := packetcodec.AppendPacket(nil, &packets.KeepAlive{KeepAliveID: 7})
		require.NoError(t, err)
		src := iotest.DataErrReader(bytes.NewReader(frame))
		c := New(readWriter{Reader: src, Writer: io.Discard}, DefaultConfig())

		pk, err := c.ReadPacket(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &packets.KeepAlive{KeepAliveID: 7}, pk)

		_, err = c.ReadPacket(context.Background())
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("PartialDataWithEOF", func(t *testing.T) {
		frame, err := packetcodec.AppendPacket(nil, &packets.KeepAlive{KeepAliveID: 7})
		require.NoError(t, err)
		src := iotest.DataErrReader(bytes.NewReader(frame[:4]))
		c := New(readWriter{Reader: src, Writer: io.Discard}, DefaultConfig())

		_, err = c.ReadPacket(context.Background())
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("Canceled", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(server, DefaultConfig()).ReadPacket(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Deadline", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := New(server, DefaultConfig()).ReadPacket(ctx)
		assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	})

	t.Run("UndecodableFrame", func(t *testing.T) {
		var logs bytes.Buffer
		logger := zerolog.New(&logs).Level(zerolog.DebugLevel)
		reg := prometheus.NewRegistry()

		frame := []byte{0x02, 0x8F, 0x4E} // packet id 9999
		c := New(readWriter{Reader: bytes.NewReader(frame), Writer: io.Discard}, DefaultConfig(),
			WithLogger(logger), WithMetrics(NewMetrics(reg)), WithRegistry(packetcodec.NewRegistry()))

		_, err := c.ReadPacket(context.Background())
		require.ErrorIs(t, err, packetcodec.ErrUnknownPacketID)
		assert.Equal(t, 1.0, counterValue(t, reg, "packetcodec_decode_errors_total"))
		assert.Contains(t, logs.String(), "undecodable frame")
		assert.Contains(t, logs.String(), `"packetID":9999`)
	})
}

type failingWriter struct{}

var errWrite = errors.New("connection reset")

func (failingWriter) Write(p []byte) (int, error) { return 0, errWrite }

func TestConnWriteErrors(t *testing.T) {
	var logs bytes.Buffer
	c := New(readWriter{Reader: bytes.NewReader(nil), Writer: failingWriter{}}, DefaultConfig(),
		WithLogger(zerolog.New(&logs)))

	require.NoError(t, c.WritePacket(&packets.KeepAlive{KeepAliveID: 7}))
	err := c.Flush()
	assert.ErrorIs(t, err, errWrite)
	assert.Equal(t, 10, c.Buffered(), "unsent bytes stay buffered")
	assert.Contains(t, logs.String(), "flush failed")

	pk := &packets.ChunkData{SkyLight: make([][]byte, packets.MaxLightArrayCount+1)}
	assert.ErrorIs(t, c.WritePacket(pk), packetcodec.ErrArrayTooLong)
	assert.Equal(t, 10, c.Buffered())
}

func TestConnSetCompression(t *testing.T) {
	var out bytes.Buffer
	c := New(readWriter{Reader: &out, Writer: &out}, DefaultConfig())
	require.NoError(t, c.WritePacket(&packets.KeepAlive{KeepAliveID: 1}))
	require.NoError(t, c.Flush())
	pk, err := c.ReadPacket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &packets.KeepAlive{KeepAliveID: 1}, pk)

	c.SetCompression(0)
	require.NoError(t, c.WritePacket(&packets.KeepAlive{KeepAliveID: 2}))
	require.NoError(t, c.Flush())
	pk, err = c.ReadPacket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &packets.KeepAlive{KeepAliveID: 2}, pk)
}
