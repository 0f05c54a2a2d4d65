// Package stream drives an Encoder and a Decoder over one blocking byte stream,
// such as a net.Conn.
package stream

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/oy3o/packetcodec"
)

// Config is the per-connection codec configuration. Both peers must agree on it.
type Config struct {
	// CompressionThreshold is the body size above which outgoing packets are
	// compressed. Negative disables compression in both directions.
	CompressionThreshold int `json:"compression_threshold"`
	// CompressionLevel is the zlib level for outgoing packets.
	CompressionLevel int `json:"compression_level"`
}

// DefaultConfig disables compression.
func DefaultConfig() Config {
	return Config{
		CompressionThreshold: packetcodec.NoCompression,
		CompressionLevel:     packetcodec.DefaultCompressionLevel,
	}
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Conn reads and writes packets on rw. Reads and writes may run on two
// goroutines, but neither side may be used by more than one at a time.
type Conn struct {
	rw      io.ReadWriter
	enc     *packetcodec.Encoder
	dec     *packetcodec.Decoder
	logger  zerolog.Logger
	metrics *Metrics
}

// Option customizes a Conn.
type Option func(*Conn)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(c *Conn) { c.logger = l } }

// WithMetrics makes the Conn count packets, bytes and errors into m.
func WithMetrics(m *Metrics) Option { return func(c *Conn) { c.metrics = m } }

// WithRegistry sets the registry incoming packet ids are resolved against.
func WithRegistry(reg *packetcodec.Registry) Option {
	return func(c *Conn) { c.dec = packetcodec.NewDecoder(reg) }
}

// New returns a Conn over rw.
func New(rw io.ReadWriter, cfg Config, opts ...Option) *Conn {
	c := &Conn{
		rw:     rw,
		enc:    packetcodec.NewEncoder(),
		dec:    packetcodec.NewDecoder(nil),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.enc.SetCompressionLevel(cfg.CompressionLevel)
	c.SetCompression(cfg.CompressionThreshold)
	return c
}

// SetCompression switches both directions to the given threshold.
// Negative disables compression.
func (c *Conn) SetCompression(threshold int) {
	c.enc.SetCompression(threshold)
	c.dec.SetCompression(threshold >= 0)
	c.logger.Debug().Int("threshold", threshold).Msg("compression changed")
}

// ReadPacket returns the next packet, reading from the stream as needed.
// ctx is checked between reads and, if rw supports read deadlines, its
// deadline bounds each read. Bytes returned together with a read error are
// decoded before the error is reported.
func (c *Conn) ReadPacket(ctx context.Context) (packetcodec.Packet, error) {
	var readErr error
	for {
		pk, err := c.dec.TryNext()
		if err != nil {
			c.metrics.decodeError()
			var fe *packetcodec.FrameError
			if errors.As(err, &fe) {
				c.logger.Debug().Err(fe.Err).Int64("offset", fe.Offset).Int("length", fe.Length).Int32("packetID", fe.ID).Msg("undecodable frame")
			}
			return nil, err
		}
		if pk != nil {
			c.metrics.packetRead()
			return pk, nil
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) && c.dec.Buffered() > 0 {
				readErr = io.ErrUnexpectedEOF
			}
			return nil, readErr
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d, ok := c.rw.(deadliner); ok {
			deadline, _ := ctx.Deadline()
			if err := d.SetReadDeadline(deadline); err != nil {
				return nil, err
			}
		}
		n, err := c.dec.ReadFrom(c.rw)
		c.metrics.bytesRead(n)
		readErr = err
	}
}

// WritePacket buffers p. Nothing is sent before Flush.
func (c *Conn) WritePacket(p packetcodec.Packet) error {
	if err := c.enc.AppendPacket(p); err != nil {
		c.logger.Debug().Err(err).Int32("packetID", p.ID()).Msg("packet not encoded")
		return err
	}
	c.metrics.packetWritten()
	return nil
}

// AppendPacket is WritePacket; it lets a Conn stand in for a packetcodec.PacketWriter.
func (c *Conn) AppendPacket(p packetcodec.Packet) error { return c.WritePacket(p) }

// Buffered returns the number of encoded bytes waiting for Flush.
func (c *Conn) Buffered() int { return c.enc.Len() }

// Flush writes every buffered packet to the stream.
func (c *Conn) Flush() error {
	for c.enc.Len() > 0 {
		n, err := c.enc.WriteTo(c.rw)
		c.metrics.bytesWritten(n)
		if err != nil && !errors.Is(err, io.ErrShortWrite) {
			c.logger.Warn().Err(err).Int("pending", c.enc.Len()).Msg("flush failed")
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
