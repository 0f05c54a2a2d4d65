// Command packetbench measures encode and decode throughput of the packet codec
// for a few representative packets, with and without compression, on several
// simulated connections at once.
package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/oy3o/packetcodec"
	"github.com/oy3o/packetcodec/packets"
)

type benchConfig struct {
	Iterations int
	Conns      int
	Threshold  int
	Level      int
	JSON       bool
	Verbose    bool
}

type scenario struct {
	name   string
	packet packetcodec.Packet
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := benchConfig{}
	cmd := &cobra.Command{
		Use:           "packetbench",
		Short:         "Benchmark packet encoding and decoding",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cfg)
			if err := run(cfg, logger); err != nil {
				logger.Error().Err(err).Msg("benchmark failed")
				return err
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&cfg.Iterations, "iterations", "n", 10000, "packets per connection and scenario")
	flags.IntVarP(&cfg.Conns, "conns", "c", 4, "simulated connections, each with its own encoder and decoder")
	flags.IntVar(&cfg.Threshold, "threshold", 256, "compression threshold for the compressed runs")
	flags.IntVar(&cfg.Level, "level", packetcodec.DefaultCompressionLevel, "zlib compression level")
	flags.BoolVar(&cfg.JSON, "json", false, "log JSON instead of console output")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log per-connection results")
	return cmd
}

func newLogger(cfg benchConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	if cfg.JSON {
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()
}

func scenarios() []scenario {
	light := make([][]byte, packets.MaxLightArrayCount)
	for i := range light {
		light[i] = make([]byte, packets.LightArraySize)
		for j := range light[i] {
			light[i][j] = 0xFF
		}
	}
	blocks := make([]byte, 2000)
	for i := range blocks {
		blocks[i] = 0x80
	}

	return []scenario{
		{"chunk_data", &packets.ChunkData{
			ChunkX: 123, ChunkZ: 456,
			Heightmaps: make([]byte, 256*8),
			Blocks:     blocks,
			SkyLight:   light,
		}},
		{"tab_list_header_footer", &packets.SetTabListHeaderAndFooter{
			Header: `{"text":"this is the ","extra":[{"text":"header","bold":true,"color":"red"}]}`,
			Footer: `{"text":"this is the ","extra":[{"text":"footer","bold":true,"color":"blue"},` +
				`{"text":". I am appending some extra text so that the packet goes over the compression threshold."}]}`,
		}},
		{"spawn_entity", &packets.SpawnEntity{
			EntityID: 1234, Kind: 5,
			Position: [3]float64{123, 456, 789},
			Pitch:    200, Yaw: 100, HeadYaw: 50,
			Data:     -2147483648,
			Velocity: [3]int16{12, 34, 56},
		}},
	}
}

func run(cfg benchConfig, logger zerolog.Logger) error {
	if cfg.Iterations <= 0 || cfg.Conns <= 0 {
		return fmt.Errorf("iterations and conns must be positive")
	}
	pool, err := ants.NewPool(cfg.Conns)
	if err != nil {
		return err
	}
	defer pool.Release()

	for _, threshold := range []int{packetcodec.NoCompression, cfg.Threshold} {
		for _, sc := range scenarios() {
			if err := runScenario(pool, cfg, threshold, sc, logger); err != nil {
				return fmt.Errorf("%s: %w", sc.name, err)
			}
		}
	}
	return nil
}

func runScenario(pool *ants.Pool, cfg benchConfig, threshold int, sc scenario, logger zerolog.Logger) error {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		firstErr  error
		wireBytes atomic.Int64
		encodeNs  atomic.Int64
		decodeNs  atomic.Int64
	)

	for conn := 0; conn < cfg.Conns; conn++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			res, err := benchConn(cfg, threshold, sc.packet)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			wireBytes.Add(int64(res.frameSize))
			encodeNs.Add(int64(res.encode))
			decodeNs.Add(int64(res.decode))
			logger.Debug().Int("conn", conn).Dur("encode", res.encode).Dur("decode", res.decode).Msg(sc.name)
		})
		if err != nil {
			wg.Done()
			return err
		}
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	ops := int64(cfg.Iterations * cfg.Conns)
	logger.Info().
		Str("scenario", sc.name).
		Bool("compressed", threshold >= 0).
		Int64("frameBytes", wireBytes.Load()/int64(cfg.Conns)).
		Int64("encodeNsPerOp", encodeNs.Load()/ops).
		Int64("decodeNsPerOp", decodeNs.Load()/ops).
		Msg("done")
	return nil
}

type connResult struct {
	frameSize int
	encode    time.Duration
	decode    time.Duration
}

// benchConn mirrors one connection's tick loop: clear, append, then feed the
// produced frame to a decoder and drain it.
func benchConn(cfg benchConfig, threshold int, pk packetcodec.Packet) (connResult, error) {
	enc := packetcodec.NewEncoder()
	enc.SetCompressionLevel(cfg.Level)
	enc.SetCompression(threshold)
	dec := packetcodec.NewDecoder(nil)
	dec.SetCompression(threshold >= 0)

	var res connResult
	start := time.Now()
	for i := 0; i < cfg.Iterations; i++ {
		enc.Clear()
		if err := enc.AppendPacket(pk); err != nil {
			return res, err
		}
	}
	res.encode = time.Since(start)
	frame := enc.Bytes()
	res.frameSize = len(frame)

	start = time.Now()
	for i := 0; i < cfg.Iterations; i++ {
		dec.Queue(frame)
		got, err := dec.TryNext()
		if err != nil {
			return res, err
		}
		if got == nil {
			return res, fmt.Errorf("frame of %d bytes did not decode", len(frame))
		}
	}
	res.decode = time.Since(start)
	return res, nil
}
