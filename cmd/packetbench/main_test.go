package main

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oy3o/packetcodec"
)

func TestRun(t *testing.T) {
	var logs bytes.Buffer
	cfg := benchConfig{Iterations: 20, Conns: 3, Threshold: 256, Level: packetcodec.DefaultCompressionLevel}
	require.NoError(t, run(cfg, zerolog.New(zerolog.SyncWriter(&logs)).Level(zerolog.InfoLevel)))

	for _, sc := range scenarios() {
		assert.Contains(t, logs.String(), `"scenario":"`+sc.name+`"`)
	}
	assert.Contains(t, logs.String(), `"compressed":true`)
	assert.Contains(t, logs.String(), `"compressed":false`)
}

func TestRunRejectsBadConfig(t *testing.T) {
	assert.Error(t, run(benchConfig{Iterations: 0, Conns: 1}, zerolog.Nop()))
	assert.Error(t, run(benchConfig{Iterations: 1, Conns: 0}, zerolog.Nop()))
}

func TestBenchConnCompresses(t *testing.T) {
	cfg := benchConfig{Iterations: 2, Level: packetcodec.DefaultCompressionLevel}
	chunk := scenarios()[0].packet

	plain, err := benchConn(cfg, packetcodec.NoCompression, chunk)
	require.NoError(t, err)
	compressed, err := benchConn(cfg, 256, chunk)
	require.NoError(t, err)
	assert.Less(t, compressed.frameSize, plain.frameSize)
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"-n", "5", "-c", "2", "--threshold", "64", "--json"}))

	n, err := cmd.Flags().GetInt("iterations")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	threshold, err := cmd.Flags().GetInt("threshold")
	require.NoError(t, err)
	assert.Equal(t, 64, threshold)
}
