package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts codec traffic. It may be shared by many Conns; a nil
// *Metrics counts nothing.
type Metrics struct {
	PacketsRead    prometheus.Counter
	PacketsWritten prometheus.Counter
	BytesRead      prometheus.Counter
	BytesWritten   prometheus.Counter
	DecodeErrors   prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PacketsRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: "packetcodec", Name: "packets_read_total",
			Help: "Packets decoded from peers.",
		}),
		PacketsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: "packetcodec", Name: "packets_written_total",
			Help: "Packets encoded for peers.",
		}),
		BytesRead: f.NewCounter(prometheus.CounterOpts{
			Namespace: "packetcodec", Name: "read_bytes_total",
			Help: "Raw bytes read from peers.",
		}),
		BytesWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: "packetcodec", Name: "written_bytes_total",
			Help: "Raw bytes written to peers.",
		}),
		DecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "packetcodec", Name: "decode_errors_total",
			Help: "Frames that failed to decode.",
		}),
	}
}

func (m *Metrics) packetRead() {
	if m != nil {
		m.PacketsRead.Inc()
	}
}

func (m *Metrics) packetWritten() {
	if m != nil {
		m.PacketsWritten.Inc()
	}
}

func (m *Metrics) bytesRead(n int64) {
	if m != nil && n > 0 {
		m.BytesRead.Add(float64(n))
	}
}

func (m *Metrics) bytesWritten(n int64) {
	if m != nil && n > 0 {
		m.BytesWritten.Add(float64(n))
	}
}

func (m *Metrics) decodeError() {
	if m != nil {
		m.DecodeErrors.Inc()
	}
}
