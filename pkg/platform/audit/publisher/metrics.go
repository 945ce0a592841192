package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit side channel.
type Metrics struct {
	Recorded       *prometheus.CounterVec
	DeadLetter     *prometheus.CounterVec
	MirrorFailures prometheus.Counter
	BufferDepth    prometheus.Gauge
}

// NewMetrics registers audit metrics with the default registry. Call once per
// process.
func NewMetrics() *Metrics {
	return &Metrics{
		Recorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petcare_audit_recorded_total",
			Help: "Total number of audit entries persisted",
		}, []string{"action"}),
		DeadLetter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petcare_audit_dead_letter_total",
			Help: "Total number of audit entries that could not be persisted",
		}, []string{"reason"}),
		MirrorFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petcare_audit_mirror_failures_total",
			Help: "Total number of persisted audit entries the stream mirror failed to publish",
		}),
		BufferDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "petcare_audit_buffer_depth",
			Help: "Audit entries waiting in the async buffer",
		}),
	}
}

func (m *Metrics) IncRecorded(action string) {
	if m == nil {
		return
	}
	m.Recorded.WithLabelValues(action).Inc()
}

func (m *Metrics) IncDeadLetter(reason string) {
	if m == nil {
		return
	}
	m.DeadLetter.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncMirrorFailures() {
	if m == nil {
		return
	}
	m.MirrorFailures.Inc()
}

func (m *Metrics) SetBufferDepth(n int) {
	if m == nil {
		return
	}
	m.BufferDepth.Set(float64(n))
}
