package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks push delivery. Delivery is best effort, so drops are the
// number to watch.
type Metrics struct {
	Connections prometheus.Gauge
	Delivered   *prometheus.CounterVec
	Dropped     *prometheus.CounterVec
	BusFailures prometheus.Counter
	BusDegraded prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Connections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "petcare_realtime_connections",
			Help: "Open websocket connections on this instance",
		}),
		Delivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petcare_realtime_events_delivered_total",
			Help: "Events queued to a connection by scope",
		}, []string{"scope"}),
		Dropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petcare_realtime_events_dropped_total",
			Help: "Events not delivered by reason",
		}, []string{"reason"}),
		BusFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petcare_realtime_bus_publish_failures_total",
			Help: "Failed publishes to the cross-instance event bus",
		}),
		BusDegraded: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "petcare_realtime_bus_degraded",
			Help: "1 while the event bus circuit is open and delivery is local only",
		}),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.Connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.Connections.Dec()
	}
}

func (m *Metrics) IncrementDelivered(scope string, n int) {
	if m != nil && n > 0 {
		m.Delivered.WithLabelValues(scope).Add(float64(n))
	}
}

func (m *Metrics) IncrementDropped(reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementBusFailure() {
	if m != nil {
		m.BusFailures.Inc()
	}
}

func (m *Metrics) SetBusDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.BusDegraded.Set(1)
		return
	}
	m.BusDegraded.Set(0)
}
