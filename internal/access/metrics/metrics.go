package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for authorization decisions.
type Metrics struct {
	// Decisions by resolver ("role_gate", "relationship", "ownership") and outcome ("grant", "deny")
	Decisions *prometheus.CounterVec

	// Denials by resolver and denial reason
	Denials *prometheus.CounterVec

	// Latency of the appointment lookup behind a relationship decision
	RelationshipLookup prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petcare_access_decisions_total",
			Help: "Total authorization decisions by resolver and outcome",
		}, []string{"resolver", "outcome"}),

		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petcare_access_denials_total",
			Help: "Total authorization denials by resolver and reason",
		}, []string{"resolver", "reason"}),

		RelationshipLookup: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "petcare_access_relationship_lookup_duration_seconds",
			Help:    "Duration of appointment lookups backing vet relationship decisions",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
	}
}

func (m *Metrics) IncrementGrant(resolver string) {
	if m != nil {
		m.Decisions.WithLabelValues(resolver, "grant").Inc()
	}
}

// IncrementDenial counts a deny decision and its reason.
func (m *Metrics) IncrementDenial(resolver, reason string) {
	if m != nil {
		m.Decisions.WithLabelValues(resolver, "deny").Inc()
		m.Denials.WithLabelValues(resolver, reason).Inc()
	}
}

func (m *Metrics) ObserveRelationshipLookup(d time.Duration) {
	if m != nil {
		m.RelationshipLookup.Observe(d.Seconds())
	}
}
