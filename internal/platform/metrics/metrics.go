package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds process-wide Prometheus metrics that do not belong to a
// single domain package.
type Metrics struct {
	AccountsCreated prometheus.Counter
	LoginsFailed    prometheus.Counter
	TokensRevoked   prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petcare_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		LoginsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petcare_logins_failed_total",
			Help: "Total number of rejected login attempts",
		}),
		TokensRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petcare_tokens_revoked_total",
			Help: "Total number of access tokens revoked by logout",
		}),
	}
}

func (m *Metrics) IncrementAccountsCreated() {
	if m == nil {
		return
	}
	m.AccountsCreated.Inc()
}

func (m *Metrics) IncrementLoginsFailed() {
	if m == nil {
		return
	}
	m.LoginsFailed.Inc()
}

func (m *Metrics) IncrementTokensRevoked() {
	if m == nil {
		return
	}
	m.TokensRevoked.Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
