package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "temoins_console"

// Refresh outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeShared  = "shared"
)

// Metrics groups the client side session counters.
type Metrics struct {
	Refreshes *prometheus.CounterVec // token refresh calls by outcome
	Retries   prometheus.Counter     // requests resent after a refresh
	Logouts   *prometheus.CounterVec // logouts by kind (explicit, silent, expired)
}

// New creates the collectors and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "Requests resent once after a successful token refresh.",
		}),
		Logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Session terminations by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Refreshes, m.Retries, m.Logouts)
	}
	return m
}

// Nop returns unregistered collectors, for components built without a registry.
func Nop() *Metrics {
	return New(nil)
}
