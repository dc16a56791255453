// Package metrics exposes game and abuse-monitoring counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "geoguess"

// Authentication failure reasons
const (
	ReasonMalformed         = "malformed_assertion"
	ReasonMissingSignature  = "missing_signature"
	ReasonSignatureMismatch = "signature_mismatch"
	ReasonMalformedUser     = "malformed_user"
	ReasonTestAuthDisabled  = "test_auth_disabled"
)

// Metrics holds the counters recorded by the game.
// Each instance owns its own registry so tests can run in parallel.
type Metrics struct {
	registry *prometheus.Registry

	AuthFailures    *prometheus.CounterVec
	Authentications prometheus.Counter
	RoundsOpened    prometheus.Counter
	RoundsClosed    prometheus.Counter
	GuessesAccepted prometheus.Counter
}

// New creates and registers all counters
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected identity assertions by reason.",
		}, []string{"reason"}),
		Authentications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentications_total",
			Help:      "Successful session authentications.",
		}),
		RoundsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_opened_total",
			Help:      "Rounds opened by the operator.",
		}),
		RoundsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_closed_total",
			Help:      "Rounds closed and scored.",
		}),
		GuessesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guesses_accepted_total",
			Help:      "Guesses accepted into an open round.",
		}),
	}

	m.registry.MustRegister(
		m.AuthFailures,
		m.Authentications,
		m.RoundsOpened,
		m.RoundsClosed,
		m.GuessesAccepted,
	)
	return m
}

// RecordAuthFailure increments the failure counter for reason
func (m *Metrics) RecordAuthFailure(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
