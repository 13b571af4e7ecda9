// Package metrics exposes cooldown activity as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/keshon/cmdguard/internal/cooldown"
)

const namespace = "cmdguard"

// Metrics implements cooldown.Recorder.
type Metrics struct {
	Decisions     *prometheus.CounterVec
	WindowsOpened *prometheus.CounterVec
	StoreErrors   *prometheus.CounterVec
}

var _ cooldown.Recorder = (*Metrics)(nil)

// New creates and registers the counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Decisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cooldown_decisions_total",
				Help:      "Cooldown checks by action and outcome",
			},
			[]string{"action", "outcome"}, // outcome=allowed/denied
		),
		WindowsOpened: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cooldown_windows_started_total",
				Help:      "Cooldown windows opened by scope",
			},
			[]string{"scope", "durable"},
		),
		StoreErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cooldown_store_errors_total",
				Help:      "Durable store failures by operation",
			},
			[]string{"op"},
		),
	}
}

// RegisterActive adds a gauge that reports the manager's cache size at scrape time.
func RegisterActive(reg prometheus.Registerer, m *cooldown.Manager) {
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cooldown_windows_cached",
			Help:      "Cooldown windows held in memory, including expired ones not yet checked",
		},
		func() float64 { return float64(m.Len()) },
	)
}

func (m *Metrics) Decision(actionID string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.Decisions.WithLabelValues(actionID, outcome).Inc()
}

func (m *Metrics) Started(scope cooldown.Scope, durable bool) {
	m.WindowsOpened.WithLabelValues(scope.String(), strconv.FormatBool(durable)).Inc()
}

func (m *Metrics) StoreFailed(op string) {
	m.StoreErrors.WithLabelValues(op).Inc()
}
