// Package metrics exposes Prometheus counters for workflow transitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bagtrack"

// Metrics holds all prometheus metrics.
type Metrics struct {
	BagTransitions       *prometheus.CounterVec
	PassengerTransitions *prometheus.CounterVec
	DirectivesPosted     *prometheus.CounterVec
	DirectivesResolved   *prometheus.CounterVec
	LoginFailures        *prometheus.CounterVec
	BagsRemoved          prometheus.Counter
}

// New registers the metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BagTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bag_transitions_total",
			Help:      "Bag location transitions by destination location.",
		}, []string{"to"}),
		PassengerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passenger_transitions_total",
			Help:      "Passenger status transitions by new status.",
		}, []string{"status"}),
		DirectivesPosted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_posted_total",
			Help:      "Board messages posted by message type (empty for free text).",
		}, []string{"type"}),
		DirectivesResolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directives_resolved_total",
			Help:      "Directives resolved by message type.",
		}, []string{"type"}),
		LoginFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_failures_total",
			Help:      "Failed logins by role and reason.",
		}, []string{"role", "reason"}),
		BagsRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bags_removed_total",
			Help:      "Bags deleted by violation handling or cascades.",
		}),
	}
}

// NewUnregistered returns metrics that are not exported anywhere.
func NewUnregistered() *Metrics { return New(prometheus.NewRegistry()) }
