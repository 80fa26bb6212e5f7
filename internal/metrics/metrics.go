// Package metrics exposes Prometheus collectors for the scholarship service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry groups the service collectors. A nil *Registry is a no-op.
type Registry struct {
	operations *prometheus.CounterVec
	payouts    *prometheus.CounterVec
	pending    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scholarship",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Scholarship operations segmented by operation and result code.",
		}, []string{"operation", "code"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scholarship",
			Subsystem: "payout",
			Name:      "dispatch_total",
			Help:      "Payment instruction dispatch attempts segmented by outcome.",
		}, []string{"outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scholarship",
			Subsystem: "payout",
			Name:      "pending_instructions",
			Help:      "Payment instructions waiting to be dispatched.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.operations, r.payouts, r.pending)
	}
	return r
}

func (r *Registry) ObserveOperation(operation, code string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, code).Inc()
}

func (r *Registry) ObservePayout(outcome string) {
	if r == nil {
		return
	}
	r.payouts.WithLabelValues(outcome).Inc()
}

func (r *Registry) SetPendingPayouts(n int64) {
	if r == nil {
		return
	}
	r.pending.Set(float64(n))
}
