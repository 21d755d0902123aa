package metrics

import "github.com/prometheus/client_golang/prometheus"

// BreakerMetrics exposes the circuit breaker position as a labeled gauge:
// exactly one of closed/open/half_open is 1 at any time.
type BreakerMetrics struct {
	state *prometheus.GaugeVec
}

// NewBreakerMetrics registers the breaker gauge on the provided registerer.
func NewBreakerMetrics(reg prometheus.Registerer) *BreakerMetrics {
	if reg == nil {
		return &BreakerMetrics{}
	}
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "db_breaker_state",
		Help: "Database circuit breaker state (1 for the active state).",
	}, []string{"state"})
	reg.MustRegister(state)
	return &BreakerMetrics{state: state}
}

// SetState marks the named state active and all others inactive.
func (b *BreakerMetrics) SetState(active string) {
	if b == nil || b.state == nil {
		return
	}
	for _, candidate := range []string{"closed", "open", "half_open"} {
		value := 0.0
		if candidate == active {
			value = 1.0
		}
		b.state.WithLabelValues(candidate).Set(value)
	}
}
