package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics counts outbound payment gateway calls.
type GatewayMetrics struct {
	calls *prometheus.CounterVec
}

// NewGatewayMetrics registers gateway call metrics on reg.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "calls_total",
		Help:      "Outbound payment gateway calls by operation and outcome (ok, error, open).",
	}, []string{"operation", "outcome"})
	reg.MustRegister(calls)
	return &GatewayMetrics{calls: calls}
}

// Inc counts one call.
func (g *GatewayMetrics) Inc(operation, outcome string) {
	if g == nil || g.calls == nil {
		return
	}
	g.calls.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}
