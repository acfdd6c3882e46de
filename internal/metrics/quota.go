package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every quickai metric.
const Namespace = "quickai"

// Quota and entitlement Prometheus metrics.
var (
	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "quota_decisions_total",
			Help:      "Quota decisions by resource and outcome",
		},
		[]string{"resource", "outcome", "reason"}, // outcome: "allowed" / "denied" / "error"
	)

	EntitlementChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "entitlement_changes_total",
			Help:      "Premium grants and revocations",
		},
		[]string{"action"}, // "grant" / "revoke"
	)

	UsagePrunedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "usage_pruned_total",
			Help:      "Records removed by the retention sweep",
		},
		[]string{"table"},
	)
)

// Generation Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of upstream generation requests",
		},
		[]string{"kind", "model", "status"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "generation_duration_seconds",
			Help:      "Upstream generation duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind", "model"},
	)
)

var domainMetricsRegistered bool

// Register registers the quota, entitlement and generation metrics. Must be called once from main.
func Register() {
	if domainMetricsRegistered {
		return
	}
	prometheus.MustRegister(QuotaDecisionsTotal)
	prometheus.MustRegister(EntitlementChangesTotal)
	prometheus.MustRegister(UsagePrunedTotal)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationDuration)
	domainMetricsRegistered = true
}

// ObserveDecision counts one quota decision. A non-nil err is counted with outcome "error".
func ObserveDecision(resource string, allowed bool, reason string, err error) {
	outcome := "allowed"
	switch {
	case err != nil:
		outcome = "error"
	case !allowed:
		outcome = "denied"
	}
	QuotaDecisionsTotal.WithLabelValues(resource, outcome, reason).Inc()
}
