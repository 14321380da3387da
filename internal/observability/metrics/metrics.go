package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for the intake and export flows.
type LeadMetrics struct {
	submissionsTotal *prometheus.CounterVec
	exportsTotal     *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	fallbackOps      *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leads",
			Subsystem: "intake",
			Name:      "submissions_total",
			Help:      "Lead submissions by form type and outcome",
		}, []string{"type", "outcome"}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leads",
			Subsystem: "admin",
			Name:      "exports_total",
			Help:      "Admin listings/exports by format and outcome",
		}, []string{"format", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leads",
			Subsystem: "github",
			Name:      "request_seconds",
			Help:      "Latency of issue store calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 10},
		}, []string{"operation", "outcome"}),
		fallbackOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leads",
			Subsystem: "fallback",
			Name:      "operations_total",
			Help:      "Local fallback store operations by outcome",
		}, []string{"operation", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.exportsTotal, m.upstreamLatency, m.fallbackOps)
	return m
}

func (m *LeadMetrics) ObserveSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *LeadMetrics) ObserveExport(format, outcome string) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(format, outcome).Inc()
}

func (m *LeadMetrics) ObserveUpstream(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(operation, outcome).Observe(seconds)
}

func (m *LeadMetrics) ObserveFallback(operation, outcome string) {
	if m == nil {
		return
	}
	m.fallbackOps.WithLabelValues(operation, outcome).Inc()
}
