package metrics

import "github.com/prometheus/client_golang/prometheus"

// TrackingMetrics exposes counters/histograms for the patient monitoring loop.
type TrackingMetrics struct {
	cyclesTotal        prometheus.Counter
	extractionsTotal   *prometheus.CounterVec
	dischargesTotal    prometheus.Counter
	outboundTotal      *prometheus.CounterVec
	extractionDuration prometheus.Histogram
}

func NewTrackingMetrics(reg prometheus.Registerer) *TrackingMetrics {
	m := &TrackingMetrics{
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chartwatch",
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Total tracking board polling cycles",
		}),
		extractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chartwatch",
			Subsystem: "monitor",
			Name:      "extractions_total",
			Help:      "Total patient extraction attempts",
		}, []string{"outcome", "source"}),
		dischargesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chartwatch",
			Subsystem: "monitor",
			Name:      "discharges_total",
			Help:      "Total discharge expirations applied",
		}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chartwatch",
			Subsystem: "outbound",
			Name:      "results_total",
			Help:      "Total outbound assessment results processed",
		}, []string{"status"}),
		extractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chartwatch",
			Subsystem: "monitor",
			Name:      "extraction_duration_seconds",
			Help:      "Wall time of single-patient demographic extraction",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.cyclesTotal, m.extractionsTotal, m.dischargesTotal, m.outboundTotal, m.extractionDuration)
	return m
}

func (m *TrackingMetrics) ObserveCycle() {
	if m == nil {
		return
	}
	m.cyclesTotal.Inc()
}

func (m *TrackingMetrics) ObserveExtraction(outcome, source string) {
	if m == nil {
		return
	}
	m.extractionsTotal.WithLabelValues(outcome, source).Inc()
}

func (m *TrackingMetrics) ObserveDischarge() {
	if m == nil {
		return
	}
	m.dischargesTotal.Inc()
}

func (m *TrackingMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *TrackingMetrics) ObserveExtractionDuration(seconds float64) {
	if m == nil {
		return
	}
	m.extractionDuration.Observe(seconds)
}
