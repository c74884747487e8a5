package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for campaign-studio.
type Metrics struct {
	// Wizard metrics
	WizardTransitions *prometheus.CounterVec
	ActiveWizards     prometheus.Gauge

	// Remote ads API metrics
	RemoteCalls   *prometheus.CounterVec
	RemoteLatency *prometheus.HistogramVec

	// Upload metrics
	Uploads     *prometheus.CounterVec
	UploadBytes *prometheus.CounterVec

	// Draft store metrics
	DraftOps *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// uses the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		WizardTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_transitions_total",
				Help:      "Wizard step transitions by step and result",
			},
			[]string{"step", "result"},
		),
		ActiveWizards: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "wizard_active",
				Help:      "Number of open wizards held in memory",
			},
		),
		RemoteCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_calls_total",
				Help:      "Calls to the ads API by operation and result",
			},
			[]string{"op", "result"},
		),
		RemoteLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_call_latency_seconds",
				Help:      "Ads API call latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op"},
		),
		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Settled creative uploads by status",
			},
			[]string{"status"},
		),
		UploadBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_bytes_total",
				Help:      "Bytes sent for creative uploads by status",
			},
			[]string{"status"},
		),
		DraftOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "draft_operations_total",
				Help:      "Draft store operations by backend, op and result",
			},
			[]string{"backend", "op", "result"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit hits by bucket",
			},
			[]string{"bucket"},
		),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}

	return m
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordTransition records a wizard step attempt.
func (m *Metrics) RecordTransition(step string, err error) {
	if m == nil {
		return
	}
	m.WizardTransitions.WithLabelValues(step, result(err)).Inc()
}

// RecordRemoteCall records an ads API call.
func (m *Metrics) RecordRemoteCall(op string, err error, latency time.Duration) {
	if m == nil {
		return
	}
	m.RemoteCalls.WithLabelValues(op, result(err)).Inc()
	m.RemoteLatency.WithLabelValues(op).Observe(latency.Seconds())
}

// RecordUpload records one settled upload.
func (m *Metrics) RecordUpload(status string, bytes int64) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(status).Inc()
	m.UploadBytes.WithLabelValues(status).Add(float64(bytes))
}

// RecordDraftOp records a draft store operation.
func (m *Metrics) RecordDraftOp(backend, op string, err error) {
	if m == nil {
		return
	}
	m.DraftOps.WithLabelValues(backend, op, result(err)).Inc()
}

// SetActiveWizards updates the open wizard gauge.
func (m *Metrics) SetActiveWizards(n int) {
	if m == nil {
		return
	}
	m.ActiveWizards.Set(float64(n))
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(bucket string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(bucket).Inc()
}
