package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "imageconv"

// Metrics bundles the prometheus instruments the service exports. A nil
// *Metrics drops every observation, which keeps the CLI free of a registry.
type Metrics struct {
	conversions    *prometheus.CounterVec
	duration       prometheus.Histogram
	originalBytes  prometheus.Counter
	convertedBytes prometheus.Counter
	uploads        prometheus.Counter
	reclaimed      prometheus.Counter
}

// New registers the instruments with reg. Pass a fresh registry in tests to
// avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Conversion attempts by output format, winning strategy and status.",
		}, []string{"format", "strategy", "status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Wall time of single file conversions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		originalBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "original_bytes_total",
			Help:      "Bytes of source images successfully converted.",
		}),
		convertedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "converted_bytes_total",
			Help:      "Bytes of encoded output produced.",
		}),
		uploads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Files accepted by the upload endpoint.",
		}),
		reclaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_dirs_reclaimed_total",
			Help:      "Stale session directories removed by the reclaimer.",
		}),
	}
}

// ObserveConversion records one conversion attempt.
func (m *Metrics) ObserveConversion(format, strategy, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(format, strategy, status).Inc()
	m.duration.Observe(d.Seconds())
}

// AddConversionBytes accumulates the size totals of a successful conversion.
func (m *Metrics) AddConversionBytes(original, converted int64) {
	if m == nil {
		return
	}
	m.originalBytes.Add(float64(original))
	m.convertedBytes.Add(float64(converted))
}

// AddUploads counts accepted upload files.
func (m *Metrics) AddUploads(n int) {
	if m == nil {
		return
	}
	m.uploads.Add(float64(n))
}

// AddReclaimed counts removed session directories.
func (m *Metrics) AddReclaimed(n int) {
	if m == nil {
		return
	}
	m.reclaimed.Add(float64(n))
}
