package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the capture pipeline.
// All methods are safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	registry                *prometheus.Registry
	requestsTotal           prometheus.Counter
	errorsTotal             prometheus.Counter
	segmentsCapturedTotal   prometheus.Counter
	segmentsReconciledTotal prometheus.Counter
	segmentsUploadedTotal   prometheus.Counter
	uploadRetriesTotal      prometheus.Counter
	localDeleteErrorsTotal  prometheus.Counter
	uploadQueueDepth        prometheus.Gauge
	freeDiskBytes           prometheus.Gauge
}

// New creates and registers Prometheus metrics for the pipeline.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hatcam_http_requests_total",
			Help: "Total number of status HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hatcam_http_errors_total",
			Help: "Total number of status HTTP responses with error status (4xx or 5xx)",
		}),
		segmentsCapturedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hatcam_segments_captured_total",
			Help: "Total number of segments recorded and queued by the capture loop",
		}),
		segmentsReconciledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hatcam_segments_reconciled_total",
			Help: "Total number of leftover segments queued at startup",
		}),
		segmentsUploadedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hatcam_segments_uploaded_total",
			Help: "Total number of segments durably written to remote storage",
		}),
		uploadRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hatcam_upload_retries_total",
			Help: "Total number of failed upload attempts that were retried",
		}),
		localDeleteErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hatcam_local_delete_errors_total",
			Help: "Total number of uploaded segments whose local copy could not be removed",
		}),
		uploadQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hatcam_upload_queue_depth",
			Help: "Number of segments waiting in the upload queue",
		}),
		freeDiskBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hatcam_free_disk_bytes",
			Help: "Free bytes on the capture volume at the last disk-space check",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.segmentsCapturedTotal,
		m.segmentsReconciledTotal,
		m.segmentsUploadedTotal,
		m.uploadRetriesTotal,
		m.localDeleteErrorsTotal,
		m.uploadQueueDepth,
		m.freeDiskBytes,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m != nil {
		m.requestsTotal.Inc()
	}
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	if m != nil {
		m.errorsTotal.Inc()
	}
}

// IncSegmentsCaptured increments the captured segments counter.
func (m *Metrics) IncSegmentsCaptured() {
	if m != nil {
		m.segmentsCapturedTotal.Inc()
	}
}

// IncSegmentsReconciled increments the reconciled segments counter.
func (m *Metrics) IncSegmentsReconciled() {
	if m != nil {
		m.segmentsReconciledTotal.Inc()
	}
}

// IncSegmentsUploaded increments the uploaded segments counter.
func (m *Metrics) IncSegmentsUploaded() {
	if m != nil {
		m.segmentsUploadedTotal.Inc()
	}
}

// IncUploadRetries increments the retried upload attempts counter.
func (m *Metrics) IncUploadRetries() {
	if m != nil {
		m.uploadRetriesTotal.Inc()
	}
}

// IncLocalDeleteErrors increments the failed local deletions counter.
func (m *Metrics) IncLocalDeleteErrors() {
	if m != nil {
		m.localDeleteErrorsTotal.Inc()
	}
}

// SetQueueDepth sets the upload queue depth gauge.
func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.uploadQueueDepth.Set(float64(n))
	}
}

// SetFreeDiskBytes sets the free disk space gauge.
func (m *Metrics) SetFreeDiskBytes(n int64) {
	if m != nil {
		m.freeDiskBytes.Set(float64(n))
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. queue depth).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
