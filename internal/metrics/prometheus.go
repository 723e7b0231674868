package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the speech translator client
type Metrics struct {
	// Capture metrics
	RecordingsStarted  prometheus.Counter
	RecordingsFinished prometheus.Counter
	RecordingsDropped  prometheus.Counter
	CaptureFailures    prometheus.Counter
	RecordingDuration  prometheus.Histogram
	RecordingSize      prometheus.Histogram

	// Payload metrics
	PayloadsEncoded  prometheus.Counter
	PayloadFallbacks *prometheus.CounterVec
	PayloadSize      prometheus.Histogram

	// Exchange metrics
	ExchangeRequests  prometheus.Counter
	ExchangeSuccesses prometheus.Counter
	ExchangeFailures  *prometheus.CounterVec
	ExchangeDuration  prometheus.Histogram

	// Text metrics
	TextRequests *prometheus.CounterVec

	// Playback metrics
	PlaybackFailures *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
// A nil reg registers with the Prometheus default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Capture metrics
		RecordingsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "translator_recordings_started_total",
			Help: "Total number of recording sessions started",
		}),
		RecordingsFinished: factory.NewCounter(prometheus.CounterOpts{
			Name: "translator_recordings_finished_total",
			Help: "Total number of recording sessions finalized into a blob",
		}),
		RecordingsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "translator_recordings_dropped_total",
			Help: "Total number of recording sessions that produced no audio",
		}),
		CaptureFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "translator_capture_failures_total",
			Help: "Total number of capture device failures",
		}),
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "translator_recording_duration_seconds",
			Help:    "Wall-clock duration of recording sessions",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		}),
		RecordingSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "translator_recording_size_bytes",
			Help:    "Size of finalized recording blobs in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 14), // 1KB to ~16MB
		}),

		// Payload metrics
		PayloadsEncoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "translator_payloads_encoded_total",
			Help: "Total number of recordings converted to WAV",
		}),
		PayloadFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_payload_fallbacks_total",
			Help: "Total number of recordings sent as original bytes",
		}, []string{"reason"}),
		PayloadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "translator_payload_size_bytes",
			Help:    "Size of base64 payloads sent to the backend",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 14),
		}),

		// Exchange metrics
		ExchangeRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "translator_exchange_requests_total",
			Help: "Total number of speech translation requests sent",
		}),
		ExchangeSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "translator_exchange_successes_total",
			Help: "Total number of successful speech translation requests",
		}),
		ExchangeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_exchange_failures_total",
			Help: "Total number of failed speech translation requests",
		}, []string{"error_type"}),
		ExchangeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "translator_exchange_duration_seconds",
			Help:    "Duration of speech translation requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),

		// Text metrics
		TextRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_text_requests_total",
			Help: "Total number of text translate and read-aloud requests",
		}, []string{"operation", "result"}),

		// Playback metrics
		PlaybackFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_playback_failures_total",
			Help: "Total number of swallowed playback failures",
		}, []string{"source"}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_http_requests_total",
			Help: "Total number of control API requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "translator_http_request_duration_seconds",
			Help:    "Duration of control API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_http_errors_total",
			Help: "Total number of control API errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordRecordingStarted increments the recordings started counter
func (m *Metrics) RecordRecordingStarted() {
	if m == nil {
		return
	}
	m.RecordingsStarted.Inc()
}

// RecordRecordingFinished records a finalized recording
func (m *Metrics) RecordRecordingFinished(durationSeconds float64, sizeBytes int) {
	if m == nil {
		return
	}
	m.RecordingsFinished.Inc()
	m.RecordingDuration.Observe(durationSeconds)
	m.RecordingSize.Observe(float64(sizeBytes))
}

// RecordRecordingDropped increments the dropped recordings counter
func (m *Metrics) RecordRecordingDropped() {
	if m == nil {
		return
	}
	m.RecordingsDropped.Inc()
}

// RecordCaptureFailure increments the capture failures counter
func (m *Metrics) RecordCaptureFailure() {
	if m == nil {
		return
	}
	m.CaptureFailures.Inc()
}

// RecordPayloadEncoded records a successful WAV conversion
func (m *Metrics) RecordPayloadEncoded(sizeBytes int) {
	if m == nil {
		return
	}
	m.PayloadsEncoded.Inc()
	m.PayloadSize.Observe(float64(sizeBytes))
}

// RecordPayloadFallback records a recording sent as its original bytes
func (m *Metrics) RecordPayloadFallback(reason string, sizeBytes int) {
	if m == nil {
		return
	}
	m.PayloadFallbacks.WithLabelValues(reason).Inc()
	m.PayloadSize.Observe(float64(sizeBytes))
}

// RecordExchangeRequest increments the exchange requests counter
func (m *Metrics) RecordExchangeRequest() {
	if m == nil {
		return
	}
	m.ExchangeRequests.Inc()
}

// RecordExchangeSuccess records a successful exchange
func (m *Metrics) RecordExchangeSuccess(durationSeconds float64) {
	if m == nil {
		return
	}
	m.ExchangeSuccesses.Inc()
	m.ExchangeDuration.Observe(durationSeconds)
}

// RecordExchangeFailure records a failed exchange
func (m *Metrics) RecordExchangeFailure(errorType string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ExchangeFailures.WithLabelValues(errorType).Inc()
	m.ExchangeDuration.Observe(durationSeconds)
}

// RecordTextRequest records a text request outcome, e.g. ("read_aloud", "success")
func (m *Metrics) RecordTextRequest(operation, result string) {
	if m == nil {
		return
	}
	m.TextRequests.WithLabelValues(operation, result).Inc()
}

// RecordPlaybackFailure records a swallowed playback failure
func (m *Metrics) RecordPlaybackFailure(source string) {
	if m == nil {
		return
	}
	m.PlaybackFailures.WithLabelValues(source).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
