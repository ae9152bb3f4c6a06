package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Relay request metrics
	relayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhasha_relay_requests_total",
			Help: "Total number of upstream relay requests",
		},
		[]string{"relay", "engine", "status"},
	)

	relayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bhasha_relay_request_duration_seconds",
			Help:    "Duration of upstream relay requests in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"relay", "engine", "status"},
	)

	relayRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bhasha_relay_request_size_bytes",
			Help:    "Size of the text sent upstream in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
		},
		[]string{"relay", "engine"},
	)

	relayResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bhasha_relay_response_size_bytes",
			Help:    "Size of the upstream result in bytes",
			Buckets: []float64{100, 1000, 10000, 50000, 100000, 500000, 1000000, 5000000},
		},
		[]string{"relay", "engine"},
	)

	translationModeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhasha_translation_mode_total",
			Help: "Translation requests by instruction mode",
		},
		[]string{"mode"},
	)

	speechVoiceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhasha_speech_voice_total",
			Help: "Speech requests by resolved voice; fallback is true when the requested code was not supported",
		},
		[]string{"voice", "fallback"},
	)
)

// MetricsCollector records metrics for one relay and engine.
type MetricsCollector struct {
	relay  string
	engine string
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(relay, engine string) *MetricsCollector {
	return &MetricsCollector{
		relay:  relay,
		engine: engine,
	}
}

// RecordRequest records metrics for one upstream call.
func (mc *MetricsCollector) RecordRequest(duration time.Duration, success bool, requestSize, responseSize int) {
	status := "success"
	if !success {
		status = "error"
	}

	relayRequestsTotal.WithLabelValues(mc.relay, mc.engine, status).Inc()
	relayRequestDuration.WithLabelValues(mc.relay, mc.engine, status).Observe(duration.Seconds())
	relayRequestSize.WithLabelValues(mc.relay, mc.engine).Observe(float64(requestSize))
	if success {
		relayResponseSize.WithLabelValues(mc.relay, mc.engine).Observe(float64(responseSize))
	}
}

// RecordMode counts a translation request by mode.
func (mc *MetricsCollector) RecordMode(mode string) {
	translationModeTotal.WithLabelValues(mode).Inc()
}

// RecordVoice counts a speech request by resolved voice.
func (mc *MetricsCollector) RecordVoice(voice string, fallback bool) {
	fb := "false"
	if fallback {
		fb = "true"
	}
	speechVoiceTotal.WithLabelValues(voice, fb).Inc()
}
