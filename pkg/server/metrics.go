package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhasha_http_requests_total",
			Help: "Total number of HTTP requests by handler, method and status code",
		},
		[]string{"handler", "method", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bhasha_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"handler", "method"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bhasha_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// instrument records request count, duration and in-flight gauge for one route.
func instrument(handler string, next http.Handler) http.Handler {
	labels := prometheus.Labels{"handler": handler}
	return promhttp.InstrumentHandlerInFlight(httpRequestsInFlight,
		promhttp.InstrumentHandlerDuration(httpRequestDuration.MustCurryWith(labels),
			promhttp.InstrumentHandlerCounter(httpRequestsTotal.MustCurryWith(labels), next),
		),
	)
}
