// Package metrics declares the Prometheus collectors shared by the gateways
// and the session engine. They register with the default registry and are
// served by promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for the gateway label
const (
	GatewayText  = "text"
	GatewayImage = "image"
)

// Label values for the status label
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hushpath_gateway_requests_total",
			Help: "Total number of backend calls made by the gateways.",
		},
		[]string{"gateway", "backend", "status"},
	)
	GatewayRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hushpath_gateway_retries_total",
			Help: "Total number of gateway retries after a failed attempt.",
		},
		[]string{"gateway"},
	)
	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hushpath_gateway_request_duration_seconds",
			Help:    "Histogram of gateway call durations including retries.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway"},
	)
	ImageFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hushpath_image_procedural_fallbacks_total",
			Help: "Total number of images served by the procedural silhouette generator.",
		},
	)
	NormalizeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hushpath_normalize_failures_total",
			Help: "Total number of model replies rejected by the normalizer.",
		},
		[]string{"reason"},
	)
	ArtResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hushpath_art_resolutions_total",
			Help: "Scene and portrait art outcomes by the strategy that produced them.",
		},
		[]string{"slot", "source"},
	)
	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hushpath_turn_duration_seconds",
			Help:    "Histogram of full turn durations, art included.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. 128s
		},
		[]string{"kind", "status"},
	)
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hushpath_active_sessions",
			Help: "Number of sessions held by the session manager.",
		},
	)
)
