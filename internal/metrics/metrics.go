// Package metrics exposes Prometheus collectors for the proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by handler and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsgate_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "status"})

	// HTTPDuration observes request latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlsgate_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// ManifestsRewritten counts playlist rewrites by playlist type.
	ManifestsRewritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsgate_manifests_rewritten_total",
		Help: "Playlists rewritten, labelled master or media.",
	}, []string{"type"})

	// SegmentsServed counts decrypted segments by method and format.
	SegmentsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsgate_segments_served_total",
		Help: "Media segments served by decryption method and container format.",
	}, []string{"method", "format"})

	// DecryptFailures counts segment decryption errors by method.
	DecryptFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsgate_decrypt_failures_total",
		Help: "Segment decryption failures by method.",
	}, []string{"method"})

	// InitCacheHits and InitCacheMisses track init-segment cache efficiency.
	InitCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsgate_init_cache_hits_total",
		Help: "Init segment cache hits.",
	})
	InitCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsgate_init_cache_misses_total",
		Help: "Init segment cache misses.",
	})
	InitCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsgate_init_cache_evictions_total",
		Help: "Init segment cache evictions.",
	})

	// UpstreamDuration observes upstream fetch latency by kind.
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlsgate_upstream_fetch_duration_seconds",
		Help:    "Upstream fetch latency, labelled manifest, segment or init.",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})

	// UpstreamErrors counts failed upstream fetches by kind.
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsgate_upstream_errors_total",
		Help: "Upstream fetch failures, labelled manifest, segment or init.",
	}, []string{"kind"})
)
