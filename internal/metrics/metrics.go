// Package metrics provides Prometheus metrics for the newsroom API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsroom"

var (
	// CacheLookups counts cache reads by cache name and outcome.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups",
		},
		[]string{"cache", "result"},
	)

	// CacheEvictions counts entries dropped to respect a size cap.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of cache evictions",
		},
		[]string{"cache"},
	)

	// CardRenderDuration measures social card compositing time.
	CardRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "social_card_render_seconds",
			Help:      "Duration of social card renders in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"size"},
	)

	// AssetFetches counts upstream asset fetches by kind and outcome.
	AssetFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_fetches_total",
			Help:      "Total number of upstream asset fetches",
		},
		[]string{"kind", "status"},
	)

	// FetchRetries counts retry attempts against upstream hosts.
	FetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_fetch_retries_total",
			Help:      "Total number of upstream fetch retries",
		},
	)

	// ProxyFallbacks counts placeholder responses from the image proxy.
	ProxyFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_proxy_fallbacks_total",
			Help:      "Total number of placeholder images served by the proxy",
		},
		[]string{"reason"},
	)
)

// RecordCacheLookup records a hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordEviction records a capacity eviction.
func RecordEviction(cache string) {
	CacheEvictions.WithLabelValues(cache).Inc()
}

// RecordRender records a card render.
func RecordRender(size string, seconds float64) {
	CardRenderDuration.WithLabelValues(size).Observe(seconds)
}

// RecordFetch records an upstream fetch outcome.
func RecordFetch(kind, status string) {
	AssetFetches.WithLabelValues(kind, status).Inc()
}

// RecordRetry records one retry attempt.
func RecordRetry() {
	FetchRetries.Inc()
}

// RecordProxyFallback records a placeholder response.
func RecordProxyFallback(reason string) {
	ProxyFallbacks.WithLabelValues(reason).Inc()
}
