// Package metrics defines the Prometheus collectors for the translation
// backend. All collectors are registered via promauto at init time and
// exposed on /metrics by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP layer
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speechtotalk_http_requests_total",
		Help: "Total HTTP requests by method, route and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "speechtotalk_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// Translation pipeline
	TranslationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speechtotalk_translation_requests_total",
		Help: "Translations served, labeled by source: cache, similar, phrasebook, api, identity",
	}, []string{"source"})

	TranslationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speechtotalk_translation_errors_total",
		Help: "Translation failures by error class (network, auth, quota, ...)",
	}, []string{"class"})

	TranslationAPILatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speechtotalk_translation_api_latency_seconds",
		Help:    "Remote translation API call latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	// Cache
	TranslationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speechtotalk_translation_cache_hits_total",
		Help: "Exact cache hits",
	})

	TranslationCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speechtotalk_translation_cache_misses_total",
		Help: "Exact cache misses",
	})

	CacheEntriesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "speechtotalk_cache_entries",
		Help: "Entries currently held in the translation cache",
	})

	CacheEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speechtotalk_cache_evicted_total",
		Help: "Entries removed by eviction passes",
	})

	CacheSizeBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "speechtotalk_cache_size_bytes",
		Help: "Serialized cache size, raw vs compressed",
	}, []string{"encoding"})

	// Conversation
	ConversationTurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speechtotalk_conversation_turns_total",
		Help: "Utterances recorded with a reliable language detection",
	})

	DetectionDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speechtotalk_detection_dropped_total",
		Help: "Utterances dropped because language detection was unreliable",
	})
)
