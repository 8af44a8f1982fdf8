package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_http_requests_total",
		Help: "Total HTTP requests by method, route and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Translation metrics
var (
	// TranslationDecisions counts how each translate call was resolved:
	// "same_language", "scrubbed", "cache", "provider", "failed", "disabled".
	TranslationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_translation_decisions_total",
		Help: "Outcome of each translation attempt",
	}, []string{"outcome"})

	TranslationProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_translation_provider_errors_total",
		Help: "Translation provider errors by kind (network, api, parse, empty)",
	}, []string{"provider", "kind"})

	TranslationProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_translation_provider_latency_seconds",
		Help:    "Latency of external translation provider calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"provider"})

	TranslationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_translation_cache_hits_total",
		Help: "Translation cache hits",
	})

	TranslationCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_translation_cache_misses_total",
		Help: "Translation cache misses",
	})
)

// Relay metrics
var (
	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_ingested_total",
		Help: "Messages stored, by sender type",
	}, []string{"sender"})

	AutoRepliesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_auto_replies_total",
		Help: "FAQ auto-replies injected",
	})

	ConversationsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_conversations_open",
		Help: "Conversations currently in active status",
	})

	MessagesUnread = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_messages_unread",
		Help: "Visitor messages not yet read by an operator",
	})

	TranslationCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_translation_cache_entries",
		Help: "Rows in the translation cache",
	})
)
