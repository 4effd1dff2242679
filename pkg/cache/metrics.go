package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by GraphQL operation
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rm_cache_hits_total",
			Help: "Total number of query cache hits",
		},
		[]string{"operation"},
	)

	// CacheMisses tracks cache misses by GraphQL operation
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rm_cache_misses_total",
			Help: "Total number of query cache misses",
		},
		[]string{"operation"},
	)

	// CachePurged tracks entries removed by Purge
	CachePurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rm_cache_purged_total",
			Help: "Total number of query cache entries purged",
		},
		[]string{"operation"},
	)

	// CacheSize tracks bytes written to the cache by layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rm_cache_size_bytes",
			Help: "Bytes written to the query cache",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rm_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "purge"
	)
)
