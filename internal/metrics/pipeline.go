package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	ItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "items_total",
			Help:      "Items processed by terminal state",
		},
		[]string{"state"}, // complete / complete_partial / skipped_duplicate / failed / rejected
	)

	ItemDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsdex",
			Name:      "item_duration_seconds",
			Help:      "End-to-end item processing duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"state"},
	)

	AnalyzerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "analyzer_requests_total",
			Help:      "Analyzer calls by capability and settled status",
		},
		[]string{"analyzer", "status"}, // ok / cached / timed_out / failed
	)

	AnalyzerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsdex",
			Name:      "analyzer_duration_seconds",
			Help:      "Analyzer call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"analyzer"},
	)

	DedupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "dedup_total",
			Help:      "Duplicate index outcomes",
		},
		[]string{"method"}, // exact / semantic / unique
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "cache_total",
			Help:      "Analyzer result cache hits and misses by tier",
		},
		[]string{"tier", "result"}, // local|shared, hit|miss
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsdex",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	RetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "retries_total",
			Help:      "Item re-analysis attempts after total analyzer failure",
		},
	)
)

var registered bool

// Register registers pipeline metrics. Must be called once from main (no init()).
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(ItemsTotal)
	prometheus.MustRegister(ItemDuration)
	prometheus.MustRegister(AnalyzerRequestsTotal)
	prometheus.MustRegister(AnalyzerDuration)
	prometheus.MustRegister(DedupTotal)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(RetriesTotal)
	registered = true
}
