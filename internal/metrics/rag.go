package metrics

import "github.com/prometheus/client_golang/prometheus"

// RAG pipeline Prometheus metrics.
var (
	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragway",
			Name:      "cache_total",
			Help:      "Cache hits and misses per key namespace",
		},
		[]string{"namespace", "result"}, // result: "hit" / "miss"
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragway",
			Name:      "generation_requests_total",
			Help:      "Total number of model backend invocations",
		},
		[]string{"model", "status"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragway",
			Name:      "generation_duration_seconds",
			Help:      "Model backend invocation duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragway",
			Name:      "retrieval_requests_total",
			Help:      "Total number of vector index searches",
		},
		[]string{"status"},
	)

	RetrievalDocuments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ragway",
			Name:      "retrieval_documents",
			Help:      "Number of documents surviving retrieval per request",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragway",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragway",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragway",
			Name:      "embedding_degraded_total",
			Help:      "Embeddings produced by the deterministic fallback instead of the provider",
		},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragway",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var ragMetricsRegistered bool

// RegisterRAGMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterRAGMetrics() {
	if ragMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalDocuments)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingDegradedTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	ragMetricsRegistered = true
}
