package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docs_agent_ask_duration_seconds",
			Help:    "Question answering duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"intent"},
	)

	AskTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docs_agent_ask_total",
			Help: "Total number of questions answered",
		},
		[]string{"intent", "response_type"},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docs_agent_ingest_duration_seconds",
			Help:    "Document ingestion duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docs_agent_ingest_total",
			Help: "Total documents ingested",
		},
		[]string{"status"},
	)

	ChunksIndexed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docs_agent_chunks_indexed",
			Help: "Chunks in the vector index for the current document",
		},
	)

	EndpointsExtracted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docs_agent_endpoints_extracted",
			Help: "Endpoints extracted from the current document",
		},
	)

	CompletionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docs_agent_completion_duration_seconds",
			Help:    "LLM completion latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	EmbeddingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docs_agent_embedding_duration_seconds",
			Help:    "Embedding generation latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
	)

	RetrievalResultsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docs_agent_retrieval_results_count",
			Help:    "Number of chunks retrieved per question",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docs_agent_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docs_agent_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docs_agent_active_sessions",
			Help: "Sessions currently holding conversation memory",
		},
	)
)

func Init() {
	prometheus.MustRegister(AskDuration)
	prometheus.MustRegister(AskTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(IngestTotal)
	prometheus.MustRegister(ChunksIndexed)
	prometheus.MustRegister(EndpointsExtracted)
	prometheus.MustRegister(CompletionDuration)
	prometheus.MustRegister(EmbeddingDuration)
	prometheus.MustRegister(RetrievalResultsCount)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(ActiveSessions)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
