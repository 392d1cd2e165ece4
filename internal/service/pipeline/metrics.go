package pipeline

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_queries_total",
			Help: "Queries answered by the pipeline, by outcome",
		},
		[]string{"outcome"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rag_query_duration_seconds",
			Help:    "End-to-end pipeline latency excluding history persistence",
			Buckets: prometheus.DefBuckets,
		},
	)
	retrievalDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_retrieval_degraded_total",
			Help: "Retriever failures replaced by an empty result",
		},
		[]string{"retriever"},
	)
	memoryDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_memory_degraded_total",
			Help: "Conversation memory failures that were ignored",
		},
		[]string{"op"},
	)

	metricsRegistered atomic.Bool
)

// RegisterMetrics registers the pipeline collectors once.
func RegisterMetrics(reg prometheus.Registerer) {
	if !metricsRegistered.CompareAndSwap(false, true) {
		return
	}

	reg.MustRegister(
		queriesTotal,
		queryDurationSeconds,
		retrievalDegradedTotal,
		memoryDegradedTotal,
	)
}
