// Package metrics provides Prometheus metrics for the retrieval pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rag_assistant"

var (
	// StageDuration measures each pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of retrieval pipeline stages in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	// PhrasingSearchTotal counts per-phrasing fan-out outcomes.
	PhrasingSearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phrasing_search_total",
			Help:      "Total number of per-phrasing searches by outcome",
		},
		[]string{"status"},
	)

	// CandidateCount observes merged candidate set sizes.
	CandidateCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "merged_candidates",
			Help:      "Distribution of unique candidates after merging",
			Buckets:   []float64{0, 1, 5, 10, 20, 40, 80},
		},
	)

	// ContextTruncationsTotal counts prompts cut to the word budget.
	ContextTruncationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_truncations_total",
			Help:      "Total number of prompts truncated to the word budget",
		},
	)

	// AnswersTotal counts answered questions by provider.
	AnswersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Total number of answer requests",
		},
		[]string{"provider", "status"},
	)

	// IngestedDocumentsTotal counts documents written to the vector store.
	IngestedDocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_documents_total",
			Help:      "Total number of ingested documents",
		},
		[]string{"status"},
	)
)

// ObserveStage records the duration of a pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordPhrasingSearch records one fan-out search outcome.
func RecordPhrasingSearch(status string) {
	PhrasingSearchTotal.WithLabelValues(status).Inc()
}

// ObserveCandidates records the size of a merged candidate set.
func ObserveCandidates(n int) {
	CandidateCount.Observe(float64(n))
}

// RecordContextTruncation records a prompt cut to the word budget.
func RecordContextTruncation() {
	ContextTruncationsTotal.Inc()
}

// RecordAnswer records a completed or failed answer request.
func RecordAnswer(provider, status string) {
	AnswersTotal.WithLabelValues(provider, status).Inc()
}

// RecordIngest records ingested documents. Skipped duplicates are counted
// separately from inserted rows.
func RecordIngest(inserted, skipped int64) {
	IngestedDocumentsTotal.WithLabelValues("inserted").Add(float64(inserted))
	IngestedDocumentsTotal.WithLabelValues("skipped").Add(float64(skipped))
}
