// Package metrics exposes counters for request outcomes and for failures that are
// absorbed locally (corrupt history, skipped citation chunks).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

var (
	Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentix",
		Name:      "analyses_total",
		Help:      "Sentiment analysis requests by outcome.",
	}, []string{"outcome"})

	ChatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentix",
		Name:      "chat_turns_total",
		Help:      "Assistant turns by outcome.",
	}, []string{"outcome"})

	CitationChunksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentix",
		Name:      "citation_chunks_skipped_total",
		Help:      "Grounding chunks dropped for lacking a web uri/title.",
	})

	HistoryLoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentix",
		Name:      "history_load_failures_total",
		Help:      "Stored history that could not be decoded and was reset.",
	})

	HistoryPersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentix",
		Name:      "history_persist_failures_total",
		Help:      "History writes that failed to reach durable storage.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
