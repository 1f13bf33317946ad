package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_scout_jobs_total",
			Help: "Agent outcomes per job (completed/failed).",
		},
		[]string{"agent", "outcome"},
	)

	itemsFiltered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_scout_items_filtered_total",
			Help: "Scraped items by filter decision (kept/dropped).",
		},
		[]string{"decision"},
	)

	audioEnrichment = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_scout_audio_enrichment_total",
			Help: "Audio enrichment attempts by outcome.",
		},
		[]string{"outcome"},
	)

	gateWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "creator_scout_gate_wait_seconds",
			Help:    "Time spent waiting for the enrichment gate.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	gateRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "creator_scout_gate_rejections_total",
			Help: "Tasks rejected for insufficient memory headroom.",
		},
	)

	llmCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_scout_llm_calls_total",
			Help: "Language service calls by prompt kind and success.",
		},
		[]string{"kind", "success"},
	)

	llmLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "creator_scout_llm_latency_ms",
			Help:    "Language service latency distribution in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000},
		},
		[]string{"provider"},
	)

	categoryBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_scout_category_batches_total",
			Help: "Classification batches by outcome.",
		},
		[]string{"outcome"},
	)

	scrapedRowsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_scout_scraped_rows_skipped_total",
			Help: "Dataset rows skipped by reason (provider_error/malformed).",
		},
		[]string{"reason"},
	)

	webhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creator_scout_webhook_deliveries_total",
			Help: "Webhook deliveries per agent and outcome.",
		},
		[]string{"agent", "outcome"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			jobsTotal, itemsFiltered, audioEnrichment,
			gateWait, gateRejections,
			llmCalls, llmLatencyMs, categoryBatches,
			scrapedRowsSkipped, webhookDeliveries,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncJob(agent, outcome string) {
	jobsTotal.WithLabelValues(norm(agent), norm(outcome)).Inc()
}

func AddFiltered(kept, dropped int) {
	itemsFiltered.WithLabelValues("kept").Add(float64(kept))
	itemsFiltered.WithLabelValues("dropped").Add(float64(dropped))
}

func IncAudio(outcome string) {
	audioEnrichment.WithLabelValues(norm(outcome)).Inc()
}

func ObserveGateWait(d time.Duration) {
	gateWait.Observe(d.Seconds())
}

func IncGateRejection() {
	gateRejections.Inc()
}

func ObserveLLMCall(provider, kind string, latency time.Duration, success bool) {
	llmCalls.WithLabelValues(norm(kind), strconv.FormatBool(success)).Inc()
	llmLatencyMs.WithLabelValues(norm(provider)).Observe(float64(latency.Milliseconds()))
}

func IncCategoryBatch(outcome string) {
	categoryBatches.WithLabelValues(norm(outcome)).Inc()
}

func IncWebhook(agent, outcome string) {
	webhookDeliveries.WithLabelValues(norm(agent), norm(outcome)).Inc()
}

func IncScrapedRowSkipped(reason string) {
	scrapedRowsSkipped.WithLabelValues(norm(reason)).Inc()
}
