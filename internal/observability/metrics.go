package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the aggregation and simulation pipeline, using a namespace/subsystem layout,
// promauto registration).

var (
	PollCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hldesk",
		Subsystem: "poller",
		Name:      "cycle_duration_ms",
		Help:      "Duration of one aggregate+cache+dispatch poll cycle in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})

	PollCyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hldesk",
		Subsystem: "poller",
		Name:      "cycles_skipped_total",
		Help:      "Ticks coalesced because the previous cycle was still running",
	})

	VenueFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hldesk",
		Subsystem: "venue",
		Name:      "fetch_latency_ms",
		Help:      "Latency of one venue adapter Fetch call in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"venue"})

	VenueFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hldesk",
		Subsystem: "venue",
		Name:      "fetch_errors_total",
		Help:      "Venue adapter Fetch failures",
	}, []string{"venue"})

	AssetsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hldesk",
		Subsystem: "cache",
		Name:      "assets_tracked",
		Help:      "Number of assets present in the current aggregate",
	})

	PaperCyclesRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hldesk",
		Subsystem: "paper",
		Name:      "cycles_total",
		Help:      "Paper-trading cycles run per portfolio strategy",
	}, []string{"strategy", "outcome"})

	PaperPositionsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hldesk",
		Subsystem: "paper",
		Name:      "positions_opened_total",
		Help:      "Paper positions opened",
	}, []string{"strategy", "asset"})

	PaperPositionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hldesk",
		Subsystem: "paper",
		Name:      "positions_closed_total",
		Help:      "Paper positions closed, labeled by exit reason",
	}, []string{"strategy", "reason"})

	AiCyclesRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hldesk",
		Subsystem: "aitrader",
		Name:      "cycles_total",
		Help:      "AI trader cycles run",
	}, []string{"trader", "action"})

	AiLLMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hldesk",
		Subsystem: "aitrader",
		Name:      "llm_latency_ms",
		Help:      "LLM completion call latency in milliseconds",
		Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 45000},
	}, []string{"model", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hldesk",
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request handling duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"method", "path", "status"})
)
