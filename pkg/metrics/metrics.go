package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	FillsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_fills_submitted_total",
		Help: "The total number of fill submissions by intent type and outcome",
	}, []string{"intent_type", "status"})

	IntentProcessingTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solver_intent_processing_seconds",
		Help:    "Time taken to evaluate and submit against an intent",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // Start at 1s with 10 buckets doubling in size
	}, []string{"intent_type"})

	GasPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_gas_price_gwei",
		Help: "Current gas price in gwei",
	})

	ActionableIntents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_actionable_intents",
		Help: "The number of open intents the solver is currently considering",
	})

	EvaluationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_evaluation_errors_total",
		Help: "Total number of strategy or arithmetic failures during evaluation",
	}, []string{"intent_type"})

	UnprofitableSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_unprofitable_skips_total",
		Help: "Candidates skipped because the estimated profit was not positive",
	}, []string{"intent_type"})

	AuctionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_auction_rejections_total",
		Help: "Candidates rejected by the auction resolver before submission",
	}, []string{"intent_type"})

	StaleWindowSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_stale_window_skips_total",
		Help: "Windows skipped because a fresh ledger snapshot showed them already filled",
	}, []string{"intent_type"})

	SubmissionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_submission_errors_total",
		Help: "Total number of submission errors by type",
	}, []string{"intent_type", "error_type"})

	RetryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_retry_count_total",
		Help: "The total number of retried fill submissions by intent type",
	}, []string{"intent_type"})

	MaxRetriesReached = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_max_retries_reached_total",
		Help: "Number of intents that reached maximum retry attempts",
	}, []string{"intent_type", "error_type"})

	RetryQueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_retry_queue_size",
		Help: "Current size of the retry queue",
	})

	NextRetryIn = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solver_next_retry_seconds",
		Help: "Seconds until the next scheduled retry",
	})

	RetriesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_retries_executed_total",
		Help: "Number of retries that were executed",
	}, []string{"intent_type", "error_type"})

	RetriesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_retries_skipped_total",
		Help: "Number of retries that were skipped",
	}, []string{"intent_type", "reason"})

	DroppedRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_retries_dropped_total",
		Help: "Number of retries that were dropped due to queue capacity",
	}, []string{"intent_type"})

	ExpiredIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_expired_intents_total",
		Help: "Intents dropped because their deadline elapsed before settlement",
	}, []string{"intent_type"})

	NoncesRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solver_nonces_recovered_total",
		Help: "Stuck transaction nonces recovered by the recovery job",
	})
)
