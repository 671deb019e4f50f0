package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InboundMessages counts inbound messages by classified kind
	InboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advent_inbound_messages_total",
			Help: "Total number of inbound messages by kind",
		},
		[]string{"kind"},
	)

	// HandleDuration tracks engine processing time per inbound message
	HandleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advent_handle_duration_seconds",
			Help:    "Inbound message handling duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PuzzlesSent counts puzzle deliveries by trigger (reply, sweep)
	PuzzlesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advent_puzzles_sent_total",
			Help: "Total number of puzzles delivered",
		},
		[]string{"trigger"},
	)

	// DuplicateSuppressed counts side effects skipped because another writer won
	DuplicateSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advent_duplicates_suppressed_total",
			Help: "Total number of side effects suppressed by idempotency guards",
		},
		[]string{"operation"},
	)

	// Answers counts answer submissions by correctness
	Answers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advent_answers_total",
			Help: "Total number of answer submissions",
		},
		[]string{"result"},
	)

	// ResponseTime tracks latency between puzzle send and correct answer
	ResponseTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advent_response_time_seconds",
			Help:    "Time from puzzle delivery to correct answer",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600, 21600, 86400},
		},
	)

	// Hints counts /hint requests by outcome (served, exhausted, refused)
	Hints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advent_hints_total",
			Help: "Total number of hint requests",
		},
		[]string{"outcome"},
	)

	// Payments counts entry fee confirmations by result
	Payments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advent_payments_total",
			Help: "Total number of entry fee confirmations",
		},
		[]string{"result"},
	)

	// Rewards counts reward dispatches by path and status
	Rewards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advent_rewards_total",
			Help: "Total number of reward dispatches",
		},
		[]string{"path", "status"},
	)

	// RewardDuration tracks reward dispatch time
	RewardDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advent_reward_duration_seconds",
			Help:    "Reward dispatch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// SweepRuns counts scheduler sweeps
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advent_sweep_runs_total",
			Help: "Total number of daily broadcast sweeps",
		},
		[]string{"status"},
	)

	// SweepDuration tracks how long a full sweep takes
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advent_sweep_duration_seconds",
			Help:    "Daily broadcast sweep duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	// SweepFailures counts per-participant sweep failures
	SweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advent_sweep_failures_total",
			Help: "Total number of per-participant failures during sweeps",
		},
	)

	// ErrorsTotal counts errors by component and category
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advent_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "category"},
	)

	// GasUsed tracks gas limits of submitted transactions
	GasUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advent_gas_limit",
			Help:    "Gas limit of submitted transactions",
			Buckets: []float64{21000, 50000, 100000, 200000, 300000, 500000},
		},
		[]string{"operation"},
	)

	// ActiveParticipants tracks paid participants seen by the last sweep
	ActiveParticipants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advent_active_participants",
			Help: "Paid participants seen by the last sweep",
		},
	)

	// MarketRequests counts candidate token lookups by source (cache, api, error)
	MarketRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advent_market_requests_total",
			Help: "Total number of candidate token lookups",
		},
		[]string{"source"},
	)
)
