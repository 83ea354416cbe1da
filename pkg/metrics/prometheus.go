package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions   *prometheus.CounterVec
	gateBlocks  *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strikegate_decisions_total",
				Help: "Total number of decisions emitted, by action",
			},
			[]string{"symbol", "action"},
		),
		gateBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strikegate_gate_blocks_total",
				Help: "Total number of decisions short-circuited to WAIT, by gate",
			},
			[]string{"gate"},
		),
		outcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strikegate_outcomes_total",
				Help: "Total number of trade outcomes recorded, by result",
			},
			[]string{"result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strikegate_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "strikegate_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strikegate_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDecision records an emitted decision.
func (r *Recorder) RecordDecision(symbol, action string) {
	r.decisions.WithLabelValues(symbol, action).Inc()
}

// RecordGateBlock records a decision blocked by a gate.
func (r *Recorder) RecordGateBlock(gate string) {
	r.gateBlocks.WithLabelValues(gate).Inc()
}

// RecordOutcome records a recorded trade outcome.
func (r *Recorder) RecordOutcome(result string) {
	r.outcomes.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
