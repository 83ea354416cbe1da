package usecase

import (
	"context"
	"encoding/json"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	pkgkafka "StrikeGate/pkg/kafka"
)

// KafkaOutcomesHandler consumes fill events from the execution platform and
// records them into the risk ledger.
type KafkaOutcomesHandler struct {
	topic    string
	recorder *OutcomeRecorder
	metrics  domrepo.Metrics
}

func NewKafkaOutcomesHandler(topic string, recorder *OutcomeRecorder, metrics domrepo.Metrics) *KafkaOutcomesHandler {
	return &KafkaOutcomesHandler{topic: topic, recorder: recorder, metrics: metrics}
}

func (h *KafkaOutcomesHandler) Topic() string { return h.topic }

// incoming message schema: {signal_id, symbol, risk_points, sl_hit, target_hit, t}
func (h *KafkaOutcomesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		SignalID   string  `json:"signal_id"`
		Symbol     string  `json:"symbol"`
		RiskPoints float64 `json:"risk_points"`
		SLHit      bool    `json:"sl_hit"`
		TargetHit  bool    `json:"target_hit"`
		T          int64   `json:"t"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}

	var ts time.Time
	if m.T > 0 {
		ts = time.Unix(m.T, 0).UTC()
		// E2E latency from fill time to now (approx)
		h.metrics.RecordLatency("fill_e2e_seconds", time.Since(ts).Seconds())
	}

	return h.recorder.Record(ctx, &models.TradeOutcome{
		SignalID:    m.SignalID,
		Symbol:      m.Symbol,
		RiskPoints:  m.RiskPoints,
		StopLossHit: m.SLHit,
		TargetHit:   m.TargetHit,
		Timestamp:   ts,
	})
}

var _ pkgkafka.MessageHandler = (*KafkaOutcomesHandler)(nil)
