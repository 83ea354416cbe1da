package repository

import (
	"context"
	"fmt"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	pkgkafka "StrikeGate/pkg/kafka"
)

// KafkaDecisionSink publishes fused decisions for the execution platform.
// Messages key on symbol so one symbol's decisions stay ordered.
type KafkaDecisionSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaDecisionSink(producer *pkgkafka.Producer, topic string) *KafkaDecisionSink {
	return &KafkaDecisionSink{producer: producer, topic: topic}
}

func (s *KafkaDecisionSink) Publish(ctx context.Context, d *models.Decision) error {
	if d == nil {
		return fmt.Errorf("decision is nil")
	}
	return s.producer.Publish(ctx, s.topic, []byte(d.Symbol), decisionPayload(d))
}

func (s *KafkaDecisionSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

// outgoing message schema, flat for downstream consumers
func decisionPayload(d *models.Decision) map[string]interface{} {
	return map[string]interface{}{
		"id":               d.ID,
		"symbol":           d.Symbol,
		"action":           string(d.Action),
		"direction":        string(d.Direction),
		"confidence":       d.Confidence,
		"reasons":          d.Reasons,
		"trend":            string(d.Trend.Direction),
		"trend_strength":   d.Trend.Strength,
		"entry_grade":      string(d.Entry.Grade),
		"remaining_loss":   d.Risk.RemainingLoss,
		"remaining_trades": d.Risk.RemainingTrades,
		"t":                d.Timestamp.Unix(),
	}
}

var _ domrepo.DecisionSink = (*KafkaDecisionSink)(nil)
