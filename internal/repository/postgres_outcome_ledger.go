package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	pkgpg "StrikeGate/pkg/postgres"
)

// tradeOutcomeRow is the gorm mapping for the append-only risk ledger.
type tradeOutcomeRow struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	SignalID    string    `gorm:"column:signal_id;size:64;index"`
	Symbol      string    `gorm:"column:symbol;size:32"`
	RiskPoints  float64   `gorm:"column:risk_points"`
	StopLossHit bool      `gorm:"column:sl_hit"`
	TargetHit   bool      `gorm:"column:target_hit"`
	OccurredAt  time.Time `gorm:"column:occurred_at;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (tradeOutcomeRow) TableName() string { return "trade_outcomes" }

// PGOutcomeLedger keeps realized trade outcomes in Postgres. Rows are only
// ever inserted; the governor derives today's budget by re-reading them.
type PGOutcomeLedger struct {
	db *gorm.DB
}

func NewPGOutcomeLedger(client *pkgpg.Client) (*PGOutcomeLedger, error) {
	l := &PGOutcomeLedger{db: client.DB()}
	if err := l.db.AutoMigrate(&tradeOutcomeRow{}); err != nil {
		return nil, fmt.Errorf("migrate trade_outcomes: %w", err)
	}
	return l, nil
}

func (l *PGOutcomeLedger) Append(ctx context.Context, o *models.TradeOutcome) error {
	row := tradeOutcomeRow{
		SignalID:    o.SignalID,
		Symbol:      o.Symbol,
		RiskPoints:  o.RiskPoints,
		StopLossHit: o.StopLossHit,
		TargetHit:   o.TargetHit,
		OccurredAt:  o.Timestamp,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}
	return nil
}

// ListWindow returns rows with occurred_at in [from, to), oldest first.
func (l *PGOutcomeLedger) ListWindow(ctx context.Context, from, to time.Time) ([]models.TradeOutcome, error) {
	var rows []tradeOutcomeRow
	err := l.db.WithContext(ctx).
		Where("occurred_at >= ? AND occurred_at < ?", from, to).
		Order("occurred_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}

	out := make([]models.TradeOutcome, len(rows))
	for i, r := range rows {
		out[i] = models.TradeOutcome{
			SignalID:    r.SignalID,
			Symbol:      r.Symbol,
			RiskPoints:  r.RiskPoints,
			StopLossHit: r.StopLossHit,
			TargetHit:   r.TargetHit,
			Timestamp:   r.OccurredAt,
		}
	}
	return out, nil
}

func (l *PGOutcomeLedger) Health(ctx context.Context) error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

var _ domrepo.OutcomeLedger = (*PGOutcomeLedger)(nil)
