package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	"StrikeGate/pkg/cache"
)

// RedisSnapshotStore keeps the latest published decision per symbol for
// dashboard reads. Decisions only: risk state is recomputed from the ledger
// on every ruling and deliberately never lands here.
type RedisSnapshotStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewRedisSnapshotStore(c cache.Service, ttl time.Duration) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSnapshotStore{cache: c, ttl: ttl}
}

func (s *RedisSnapshotStore) SaveLatest(ctx context.Context, d *models.Decision) error {
	if d == nil || d.Symbol == "" {
		return fmt.Errorf("decision invalid")
	}
	if err := s.cache.Set(ctx, s.key(d.Symbol), d, s.ttl); err != nil {
		return fmt.Errorf("save decision snapshot: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) LoadLatest(ctx context.Context, symbol string) (*models.Decision, bool, error) {
	var d models.Decision
	err := s.cache.Get(ctx, s.key(symbol), &d)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load decision snapshot: %w", err)
	}
	return &d, true, nil
}

func (s *RedisSnapshotStore) key(symbol string) string {
	return fmt.Sprintf("decision:latest:%s", symbol)
}

var _ domrepo.SnapshotStore = (*RedisSnapshotStore)(nil)
