package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
)

type recordingCandleStore struct {
	candles []models.Candle
	err     error

	latestCalls int
	rangedCalls int
	gotSymbol   string
	gotFrom     time.Time
	gotTo       time.Time
	gotN        int
	gotTF       domrepo.Timeframe
}

func (s *recordingCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	s.rangedCalls++
	s.gotSymbol, s.gotFrom, s.gotTo, s.gotTF = symbol, from, to, tf
	return s.candles, s.err
}

func (s *recordingCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	s.latestCalls++
	s.gotSymbol, s.gotN, s.gotTF = symbol, n, tf
	return s.candles, s.err
}

func TestGetCandlesRequiresSymbol(t *testing.T) {
	store := &recordingCandleStore{}
	uc := NewCandlesUseCase(store)

	_, err := uc.GetCandles(context.Background(), GetCandlesParams{Timeframe: domrepo.TF1m})
	if err == nil || !strings.Contains(err.Error(), "symbol required") {
		t.Fatalf("err = %v, want symbol required", err)
	}
	if store.latestCalls+store.rangedCalls != 0 {
		t.Error("store queried despite invalid params")
	}
}

func TestGetCandlesRejectsInvertedWindow(t *testing.T) {
	store := &recordingCandleStore{}
	uc := NewCandlesUseCase(store)

	from := time.Date(2025, 7, 14, 11, 0, 0, 0, time.UTC)
	_, err := uc.GetCandles(context.Background(), GetCandlesParams{
		Symbol:    "NIFTY",
		From:      from,
		To:        from.Add(-time.Hour),
		Timeframe: domrepo.TF1m,
	})
	if err == nil || !strings.Contains(err.Error(), "from must be <= to") {
		t.Fatalf("err = %v, want inverted window rejection", err)
	}
	if store.latestCalls+store.rangedCalls != 0 {
		t.Error("store queried despite invalid params")
	}
}

func TestGetCandlesLatestLimitBounds(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		wantN int
	}{
		{"zero defaults", 0, 500},
		{"negative defaults", -3, 500},
		{"explicit kept", 120, 120},
		{"capped", 9999, 5000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &recordingCandleStore{candles: risingCandles(5)}
			uc := NewCandlesUseCase(store)

			res, err := uc.GetCandles(context.Background(), GetCandlesParams{
				Symbol:    "NIFTY",
				Timeframe: domrepo.TF1m,
				Limit:     tc.limit,
			})
			if err != nil {
				t.Fatalf("GetCandles: %v", err)
			}
			if store.latestCalls != 1 || store.rangedCalls != 0 {
				t.Fatalf("calls latest=%d ranged=%d, want the latest-N path", store.latestCalls, store.rangedCalls)
			}
			if store.gotN != tc.wantN {
				t.Errorf("n = %d, want %d", store.gotN, tc.wantN)
			}
			if store.gotSymbol != "NIFTY" || store.gotTF != domrepo.TF1m {
				t.Errorf("queried %s/%s, want NIFTY/1m", store.gotSymbol, store.gotTF)
			}
			if res.Count != 5 || len(res.Candles) != 5 {
				t.Errorf("count = %d, want all 5 bars", res.Count)
			}
		})
	}
}

func TestGetCandlesAlignsExplicitWindow(t *testing.T) {
	from := time.Date(2025, 7, 14, 10, 2, 31, 0, time.UTC)
	to := time.Date(2025, 7, 14, 10, 47, 59, 0, time.UTC)
	tests := []struct {
		name     string
		tf       domrepo.Timeframe
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			"minute bars",
			domrepo.TF1m,
			time.Date(2025, 7, 14, 10, 2, 0, 0, time.UTC),
			time.Date(2025, 7, 14, 10, 47, 0, 0, time.UTC),
		},
		{
			"five minute bars",
			domrepo.TF5m,
			time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC),
			time.Date(2025, 7, 14, 10, 45, 0, 0, time.UTC),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &recordingCandleStore{candles: risingCandles(3)}
			uc := NewCandlesUseCase(store)

			res, err := uc.GetCandles(context.Background(), GetCandlesParams{
				Symbol:    "NIFTY",
				From:      from,
				To:        to,
				Timeframe: tc.tf,
			})
			if err != nil {
				t.Fatalf("GetCandles: %v", err)
			}
			if store.rangedCalls != 1 || store.latestCalls != 0 {
				t.Fatalf("calls latest=%d ranged=%d, want the ranged path", store.latestCalls, store.rangedCalls)
			}
			if !store.gotFrom.Equal(tc.wantFrom) || !store.gotTo.Equal(tc.wantTo) {
				t.Errorf("window = [%v, %v], want aligned [%v, %v]", store.gotFrom, store.gotTo, tc.wantFrom, tc.wantTo)
			}
			if !res.From.Equal(from) || !res.To.Equal(to) {
				t.Errorf("result window = [%v, %v], want the requested bounds", res.From, res.To)
			}
		})
	}
}

func TestGetCandlesTrimsToLimit(t *testing.T) {
	store := &recordingCandleStore{candles: risingCandles(8)}
	uc := NewCandlesUseCase(store)

	res, err := uc.GetCandles(context.Background(), GetCandlesParams{
		Symbol:    "NIFTY",
		From:      time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC),
		To:        time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC),
		Timeframe: domrepo.TF1m,
		Limit:     3,
	})
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if res.Count != 3 || len(res.Candles) != 3 {
		t.Fatalf("count = %d, want trailing 3", res.Count)
	}
	if res.Candles[0].Close != 105 || res.Candles[2].Close != 107 {
		t.Errorf("kept closes %v..%v, want the newest bars 105..107", res.Candles[0].Close, res.Candles[2].Close)
	}
}

func TestGetCandlesWrapsStoreError(t *testing.T) {
	store := &recordingCandleStore{err: errors.New("clickhouse down")}
	uc := NewCandlesUseCase(store)

	_, err := uc.GetCandles(context.Background(), GetCandlesParams{Symbol: "NIFTY", Timeframe: domrepo.TF1m})
	if err == nil || !strings.Contains(err.Error(), "get candles") {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}
