package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StrikeGate/internal/domain/models"
	domrepo "StrikeGate/internal/domain/repository"
	pkgch "StrikeGate/pkg/clickhouse"
	applogger "StrikeGate/pkg/logger"
)

// CHCandleStore is the ClickHouse-backed candle store. It serves both sides
// of the candle path: ingest writes completed 1m bars, evaluators read them.
// Wider timeframes fold from 1m rows at query time.
type CHCandleStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client) *CHCandleStore {
	return &CHCandleStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

const barTable = "strikegate.candles_1m"

// SchemaStatements returns the DDL the store needs. ReplacingMergeTree keyed
// on (symbol, bucket) makes re-inserting a completed bar harmless.
func SchemaStatements() []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS strikegate`,
		`
        CREATE TABLE IF NOT EXISTS ` + barTable + ` (
            bucket  DateTime,
            symbol  LowCardinality(String),
            open    Float64,
            high    Float64,
            low     Float64,
            close   Float64,
            vol     Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, bucket)
        TTL bucket + INTERVAL 30 DAY
        `,
	}
}

const rangeQuery1m = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM ` + barTable + `
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
    `

const rangeQuery5m = `
        SELECT toStartOfFiveMinutes(bucket) AS b, symbol,
               argMin(open, bucket) AS o,
               max(high) AS h,
               min(low) AS lo,
               argMax(close, bucket) AS c,
               sum(vol) AS v
        FROM ` + barTable + `
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        GROUP BY b, symbol
        ORDER BY b ASC
    `

const latestQuery1m = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM ` + barTable + `
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `

const latestQuery5m = `
        SELECT toStartOfFiveMinutes(bucket) AS b, symbol,
               argMin(open, bucket) AS o,
               max(high) AS h,
               min(low) AS lo,
               argMax(close, bucket) AS c,
               sum(vol) AS v
        FROM ` + barTable + `
        WHERE symbol = ?
        GROUP BY b, symbol
        ORDER BY b DESC
        LIMIT ?
    `

func (s *CHCandleStore) Init(ctx context.Context) error {
	for _, stmt := range SchemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init candle schema: %w", err)
		}
	}
	return nil
}

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	q, err := rangeQueryFor(tf)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_candles query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out, err := scanCandles(rows, 256)
	if err != nil {
		return nil, err
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_candles ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	q, err := latestQueryFor(tf)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_candles query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	tmp, err := scanCandles(rows, n)
	if err != nil {
		return nil, err
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse latest_candles ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("limit", n),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func (s *CHCandleStore) Store(ctx context.Context, c *models.Candle) error {
	if c == nil || c.Symbol == "" {
		return fmt.Errorf("candle invalid")
	}
	q := "INSERT INTO " + barTable + " (bucket, symbol, open, high, low, close, vol) VALUES (?, ?, ?, ?, ?, ?, ?)"
	if _, err := s.db.ExecContext(ctx, q, c.Bucket, c.Symbol, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
		return fmt.Errorf("store candle: %w", err)
	}
	return nil
}

func (s *CHCandleStore) StoreBatch(ctx context.Context, candles []*models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	// Multi-row VALUES keeps round-trips down; 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(candles); start += chunkSize {
		end := start + chunkSize
		if end > len(candles) {
			end = len(candles)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, c := range candles[start:end] {
			if c == nil || c.Symbol == "" || c.Bucket.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, c.Bucket, c.Symbol, c.Open, c.High, c.Low, c.Close, c.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := "INSERT INTO " + barTable + " (bucket, symbol, open, high, low, close, vol) VALUES " +
			strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store candle batch: %w", err)
		}
	}
	return nil
}

func (s *CHCandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHCandleStore) Close() error {
	return nil // connection owned by pkg client
}

func scanCandles(rows *sql.Rows, sizeHint int) ([]models.Candle, error) {
	if sizeHint <= 0 {
		sizeHint = 64
	}
	out := make([]models.Candle, 0, sizeHint)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func rangeQueryFor(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1m:
		return rangeQuery1m, nil
	case domrepo.TF5m:
		return rangeQuery5m, nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}

func latestQueryFor(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1m:
		return latestQuery1m, nil
	case domrepo.TF5m:
		return latestQuery5m, nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}

var (
	_ domrepo.CandleStore   = (*CHCandleStore)(nil)
	_ domrepo.CandleStorage = (*CHCandleStore)(nil)
)
