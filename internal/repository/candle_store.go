package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
	domrepo "github.com/alert006/new-bollinger-scanner/internal/domain/repository"
)

// Schema holds the idempotent DDL for the candle history table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS candles (
		ts DateTime,
		instrument String,
		close Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (instrument, ts)`,
}

// ClickHouseCandleStore persists fetched price history to ClickHouse.
// ReplacingMergeTree keyed on (instrument, ts) makes re-storing the same
// series after every scan harmless.
type ClickHouseCandleStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseCandleStore creates a ClickHouse-backed candle store.
func NewClickHouseCandleStore(db *sql.DB, table string) domrepo.CandleStore {
	if table == "" {
		table = "candles"
	}
	return &ClickHouseCandleStore{db: db, table: table}
}

func (s *ClickHouseCandleStore) StoreSeries(ctx context.Context, instrument string, series models.PriceSeries) error {
	if len(series) == 0 {
		return nil
	}
	// Multi-row VALUES insert, chunked to bound statement size.
	const chunkSize = 2000
	for start := 0; start < len(series); start += chunkSize {
		end := start + chunkSize
		if end > len(series) {
			end = len(series)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*3)
		for _, p := range series[start:end] {
			values = append(values, "(?, ?, ?)")
			args = append(args, p.Timestamp, instrument, p.Close)
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, instrument, close) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store series %s: %w", instrument, err)
		}
	}
	return nil
}

func (s *ClickHouseCandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseCandleStore) Close() error {
	return nil // connection pool is owned by pkg/clickhouse
}
