package clickhouse

import (
	"context"
	"fmt"
	"time"

	"crypto-tracker/internal/domain"
)

// TickArchive mirrors committed ticks into ClickHouse for long-horizon
// queries. It is fed after a cycle commits in Postgres and is best effort:
// Postgres stays the source of truth, and MergeTree does not enforce
// uniqueness, so a retried mirror may leave duplicate rows.
type TickArchive struct {
	conn *Conn
}

// NewTickArchive creates a new TickArchive.
func NewTickArchive(conn *Conn) *TickArchive {
	return &TickArchive{conn: conn}
}

// ArchiveTicks appends a batch of committed ticks.
func (a *TickArchive) ArchiveTicks(ctx context.Context, ticks []*domain.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO tick_archive (
			time, coin_id, symbol, price_usd, market_cap, volume_24h
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		err = batch.Append(
			t.Time, t.CoinID, t.Symbol,
			t.PriceUSD, t.MarketCap, t.Volume24h,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Window retrieves archived ticks for a coin with time >= since,
// ordered by time ASC.
func (a *TickArchive) Window(ctx context.Context, coinID string, since time.Time) ([]*domain.PriceTick, error) {
	query := `
		SELECT time, coin_id, symbol, price_usd, market_cap, volume_24h
		FROM tick_archive
		WHERE coin_id = ? AND time >= ?
		ORDER BY time ASC
	`

	rows, err := a.conn.Query(ctx, query, coinID, since)
	if err != nil {
		return nil, fmt.Errorf("query archive window: %w", err)
	}
	defer rows.Close()

	return scanArchiveTicks(rows)
}

// Count reports the number of archived rows for a coin.
func (a *TickArchive) Count(ctx context.Context, coinID string) (uint64, error) {
	var count uint64
	err := a.conn.QueryRow(ctx, `SELECT count(*) FROM tick_archive WHERE coin_id = ?`, coinID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count archive rows: %w", err)
	}
	return count, nil
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanArchiveTicks(rows chRows) ([]*domain.PriceTick, error) {
	var ticks []*domain.PriceTick

	for rows.Next() {
		var t domain.PriceTick
		err := rows.Scan(
			&t.Time, &t.CoinID, &t.Symbol,
			&t.PriceUSD, &t.MarketCap, &t.Volume24h,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		ticks = append(ticks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}

	return ticks, nil
}
