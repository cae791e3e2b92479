package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"crypto-tracker/internal/domain"
	"crypto-tracker/internal/storage"
)

const tickColumns = "time, coin_id, symbol, price_usd, market_cap, volume_24h"

// Append inserts a tick. Returns ErrDuplicateKey if (time, coin_id) exists.
func (s *Store) Append(ctx context.Context, t *domain.PriceTick) error {
	if t == nil || t.CoinID == "" {
		return storage.ErrInvalidInput
	}

	if err := s.ensurePartition(ctx, t.Time); err != nil {
		return fmt.Errorf("ensure tick partition: %w", err)
	}

	query := `
		INSERT INTO price_ticks (time, coin_id, symbol, price_usd, market_cap, volume_24h)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query, t.Time, t.CoinID, t.Symbol, t.PriceUSD, t.MarketCap, t.Volume24h)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append tick: %w", err)
	}
	return nil
}

// Latest retrieves the most recent tick for a coin.
// Returns ErrNotFound if the coin has no ticks.
func (s *Store) Latest(ctx context.Context, coinID string) (*domain.PriceTick, error) {
	query := `
		SELECT ` + tickColumns + `
		FROM price_ticks
		WHERE coin_id = $1
		ORDER BY time DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, coinID)
	t, err := scanTick(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("latest tick: %w", err)
	}
	return t, nil
}

// Window retrieves ticks for a coin with time >= since, ordered by time ASC.
func (s *Store) Window(ctx context.Context, coinID string, since time.Time) ([]*domain.PriceTick, error) {
	query := `
		SELECT ` + tickColumns + `
		FROM price_ticks
		WHERE coin_id = $1 AND time >= $2
		ORDER BY time ASC
	`

	rows, err := s.pool.Query(ctx, query, coinID, since)
	if err != nil {
		return nil, fmt.Errorf("window ticks: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// WindowAll retrieves ticks for every coin with time >= since,
// ordered by (coin_id ASC, time ASC).
func (s *Store) WindowAll(ctx context.Context, since time.Time) ([]*domain.PriceTick, error) {
	query := `
		SELECT ` + tickColumns + `
		FROM price_ticks
		WHERE time >= $1
		ORDER BY coin_id ASC, time ASC
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("window all ticks: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// LatestPerCoin retrieves one tick per distinct coin_id, each the most
// recent for that coin, ordered by coin_id ASC.
func (s *Store) LatestPerCoin(ctx context.Context) ([]*domain.PriceTick, error) {
	query := `
		SELECT DISTINCT ON (coin_id) ` + tickColumns + `
		FROM price_ticks
		ORDER BY coin_id ASC, time DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("latest per coin: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// scanTick scans a single row into a PriceTick.
func scanTick(row pgx.Row) (*domain.PriceTick, error) {
	var t domain.PriceTick
	err := row.Scan(&t.Time, &t.CoinID, &t.Symbol, &t.PriceUSD, &t.MarketCap, &t.Volume24h)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTicks scans multiple rows into a slice of PriceTick.
func scanTicks(rows pgx.Rows) ([]*domain.PriceTick, error) {
	var ticks []*domain.PriceTick

	for rows.Next() {
		var t domain.PriceTick
		if err := rows.Scan(&t.Time, &t.CoinID, &t.Symbol, &t.PriceUSD, &t.MarketCap, &t.Volume24h); err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}
		ticks = append(ticks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick rows: %w", err)
	}

	return ticks, nil
}
