package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"crypto-tracker/internal/domain"
	"crypto-tracker/internal/storage"
)

// Store implements storage.Store using PostgreSQL. The price_ticks table
// is range-partitioned by time; CommitCycle creates the month partition
// for the cycle timestamp before opening the transaction, so the commit
// itself stays a single atomic unit.
type Store struct {
	pool *Pool
}

// NewStore creates a new Store.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// CommitCycle applies one cycle's registry upserts and tick inserts in a
// single transaction. On any error the transaction is rolled back and the
// store is left unchanged.
func (s *Store) CommitCycle(ctx context.Context, assets []*domain.Asset, ticks []*domain.PriceTick) (*storage.CycleCounts, error) {
	for _, a := range assets {
		if a == nil || a.CoinID == "" {
			return nil, storage.ErrInvalidInput
		}
	}
	for _, t := range ticks {
		if t == nil || t.CoinID == "" {
			return nil, storage.ErrInvalidInput
		}
	}

	// DDL is not transactional with the inserts; creating the partition
	// up front keeps the data commit all-or-nothing.
	if len(ticks) > 0 {
		if err := s.ensurePartition(ctx, ticks[0].Time); err != nil {
			return nil, fmt.Errorf("ensure tick partition: %w", err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cycle transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	counts := &storage.CycleCounts{}

	upsert := `
		INSERT INTO coins (coin_id, name, symbol, image_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (coin_id) DO NOTHING
	`
	for _, a := range assets {
		tag, err := tx.Exec(ctx, upsert, a.CoinID, a.Name, a.Symbol, a.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("upsert asset %s: %w", a.CoinID, err)
		}
		counts.NewAssets += int(tag.RowsAffected())
	}

	insert := `
		INSERT INTO price_ticks (time, coin_id, symbol, price_usd, market_cap, volume_24h)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, t := range ticks {
		if _, err := tx.Exec(ctx, insert, t.Time, t.CoinID, t.Symbol, t.PriceUSD, t.MarketCap, t.Volume24h); err != nil {
			if isUniqueViolation(err) {
				return nil, storage.ErrDuplicateKey
			}
			return nil, fmt.Errorf("insert tick %s: %w", t.CoinID, err)
		}
		counts.TicksWritten++
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cycle: %w", err)
	}
	return counts, nil
}

// ensurePartition creates the monthly price_ticks partition covering ts.
// CREATE TABLE IF NOT EXISTS makes this idempotent across cycles.
func (s *Store) ensurePartition(ctx context.Context, ts time.Time) error {
	month := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	next := month.AddDate(0, 1, 0)

	ddl := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS price_ticks_%s PARTITION OF price_ticks
		 FOR VALUES FROM ('%s') TO ('%s')`,
		month.Format("200601"),
		month.Format("2006-01-02"),
		next.Format("2006-01-02"),
	)

	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// Ping reports store reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// isUniqueViolation reports whether err is a duplicate key insert, a
// replayed (time, coin_id) tick in practice. SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
