package storage

import (
	"context"
	"time"

	"crypto-tracker/internal/domain"
)

// AssetStore provides access to the coins registry.
type AssetStore interface {
	// Upsert inserts the asset if its coin_id is unseen and reports
	// whether a row was created. Existing rows are left untouched:
	// registry fields are fixed at first sight. Never fails on duplicate.
	Upsert(ctx context.Context, a *domain.Asset) (created bool, err error)

	// List retrieves all registry entries, ordered by coin_id ASC.
	List(ctx context.Context) ([]*domain.Asset, error)
}

// TickStore provides access to the append-only price_ticks log.
type TickStore interface {
	// Append inserts a tick. Returns ErrDuplicateKey if (time, coin_id) exists.
	Append(ctx context.Context, t *domain.PriceTick) error

	// Latest retrieves the most recent tick for a coin.
	// Returns ErrNotFound if the coin has no ticks.
	Latest(ctx context.Context, coinID string) (*domain.PriceTick, error)

	// Window retrieves ticks for a coin with time >= since, ordered by
	// time ASC. An empty window is not an error.
	Window(ctx context.Context, coinID string, since time.Time) ([]*domain.PriceTick, error)

	// WindowAll retrieves ticks for every coin with time >= since,
	// ordered by (coin_id ASC, time ASC). Feeds the trending computation.
	WindowAll(ctx context.Context, since time.Time) ([]*domain.PriceTick, error)

	// LatestPerCoin retrieves one tick per distinct coin_id, each the
	// most recent for that coin, ordered by coin_id ASC.
	LatestPerCoin(ctx context.Context) ([]*domain.PriceTick, error)
}

// CycleCounts reports what a committed cycle wrote.
type CycleCounts struct {
	NewAssets    int
	TicksWritten int
}

// Store is the full time-series store consumed by the ingestion cycle
// and the analytics engine.
type Store interface {
	AssetStore
	TickStore

	// CommitCycle applies the registry upserts and tick inserts of one
	// collection cycle as a single atomic unit: either every row is
	// durably committed or none are. Assets and ticks are applied in
	// slice order; each tick's coin must be present in assets or already
	// registered. Returns ErrDuplicateKey if any tick collides.
	CommitCycle(ctx context.Context, assets []*domain.Asset, ticks []*domain.PriceTick) (*CycleCounts, error)

	// Ping reports store reachability for health checks.
	Ping(ctx context.Context) error
}
