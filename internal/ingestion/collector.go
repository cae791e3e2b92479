// Package ingestion turns periodic market snapshots into committed cycles.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"crypto-tracker/internal/coingecko"
	"crypto-tracker/internal/domain"
	"crypto-tracker/internal/observability"
	"crypto-tracker/internal/storage"
)

// ErrNoData is returned when a snapshot fetch succeeds but carries no
// valid entries. The cycle writes nothing.
var ErrNoData = errors.New("snapshot contained no valid entries")

// Default configuration values.
const (
	DefaultTopN         = 50
	DefaultFetchTimeout = 10 * time.Second
)

// MarketSource provides one market snapshot per call.
type MarketSource interface {
	TopMarkets(ctx context.Context, limit int) ([]coingecko.MarketEntry, error)
}

// TickArchiver mirrors committed ticks to long-horizon storage.
type TickArchiver interface {
	ArchiveTicks(ctx context.Context, ticks []*domain.PriceTick) error
}

// Broadcaster pushes cycle updates to live subscribers.
type Broadcaster interface {
	Broadcast(v any)
}

// Collector runs one snapshot-to-commit cycle at a time.
type Collector struct {
	source       MarketSource
	store        storage.Store
	archive      TickArchiver
	hub          Broadcaster
	topN         int
	fetchTimeout time.Duration
	logger       *log.Logger
}

// CollectorOptions contains configuration for creating a Collector.
type CollectorOptions struct {
	Source MarketSource
	Store  storage.Store

	// Archive, if set, receives the committed ticks after each cycle.
	// Best effort; failures are logged and the cycle still succeeds.
	Archive TickArchiver

	// Hub, if set, receives a live update after each committed cycle.
	Hub Broadcaster

	TopN         int           // Default: 50 coins per snapshot
	FetchTimeout time.Duration // Default: 10s
	Logger       *log.Logger
}

// NewCollector creates a new Collector.
func NewCollector(opts CollectorOptions) *Collector {
	topN := opts.TopN
	if topN == 0 {
		topN = DefaultTopN
	}

	fetchTimeout := opts.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = DefaultFetchTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Collector{
		source:       opts.Source,
		store:        opts.Store,
		archive:      opts.Archive,
		hub:          opts.Hub,
		topN:         topN,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// cycleUpdate is the message broadcast to stream subscribers after a
// committed cycle.
type cycleUpdate struct {
	Event     string       `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
	Prices    []cyclePrice `json:"prices"`
}

type cyclePrice struct {
	CoinID   string  `json:"coin_id"`
	Symbol   string  `json:"symbol"`
	PriceUSD float64 `json:"price_usd"`
}

// RunCycle fetches one snapshot and commits it as a single atomic unit.
// Every tick in the cycle shares one UTC timestamp. A failed fetch or
// commit leaves the store unchanged.
func (c *Collector) RunCycle(ctx context.Context) (*domain.CycleResult, error) {
	started := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	entries, err := c.source.TopMarkets(fetchCtx, c.topN)
	if err != nil {
		observability.RecordCycle("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	if len(entries) == 0 {
		observability.RecordCycle("empty", time.Since(started).Seconds())
		return nil, ErrNoData
	}
	observability.RecordSnapshotSize(len(entries))

	now := time.Now().UTC()
	assets := make([]*domain.Asset, 0, len(entries))
	ticks := make([]*domain.PriceTick, 0, len(entries))
	for _, e := range entries {
		asset := &domain.Asset{
			CoinID: e.ID,
			Name:   e.Name,
			Symbol: e.Symbol,
		}
		if e.Image != "" {
			img := e.Image
			asset.ImageURL = &img
		}
		assets = append(assets, asset)

		ticks = append(ticks, &domain.PriceTick{
			Time:      now,
			CoinID:    e.ID,
			Symbol:    e.Symbol,
			PriceUSD:  e.CurrentPrice,
			MarketCap: e.MarketCap,
			Volume24h: e.TotalVolume,
		})
	}

	// The commit must not be torn by a shutdown that lands mid-cycle, so
	// it runs detached from the scheduler's cancellation.
	counts, err := c.store.CommitCycle(context.WithoutCancel(ctx), assets, ticks)
	if err != nil {
		observability.RecordCycle("error", time.Since(started).Seconds())
		observability.RecordStoreError("commit_cycle")
		return nil, fmt.Errorf("commit cycle: %w", err)
	}

	duration := time.Since(started)
	observability.RecordCycle("success", duration.Seconds())
	observability.RecordCommit(counts.NewAssets, counts.TicksWritten)

	c.mirrorAndPublish(ctx, now, ticks)

	return &domain.CycleResult{
		Timestamp:    now,
		NewAssets:    counts.NewAssets,
		TicksWritten: counts.TicksWritten,
		Duration:     duration,
	}, nil
}

// mirrorAndPublish forwards committed ticks to the archive and the stream
// hub. Both are best effort and never fail the cycle.
func (c *Collector) mirrorAndPublish(ctx context.Context, ts time.Time, ticks []*domain.PriceTick) {
	if c.archive != nil {
		if err := c.archive.ArchiveTicks(context.WithoutCancel(ctx), ticks); err != nil {
			observability.RecordArchiveError()
			c.logger.Printf("Error mirroring ticks to archive: %v", err)
		}
	}

	if c.hub != nil {
		update := cycleUpdate{
			Event:     "cycle",
			Timestamp: ts,
			Prices:    make([]cyclePrice, len(ticks)),
		}
		for i, t := range ticks {
			update.Prices[i] = cyclePrice{CoinID: t.CoinID, Symbol: t.Symbol, PriceUSD: t.PriceUSD}
		}
		c.hub.Broadcast(update)
	}
}
