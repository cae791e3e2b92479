// Package analytics computes read-side views over the tick log.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"crypto-tracker/internal/domain"
	"crypto-tracker/internal/storage"
)

// Window and clamp defaults.
const (
	DefaultHistoryHours = 24
	MaxHistoryHours     = 720
	DefaultTrendingSize = 10
	MaxTrendingSize     = 50
	trendingWindow      = 24 * time.Hour
)

// Engine answers price queries from the store. It never writes.
type Engine struct {
	store storage.Store
	now   func() time.Time
}

// NewEngine creates a new Engine.
func NewEngine(store storage.Store) *Engine {
	return &Engine{
		store: store,
		now:   time.Now,
	}
}

// CurrentPrice returns the latest observed price for a coin.
// Returns storage.ErrNotFound if the coin has no ticks.
func (e *Engine) CurrentPrice(ctx context.Context, coinID string) (*domain.PriceView, error) {
	tick, err := e.store.Latest(ctx, coinID)
	if err != nil {
		return nil, err
	}

	return &domain.PriceView{
		CoinID:    tick.CoinID,
		Symbol:    tick.Symbol,
		PriceUSD:  tick.PriceUSD,
		MarketCap: tick.MarketCap,
		Volume24h: tick.Volume24h,
		Timestamp: tick.Time,
	}, nil
}

// History returns the ascending tick sequence for a coin over the last
// hours. Zero means the default window; out-of-range values are clamped.
// Returns storage.ErrNotFound when the window holds no ticks.
func (e *Engine) History(ctx context.Context, coinID string, hours int) (*domain.HistoryView, error) {
	hours = clampHours(hours)

	since := e.now().Add(-time.Duration(hours) * time.Hour)
	ticks, err := e.store.Window(ctx, coinID, since)
	if err != nil {
		return nil, fmt.Errorf("history window: %w", err)
	}
	if len(ticks) == 0 {
		return nil, storage.ErrNotFound
	}

	points := make([]domain.HistoryPoint, len(ticks))
	for i, t := range ticks {
		points[i] = domain.HistoryPoint{
			Time:      t.Time,
			Price:     t.PriceUSD,
			MarketCap: t.MarketCap,
			Volume:    t.Volume24h,
		}
	}

	return &domain.HistoryView{
		CoinID:      coinID,
		Symbol:      ticks[0].Symbol,
		PeriodHours: hours,
		DataPoints:  len(points),
		Prices:      points,
	}, nil
}

// Trending ranks coins by magnitude of price change over the last 24
// hours. A coin needs two distinct observations in the window; flat coins
// are excluded. Zero limit means the default; out-of-range is clamped.
//
// The ranking runs here rather than in SQL so the exclusion and tie-break
// rules are identical for every store backend.
func (e *Engine) Trending(ctx context.Context, limit int) ([]*domain.Mover, error) {
	limit = clampLimit(limit)

	since := e.now().Add(-trendingWindow)
	ticks, err := e.store.WindowAll(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("trending window: %w", err)
	}

	// Ticks arrive ordered (coin_id ASC, time ASC), so the first and last
	// tick of each run are the window endpoints for that coin.
	type endpoints struct {
		first *domain.PriceTick
		last  *domain.PriceTick
	}
	byCoin := make(map[string]*endpoints)
	for _, t := range ticks {
		ep, ok := byCoin[t.CoinID]
		if !ok {
			byCoin[t.CoinID] = &endpoints{first: t, last: t}
			continue
		}
		ep.last = t
	}

	movers := make([]*domain.Mover, 0, len(byCoin))
	for coinID, ep := range byCoin {
		if ep.first == ep.last || ep.first.PriceUSD == 0 {
			continue
		}
		pct := (ep.last.PriceUSD - ep.first.PriceUSD) / ep.first.PriceUSD * 100
		if pct == 0 {
			continue
		}

		direction := domain.DirectionUp
		if pct < 0 {
			direction = domain.DirectionDown
		}

		movers = append(movers, &domain.Mover{
			CoinID:         coinID,
			Symbol:         ep.last.Symbol,
			CurrentPrice:   ep.last.PriceUSD,
			PriceWindowAgo: ep.first.PriceUSD,
			ChangePercent:  pct,
			LastUpdate:     ep.last.Time,
			Direction:      direction,
		})
	}

	sort.Slice(movers, func(i, j int) bool {
		mi, mj := math.Abs(movers[i].ChangePercent), math.Abs(movers[j].ChangePercent)
		if mi != mj {
			return mi > mj
		}
		return movers[i].CoinID < movers[j].CoinID
	})

	if len(movers) > limit {
		movers = movers[:limit]
	}
	return movers, nil
}

// Summary aggregates the latest tick of every tracked coin. Null caps
// and volumes are excluded from the sums, not coerced to zero.
func (e *Engine) Summary(ctx context.Context) (*domain.MarketSummary, error) {
	latest, err := e.store.LatestPerCoin(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest per coin: %w", err)
	}

	summary := &domain.MarketSummary{TotalCoins: len(latest)}
	for _, t := range latest {
		if t.MarketCap != nil {
			summary.TotalMarketCap += *t.MarketCap
		}
		if t.Volume24h != nil {
			summary.TotalVolume24h += *t.Volume24h
		}
	}
	return summary, nil
}

func clampHours(hours int) int {
	switch {
	case hours == 0:
		return DefaultHistoryHours
	case hours < 1:
		return 1
	case hours > MaxHistoryHours:
		return MaxHistoryHours
	}
	return hours
}

func clampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultTrendingSize
	case limit < 1:
		return 1
	case limit > MaxTrendingSize:
		return MaxTrendingSize
	}
	return limit
}
