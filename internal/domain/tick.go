package domain

import "time"

// PriceTick is one immutable price observation for one coin at one
// collection-cycle timestamp. Corresponds to price_ticks table in
// PostgreSQL. PRIMARY KEY (time, coin_id); rows are never updated
// or deleted.
type PriceTick struct {
	Time      time.Time // cycle timestamp, UTC, shared by every tick in a cycle
	CoinID    string    // FK to coins
	Symbol    string    // denormalized ticker symbol
	PriceUSD  float64   // NUMERIC(20,8) in storage
	MarketCap *int64    // nullable
	Volume24h *int64    // nullable
}
