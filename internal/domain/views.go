package domain

import "time"

// PriceView is the latest observed price for a coin.
type PriceView struct {
	CoinID    string    `json:"coin_id"`
	Symbol    string    `json:"symbol"`
	PriceUSD  float64   `json:"price_usd"`
	MarketCap *int64    `json:"market_cap"`
	Volume24h *int64    `json:"volume_24h"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryPoint is a single observation inside a history window.
type HistoryPoint struct {
	Time      time.Time `json:"time"`
	Price     float64   `json:"price"`
	MarketCap *int64    `json:"market_cap"`
	Volume    *int64    `json:"volume"`
}

// HistoryView is an ascending-time sequence of observations for one coin.
type HistoryView struct {
	CoinID      string         `json:"coin_id"`
	Symbol      string         `json:"symbol"`
	PeriodHours int            `json:"period_hours"`
	DataPoints  int            `json:"data_points"`
	Prices      []HistoryPoint `json:"prices"`
}

// Mover direction labels. Flat movers (pct == 0) are excluded from
// trending results, so there is no "flat" label.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Mover is a coin ranked by magnitude of price change within a window.
type Mover struct {
	CoinID         string    `json:"coin_id"`
	Symbol         string    `json:"symbol"`
	CurrentPrice   float64   `json:"current_price"`
	PriceWindowAgo float64   `json:"price_24h_ago"`
	ChangePercent  float64   `json:"change_percent"`
	LastUpdate     time.Time `json:"last_update"`
	Direction      string    `json:"direction"`
}

// MarketSummary aggregates the latest tick of every tracked coin.
// Null market caps and volumes are excluded from the sums, not
// coerced to zero.
type MarketSummary struct {
	TotalCoins     int   `json:"total_coins_tracked"`
	TotalMarketCap int64 `json:"total_market_cap"`
	TotalVolume24h int64 `json:"total_volume_24h"`
}
