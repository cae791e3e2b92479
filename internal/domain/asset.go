package domain

import "time"

// Asset represents a tracked market instrument in the registry.
// Corresponds to coins table in PostgreSQL.
type Asset struct {
	CoinID    string    // PRIMARY KEY, stable external identifier (e.g. "bitcoin")
	Name      string    // display name
	Symbol    string    // ticker symbol
	ImageURL  *string   // image reference (nullable)
	CreatedAt time.Time // first time a snapshot mentioned this coin
}
