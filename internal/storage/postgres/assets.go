package postgres

import (
	"context"
	"fmt"

	"crypto-tracker/internal/domain"
	"crypto-tracker/internal/storage"
)

// Upsert inserts the asset if its coin_id is unseen. Existing rows are
// left untouched: registry fields are fixed at first sight.
func (s *Store) Upsert(ctx context.Context, a *domain.Asset) (bool, error) {
	if a == nil || a.CoinID == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO coins (coin_id, name, symbol, image_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (coin_id) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query, a.CoinID, a.Name, a.Symbol, a.ImageURL)
	if err != nil {
		return false, fmt.Errorf("upsert asset: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List retrieves all registry entries, ordered by coin_id ASC.
func (s *Store) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT coin_id, name, symbol, image_url, created_at
		FROM coins
		ORDER BY coin_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.CoinID, &a.Name, &a.Symbol, &a.ImageURL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}

	return assets, nil
}
