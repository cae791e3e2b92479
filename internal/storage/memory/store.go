package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crypto-tracker/internal/domain"
	"crypto-tracker/internal/storage"
)

// Store is an in-memory implementation of storage.Store. Used by tests
// and the --use-memory server mode.
type Store struct {
	mu     sync.RWMutex
	assets map[string]*domain.Asset     // keyed by coin_id
	ticks  map[string]*domain.PriceTick // keyed by (time, coin_id)
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		assets: make(map[string]*domain.Asset),
		ticks:  make(map[string]*domain.PriceTick),
	}
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// tickKey generates a unique key for a tick.
func tickKey(ts time.Time, coinID string) string {
	return fmt.Sprintf("%d|%s", ts.UnixNano(), coinID)
}

// Upsert inserts the asset if unseen; existing rows are left untouched.
func (s *Store) Upsert(_ context.Context, a *domain.Asset) (bool, error) {
	if a == nil || a.CoinID == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.upsertLocked(a), nil
}

// upsertLocked performs the first-seen insert. Caller holds s.mu.
func (s *Store) upsertLocked(a *domain.Asset) bool {
	if _, exists := s.assets[a.CoinID]; exists {
		return false
	}
	assetCopy := *a
	if assetCopy.CreatedAt.IsZero() {
		assetCopy.CreatedAt = time.Now().UTC()
	}
	s.assets[a.CoinID] = &assetCopy
	return true
}

// List retrieves all registry entries, ordered by coin_id ASC.
func (s *Store) List(_ context.Context) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		assetCopy := *a
		result = append(result, &assetCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CoinID < result[j].CoinID
	})

	return result, nil
}

// Append inserts a tick. Returns ErrDuplicateKey if (time, coin_id) exists.
func (s *Store) Append(_ context.Context, t *domain.PriceTick) error {
	if t == nil || t.CoinID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := tickKey(t.Time, t.CoinID)
	if _, exists := s.ticks[key]; exists {
		return storage.ErrDuplicateKey
	}

	tickCopy := *t
	s.ticks[key] = &tickCopy
	return nil
}

// Latest retrieves the most recent tick for a coin.
func (s *Store) Latest(_ context.Context, coinID string) (*domain.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.PriceTick
	for _, t := range s.ticks {
		if t.CoinID != coinID {
			continue
		}
		if latest == nil || t.Time.After(latest.Time) {
			latest = t
		}
	}

	if latest == nil {
		return nil, storage.ErrNotFound
	}
	tickCopy := *latest
	return &tickCopy, nil
}

// Window retrieves ticks for a coin with time >= since, ordered by time ASC.
func (s *Store) Window(_ context.Context, coinID string, since time.Time) ([]*domain.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceTick
	for _, t := range s.ticks {
		if t.CoinID == coinID && !t.Time.Before(since) {
			tickCopy := *t
			result = append(result, &tickCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time.Before(result[j].Time)
	})

	return result, nil
}

// WindowAll retrieves ticks for every coin with time >= since,
// ordered by (coin_id ASC, time ASC).
func (s *Store) WindowAll(_ context.Context, since time.Time) ([]*domain.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceTick
	for _, t := range s.ticks {
		if !t.Time.Before(since) {
			tickCopy := *t
			result = append(result, &tickCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CoinID != result[j].CoinID {
			return result[i].CoinID < result[j].CoinID
		}
		return result[i].Time.Before(result[j].Time)
	})

	return result, nil
}

// LatestPerCoin retrieves one tick per distinct coin_id, each the most
// recent for that coin, ordered by coin_id ASC.
func (s *Store) LatestPerCoin(_ context.Context) ([]*domain.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]*domain.PriceTick)
	for _, t := range s.ticks {
		cur, ok := latest[t.CoinID]
		if !ok || t.Time.After(cur.Time) {
			latest[t.CoinID] = t
		}
	}

	result := make([]*domain.PriceTick, 0, len(latest))
	for _, t := range latest {
		tickCopy := *t
		result = append(result, &tickCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CoinID < result[j].CoinID
	})

	return result, nil
}

// CommitCycle applies one cycle's registry upserts and tick inserts
// atomically: the batch is validated in full before anything is applied,
// so a failed cycle leaves the store unchanged.
func (s *Store) CommitCycle(_ context.Context, assets []*domain.Asset, ticks []*domain.PriceTick) (*storage.CycleCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate everything before mutating state.
	for _, a := range assets {
		if a == nil || a.CoinID == "" {
			return nil, storage.ErrInvalidInput
		}
	}

	batchKeys := make(map[string]struct{}, len(ticks))
	for _, t := range ticks {
		if t == nil || t.CoinID == "" {
			return nil, storage.ErrInvalidInput
		}
		key := tickKey(t.Time, t.CoinID)
		if _, exists := s.ticks[key]; exists {
			return nil, storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return nil, storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: apply.
	counts := &storage.CycleCounts{}
	for _, a := range assets {
		if s.upsertLocked(a) {
			counts.NewAssets++
		}
	}
	for _, t := range ticks {
		tickCopy := *t
		s.ticks[tickKey(t.Time, t.CoinID)] = &tickCopy
		counts.TicksWritten++
	}

	return counts, nil
}

// Ping reports store reachability. The in-memory store is always reachable.
func (s *Store) Ping(_ context.Context) error {
	return nil
}
