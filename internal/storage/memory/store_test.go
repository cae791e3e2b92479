package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"crypto-tracker/internal/domain"
	"crypto-tracker/internal/storage"
)

func tickAt(coinID string, ts time.Time, price float64) *domain.PriceTick {
	return &domain.PriceTick{
		Time:     ts,
		CoinID:   coinID,
		Symbol:   coinID[:3],
		PriceUSD: price,
	}
}

func TestStore_UpsertIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Upsert(ctx, &domain.Asset{CoinID: "bitcoin", Name: "Bitcoin", Symbol: "btc"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !created {
		t.Error("Expected first upsert to create the row")
	}

	// Second upsert with different fields must not alter the row.
	created, err = store.Upsert(ctx, &domain.Asset{CoinID: "bitcoin", Name: "Renamed", Symbol: "xxx"})
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if created {
		t.Error("Expected second upsert to be a no-op")
	}

	assets, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("Expected 1 asset, got %d", len(assets))
	}
	if assets[0].Name != "Bitcoin" || assets[0].Symbol != "btc" {
		t.Errorf("Registry fields changed on re-upsert: %+v", assets[0])
	}
}

func TestStore_AppendDuplicateKey(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := store.Append(ctx, tickAt("bitcoin", ts, 100)); err != nil {
		t.Fatalf("First append failed: %v", err)
	}

	err := store.Append(ctx, tickAt("bitcoin", ts, 101))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestStore_LatestNotFound(t *testing.T) {
	store := NewStore()

	_, err := store.Latest(context.Background(), "dogecoin")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_Latest(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, price := range []float64{100, 110, 105} {
		if err := store.Append(ctx, tickAt("bitcoin", base.Add(time.Duration(i)*time.Hour), price)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	latest, err := store.Latest(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.PriceUSD != 105 {
		t.Errorf("Expected latest price 105, got %f", latest.PriceUSD)
	}
}

func TestStore_WindowOrderAndBound(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// Insert out of order.
	for _, h := range []int{3, 1, 2, 0} {
		if err := store.Append(ctx, tickAt("bitcoin", base.Add(time.Duration(h)*time.Hour), float64(100+h))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	since := base.Add(1 * time.Hour)
	result, err := store.Window(ctx, "bitcoin", since)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("Expected 3 ticks in window, got %d", len(result))
	}
	for i, tk := range result {
		if tk.Time.Before(since) {
			t.Errorf("Tick %d before window bound: %v", i, tk.Time)
		}
		if i > 0 && result[i].Time.Before(result[i-1].Time) {
			t.Errorf("Results not ordered at %d", i)
		}
	}
}

func TestStore_WindowEmptyIsNotError(t *testing.T) {
	store := NewStore()

	result, err := store.Window(context.Background(), "bitcoin", time.Now())
	if err != nil {
		t.Fatalf("Window on empty store failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("Expected empty window, got %d ticks", len(result))
	}
}

func TestStore_LatestPerCoin(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	ticks := []*domain.PriceTick{
		tickAt("bitcoin", base, 100),
		tickAt("bitcoin", base.Add(time.Hour), 110),
		tickAt("ethereum", base, 2000),
	}
	for _, tk := range ticks {
		if err := store.Append(ctx, tk); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	result, err := store.LatestPerCoin(ctx)
	if err != nil {
		t.Fatalf("LatestPerCoin failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 ticks, got %d", len(result))
	}
	// Ordered by coin_id ASC.
	if result[0].CoinID != "bitcoin" || result[0].PriceUSD != 110 {
		t.Errorf("Unexpected bitcoin entry: %+v", result[0])
	}
	if result[1].CoinID != "ethereum" || result[1].PriceUSD != 2000 {
		t.Errorf("Unexpected ethereum entry: %+v", result[1])
	}
}

func TestStore_CommitCycle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	assets := []*domain.Asset{
		{CoinID: "bitcoin", Name: "Bitcoin", Symbol: "btc"},
		{CoinID: "ethereum", Name: "Ethereum", Symbol: "eth"},
	}
	ticks := []*domain.PriceTick{
		tickAt("bitcoin", ts, 100),
		tickAt("ethereum", ts, 2000),
	}

	counts, err := store.CommitCycle(ctx, assets, ticks)
	if err != nil {
		t.Fatalf("CommitCycle failed: %v", err)
	}
	if counts.NewAssets != 2 || counts.TicksWritten != 2 {
		t.Errorf("Unexpected counts: %+v", counts)
	}

	// Second cycle registers no new assets.
	ts2 := ts.Add(time.Hour)
	counts, err = store.CommitCycle(ctx, assets, []*domain.PriceTick{
		tickAt("bitcoin", ts2, 101),
		tickAt("ethereum", ts2, 2010),
	})
	if err != nil {
		t.Fatalf("Second CommitCycle failed: %v", err)
	}
	if counts.NewAssets != 0 || counts.TicksWritten != 2 {
		t.Errorf("Unexpected second cycle counts: %+v", counts)
	}
}

func TestStore_CommitCycleAtomicOnDuplicate(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := store.Append(ctx, tickAt("ethereum", ts, 1999)); err != nil {
		t.Fatalf("Seed append failed: %v", err)
	}

	assets := []*domain.Asset{
		{CoinID: "bitcoin", Name: "Bitcoin", Symbol: "btc"},
	}
	// Second tick collides with the seeded one.
	ticks := []*domain.PriceTick{
		tickAt("bitcoin", ts, 100),
		tickAt("ethereum", ts, 2000),
	}

	_, err := store.CommitCycle(ctx, assets, ticks)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// Nothing from the failed cycle may be visible.
	if _, err := store.Latest(ctx, "bitcoin"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected no bitcoin tick after rollback, got %v", err)
	}
	assetsAfter, _ := store.List(ctx)
	if len(assetsAfter) != 0 {
		t.Errorf("Expected no registry rows after rollback, got %d", len(assetsAfter))
	}
}

func TestStore_CommitCycleIntraBatchDuplicate(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	ticks := []*domain.PriceTick{
		tickAt("bitcoin", ts, 100),
		tickAt("bitcoin", ts, 101), // duplicate key within the batch
	}

	_, err := store.CommitCycle(ctx, nil, ticks)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	result, _ := store.Window(ctx, "bitcoin", time.Time{})
	if len(result) != 0 {
		t.Errorf("Expected 0 ticks (rollback), got %d", len(result))
	}
}

func TestStore_CommitCycleInvalidInput(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.CommitCycle(ctx, nil, []*domain.PriceTick{nil})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil tick, got %v", err)
	}

	_, err = store.CommitCycle(ctx, []*domain.Asset{{CoinID: ""}}, nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty coin id, got %v", err)
	}
}
