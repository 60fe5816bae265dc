package aggregate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"polyscope/internal/models"
	"polyscope/internal/repository"
)

// stubRepo implements just the repository surface the aggregator touches.
// Unused methods come from the embedded nil interface and panic if called.
type stubRepo struct {
	repository.Repository

	mu        sync.Mutex
	addresses map[string]*models.Address
	ledger    map[string]bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		addresses: map[string]*models.Address{},
		ledger:    map[string]bool{},
	}
}

func (s *stubRepo) GetAddress(_ context.Context, addr string) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.addresses[addr]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) SaveAddress(_ context.Context, item *models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.addresses[item.Address] = &cp
	return nil
}

func (s *stubRepo) InsertAddressSettlement(_ context.Context, item *models.AddressSettlement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s|%s|%s", item.Address, item.MarketID, item.SettlementID)
	if s.ledger[key] {
		return false, nil
	}
	s.ledger[key] = true
	return true, nil
}

func tradeAt(ts time.Time) models.Trade {
	return models.Trade{
		TradeID:      "t1",
		MarketID:     "m1",
		MakerAddress: "0xMAKER",
		TakerAddress: "0xTAKER",
		Side:         models.TradeSideYes,
		PriceCents:   60,
		AmountCents:  1_500_000,
		EventTime:    ts,
	}
}

func TestApplyTradeCountsBothLegs(t *testing.T) {
	repo := newStubRepo()
	agg := New(repo, nil)
	now := time.Now().UTC()

	if err := agg.ApplyTrade(context.Background(), tradeAt(now)); err != nil {
		t.Fatalf("ApplyTrade: %v", err)
	}

	for _, addr := range []string{"0xTAKER", "0xMAKER"} {
		item := repo.addresses[addr]
		if item == nil {
			t.Fatalf("address %s not created", addr)
		}
		if item.TotalTrades != 1 || item.TotalVolumeCents != 1_500_000 {
			t.Fatalf("%s: trades=%d volume=%d", addr, item.TotalTrades, item.TotalVolumeCents)
		}
		if got := item.AvgTradeSizeCents(); got != 1_500_000 {
			t.Fatalf("%s: avg trade size %d", addr, got)
		}
	}
}

func TestApplyTradeMaintainsSeenTimestamps(t *testing.T) {
	repo := newStubRepo()
	agg := New(repo, nil)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	first := tradeAt(base.Add(2 * time.Hour))
	if err := agg.ApplyTrade(context.Background(), first); err != nil {
		t.Fatalf("ApplyTrade: %v", err)
	}
	// Older trade arriving late must pull first-seen back, not touch last-active.
	older := tradeAt(base)
	older.TradeID = "t0"
	if err := agg.ApplyTrade(context.Background(), older); err != nil {
		t.Fatalf("ApplyTrade: %v", err)
	}

	item := repo.addresses["0xTAKER"]
	if !item.FirstSeenAt.Equal(base) {
		t.Fatalf("first seen = %v, want %v", item.FirstSeenAt, base)
	}
	if !item.LastActiveAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("last active = %v", item.LastActiveAt)
	}
}

func TestApplySettlementIdempotent(t *testing.T) {
	repo := newStubRepo()
	agg := New(repo, nil)
	ctx := context.Background()

	if err := agg.ApplyTrade(ctx, tradeAt(time.Now().UTC())); err != nil {
		t.Fatalf("ApplyTrade: %v", err)
	}

	applied, err := agg.ApplySettlement(ctx, "0xTAKER", "m1", "s1", true)
	if err != nil || !applied {
		t.Fatalf("first settlement: applied=%v err=%v", applied, err)
	}
	applied, err = agg.ApplySettlement(ctx, "0xTAKER", "m1", "s1", true)
	if err != nil {
		t.Fatalf("second settlement: %v", err)
	}
	if applied {
		t.Fatal("second settlement applied, want no-op")
	}

	item := repo.addresses["0xTAKER"]
	if item.WinCount != 1 || item.LossCount != 0 || item.SettledCount != 1 {
		t.Fatalf("counters after replay: win=%d loss=%d settled=%d", item.WinCount, item.LossCount, item.SettledCount)
	}
	if got := item.WinRate(); got != 1.0 {
		t.Fatalf("win rate = %v, want 1.0", got)
	}
}

func TestApplyTradeConcurrentSameAddress(t *testing.T) {
	repo := newStubRepo()
	agg := New(repo, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr := tradeAt(now)
			tr.TradeID = fmt.Sprintf("t%d", i)
			if err := agg.ApplyTrade(ctx, tr); err != nil {
				t.Errorf("ApplyTrade: %v", err)
			}
		}(i)
	}
	wg.Wait()

	item := repo.addresses["0xTAKER"]
	if item.TotalTrades != n {
		t.Fatalf("total trades = %d, want %d (lost updates)", item.TotalTrades, n)
	}
	if item.TotalVolumeCents != n*1_500_000 {
		t.Fatalf("total volume = %d", item.TotalVolumeCents)
	}
}

func TestInvariantCountersNeverExceedTotals(t *testing.T) {
	repo := newStubRepo()
	agg := New(repo, nil)
	ctx := context.Background()

	tr := tradeAt(time.Now().UTC())
	if err := agg.ApplyTrade(ctx, tr); err != nil {
		t.Fatalf("ApplyTrade: %v", err)
	}
	if _, err := agg.ApplySettlement(ctx, "0xTAKER", "m1", "s1", false); err != nil {
		t.Fatalf("ApplySettlement: %v", err)
	}

	item := repo.addresses["0xTAKER"]
	if item.WinCount+item.LossCount > item.SettledCount {
		t.Fatalf("win+loss %d exceeds settled %d", item.WinCount+item.LossCount, item.SettledCount)
	}
	if item.SettledCount > item.TotalTrades {
		t.Fatalf("settled %d exceeds total %d", item.SettledCount, item.TotalTrades)
	}
}
