package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"polyscope/internal/client/datafeed"
	"polyscope/internal/models"
)

type fakeMarketFeed struct {
	pages    [][]datafeed.RawMarket
	failures int
	calls    []datafeed.MarketParams
}

func (f *fakeMarketFeed) GetMarkets(_ context.Context, params datafeed.MarketParams) ([]datafeed.RawMarket, error) {
	f.calls = append(f.calls, params)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("upstream unavailable")
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func rawMarket(id, title string) datafeed.RawMarket {
	return datafeed.RawMarket{
		ConditionID: id,
		Title:       title,
		Question:    title + "?",
		Price:       "0.42",
		Volume24h:   "1000.00",
		VolumeTotal: "250000.00",
		Active:      true,
	}
}

func TestMarketSyncStoresPageAndOffset(t *testing.T) {
	repo := newStubRepo()
	feed := &fakeMarketFeed{pages: [][]datafeed.RawMarket{{
		rawMarket("m1", "Will the Fed cut rates in September"),
		rawMarket("m2", "Lakers to win the NBA finals"),
	}}}
	svc := &MarketSyncService{Feed: feed, Repo: repo, PageLimit: 10}

	result, err := svc.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if result.Markets != 2 || !result.Done {
		t.Fatalf("result = %+v", result)
	}
	if got := repo.marketCount(); got != 2 {
		t.Fatalf("stored %d markets, want 2", got)
	}

	m1, ok := repo.market("m1")
	if !ok {
		t.Fatal("m1 not stored")
	}
	if m1.Category != "Economics" {
		t.Fatalf("m1 category = %q, want Economics", m1.Category)
	}
	if m1.CurrentPriceCents == nil || *m1.CurrentPriceCents != 42 {
		t.Fatalf("m1 price = %v, want 42", m1.CurrentPriceCents)
	}
	if m1.Volume24hCents != 100_000 || m1.VolumeTotalCents != 25_000_000 {
		t.Fatalf("m1 volumes = %d / %d", m1.Volume24hCents, m1.VolumeTotalCents)
	}
	m2, _ := repo.market("m2")
	if m2.Category != "Sports" {
		t.Fatalf("m2 category = %q, want Sports", m2.Category)
	}

	state := repo.state(marketSyncSource)
	if state == nil || state.Status != models.SyncStatusIdle {
		t.Fatalf("state = %+v", state)
	}
	// Short final page resets the offset for the next full pass.
	if state.Cursor == nil || *state.Cursor != "0" {
		t.Fatalf("cursor = %v, want reset to 0", state.Cursor)
	}
}

func TestMarketSyncSamplesPricePoints(t *testing.T) {
	repo := newStubRepo()
	feed := &fakeMarketFeed{pages: [][]datafeed.RawMarket{{
		rawMarket("m1", "Election winner"),
		rawMarket("m2", "Rate decision"),
	}}}
	svc := &MarketSyncService{Feed: feed, Repo: repo, PageLimit: 10}

	if _, err := svc.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if got := repo.pointCount(); got != 2 {
		t.Fatalf("sampled %d price points, want 2", got)
	}
}

func TestMarketSyncResumesFromSavedOffset(t *testing.T) {
	repo := newStubRepo()
	cur := "200"
	repo.states[marketSyncSource] = &models.SyncState{
		Service: marketSyncSource,
		Cursor:  &cur,
		Status:  models.SyncStatusIdle,
	}
	feed := &fakeMarketFeed{pages: [][]datafeed.RawMarket{{rawMarket("m1", "x")}}}
	svc := &MarketSyncService{Feed: feed, Repo: repo, PageLimit: 200, Resume: true}

	if _, err := svc.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if len(feed.calls) == 0 || feed.calls[0].Offset != 200 {
		t.Fatalf("first call offset = %+v, want 200", feed.calls)
	}
}

func TestMarketSyncPagesUntilShortPage(t *testing.T) {
	repo := newStubRepo()
	full := make([]datafeed.RawMarket, 3)
	for i := range full {
		full[i] = rawMarket(fmt.Sprintf("m%d", i), "market")
	}
	feed := &fakeMarketFeed{pages: [][]datafeed.RawMarket{
		full,
		{rawMarket("m9", "tail")},
	}}
	svc := &MarketSyncService{Feed: feed, Repo: repo, PageLimit: 3, MaxPages: 10}

	result, err := svc.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if result.Pages != 2 || result.Markets != 4 || !result.Done {
		t.Fatalf("result = %+v", result)
	}
	if feed.calls[1].Offset != 3 {
		t.Fatalf("second page offset = %d, want 3", feed.calls[1].Offset)
	}
}

func TestMarketSyncFeedErrorSetsErrorState(t *testing.T) {
	repo := newStubRepo()
	feed := &fakeMarketFeed{failures: 1}
	svc := &MarketSyncService{Feed: feed, Repo: repo, PageLimit: 10}

	if _, err := svc.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	state := repo.state(marketSyncSource)
	if state == nil || state.Status != models.SyncStatusError || state.LastError == nil {
		t.Fatalf("state = %+v", state)
	}

	// The next run recovers.
	feed.pages = [][]datafeed.RawMarket{{rawMarket("m1", "x")}}
	if _, err := svc.SyncOnce(context.Background()); err != nil {
		t.Fatalf("recovery run: %v", err)
	}
	state = repo.state(marketSyncSource)
	if state.Status != models.SyncStatusIdle || state.LastError != nil {
		t.Fatalf("state after recovery = %+v", state)
	}
}

func TestMarketSyncUpsertFailureKeepsCursor(t *testing.T) {
	repo := newStubRepo()
	cur := "100"
	repo.states[marketSyncSource] = &models.SyncState{
		Service: marketSyncSource,
		Cursor:  &cur,
		Status:  models.SyncStatusIdle,
	}
	repo.failUpserts = true
	feed := &fakeMarketFeed{pages: [][]datafeed.RawMarket{{rawMarket("m1", "x")}}}
	svc := &MarketSyncService{Feed: feed, Repo: repo, PageLimit: 10, Resume: true}

	if _, err := svc.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	state := repo.state(marketSyncSource)
	if state.Cursor == nil {
		t.Fatal("cursor cleared")
	}
	if got, _ := strconv.Atoi(*state.Cursor); got != 100 {
		t.Fatalf("cursor advanced to %d despite failed upsert", got)
	}
}

func TestMarketSyncSkipsMarketsWithoutConditionID(t *testing.T) {
	repo := newStubRepo()
	feed := &fakeMarketFeed{pages: [][]datafeed.RawMarket{{
		rawMarket("", "broken"),
		rawMarket("m1", "good"),
	}}}
	svc := &MarketSyncService{Feed: feed, Repo: repo, PageLimit: 10}

	result, err := svc.SyncOnce(context.Background())
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if result.Markets != 1 || repo.marketCount() != 1 {
		t.Fatalf("stored %d markets, want 1", repo.marketCount())
	}
}
