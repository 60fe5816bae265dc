package scoring

import "testing"

func insiderSnapshot() Snapshot {
	return Snapshot{
		TotalTrades:             20,
		TotalVolumeCents:        20_000_000,
		WinCount:                20,
		SettledCount:            20,
		PreMoveTrades:           10,
		NearExtremaTrades:       10,
		DistinctCategories:      1,
		PopulationAvgTradeCents: 100_000,
	}
}

func TestScoreDeterministic(t *testing.T) {
	snap := insiderSnapshot()
	p := DefaultParams()
	first := Score(snap, p)
	for i := 0; i < 10; i++ {
		if got := Score(snap, p); got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestScoreSaturatesAtHundred(t *testing.T) {
	bd := Score(insiderSnapshot(), DefaultParams())
	if bd.WinRate != 30 || bd.EarlyTrading != 25 || bd.TradeSize != 20 || bd.Timing != 15 || bd.Selectivity != 10 {
		t.Fatalf("breakdown not saturated: %+v", bd)
	}
	if bd.Total != 100 {
		t.Fatalf("total = %d, want 100", bd.Total)
	}
}

func TestScoreEmptySnapshot(t *testing.T) {
	bd := Score(Snapshot{}, DefaultParams())
	if bd.Total != 0 {
		t.Fatalf("empty snapshot scored %+v", bd)
	}
}

func TestScoreBounds(t *testing.T) {
	snaps := []Snapshot{
		{},
		insiderSnapshot(),
		{TotalTrades: 1, TotalVolumeCents: 1_500_000, PopulationAvgTradeCents: 1},
		{TotalTrades: 1000, PreMoveTrades: 1000, NearExtremaTrades: 1000, DistinctCategories: 1,
			WinCount: 1000, SettledCount: 1000, TotalVolumeCents: 1 << 50, PopulationAvgTradeCents: 1},
	}
	for i, snap := range snaps {
		bd := Score(snap, DefaultParams())
		if bd.Total < 0 || bd.Total > 100 {
			t.Fatalf("snapshot %d: total %d out of range", i, bd.Total)
		}
		if bd.WinRate > 30 || bd.EarlyTrading > 25 || bd.TradeSize > 20 || bd.Timing > 15 || bd.Selectivity > 10 {
			t.Fatalf("snapshot %d: dimension over ceiling: %+v", i, bd)
		}
	}
}

func TestWinRateGatedOnSampleSize(t *testing.T) {
	snap := Snapshot{
		TotalTrades:  4,
		WinCount:     4,
		SettledCount: 4, // below MinSettled
	}
	bd := Score(snap, DefaultParams())
	if bd.WinRate != 0 {
		t.Fatalf("win-rate dimension = %d with %d settled, want 0", bd.WinRate, snap.SettledCount)
	}

	snap.SettledCount = 5
	snap.WinCount = 5
	snap.TotalTrades = 5
	bd = Score(snap, DefaultParams())
	if bd.WinRate == 0 {
		t.Fatalf("win-rate dimension stayed 0 at %d settled with 100%% win rate", snap.SettledCount)
	}
}

func TestWinRateConfidenceScaling(t *testing.T) {
	small := Score(Snapshot{TotalTrades: 5, WinCount: 5, SettledCount: 5}, DefaultParams())
	large := Score(Snapshot{TotalTrades: 20, WinCount: 20, SettledCount: 20}, DefaultParams())
	if small.WinRate >= large.WinRate {
		t.Fatalf("5 settled scored %d, 20 settled scored %d; want small < large", small.WinRate, large.WinRate)
	}
}

func TestWinRateBelowBaselineScoresZero(t *testing.T) {
	bd := Score(Snapshot{TotalTrades: 20, WinCount: 13, SettledCount: 20}, DefaultParams())
	if bd.WinRate != 0 {
		t.Fatalf("65%% win rate scored %d, want 0", bd.WinRate)
	}
}

func TestTradeSizeRelativeToPopulation(t *testing.T) {
	p := DefaultParams()
	atAvg := Score(Snapshot{TotalTrades: 1, TotalVolumeCents: 100, PopulationAvgTradeCents: 100}, p)
	if atAvg.TradeSize != 0 {
		t.Fatalf("population-average trade size scored %d, want 0", atAvg.TradeSize)
	}
	tenX := Score(Snapshot{TotalTrades: 1, TotalVolumeCents: 1000, PopulationAvgTradeCents: 100}, p)
	if tenX.TradeSize != 20 {
		t.Fatalf("10x population trade size scored %d, want 20", tenX.TradeSize)
	}
}

func TestSelectivityNeedsEnoughTrades(t *testing.T) {
	bd := Score(Snapshot{TotalTrades: 2, DistinctCategories: 1}, DefaultParams())
	if bd.Selectivity != 0 {
		t.Fatalf("2 trades scored selectivity %d, want 0", bd.Selectivity)
	}
	bd = Score(Snapshot{TotalTrades: 10, DistinctCategories: 4}, DefaultParams())
	if bd.Selectivity != 0 {
		t.Fatalf("4 categories scored selectivity %d, want 0", bd.Selectivity)
	}
}
