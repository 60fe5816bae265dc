package scoring

import "math"

// Snapshot is everything the scorer reads for one address. It is assembled
// by the caller from the address counters plus trade-level stats; scoring
// itself never touches storage or the clock.
type Snapshot struct {
	TotalTrades        int64
	TotalVolumeCents   int64
	WinCount           int64
	SettledCount       int64
	PreMoveTrades      int64
	NearExtremaTrades  int64
	DistinctCategories int64

	// PopulationAvgTradeCents is the mean trade size across all tracked
	// addresses, used to normalize the trade-size dimension.
	PopulationAvgTradeCents int64
}

// Breakdown is the per-dimension result. Each field is already clamped to
// its ceiling and Total to [0,100].
type Breakdown struct {
	WinRate      int // max 30
	EarlyTrading int // max 25
	TradeSize    int // max 20
	Timing       int // max 15
	Selectivity  int // max 10
	Total        int
}

type Params struct {
	BaselineWinRate   float64
	MinSettled        int64
	ConfidenceSettled int64
	SizeCapMultiple   float64
}

func DefaultParams() Params {
	return Params{
		BaselineWinRate:   0.70,
		MinSettled:        5,
		ConfidenceSettled: 20,
		SizeCapMultiple:   10,
	}
}

// Score is a pure function of the snapshot: identical inputs always yield
// an identical breakdown.
func Score(s Snapshot, p Params) Breakdown {
	bd := Breakdown{
		WinRate:      winRateDim(s, p),
		EarlyTrading: earlyTradingDim(s),
		TradeSize:    tradeSizeDim(s, p),
		Timing:       timingDim(s),
		Selectivity:  selectivityDim(s),
	}
	bd.Total = clamp(bd.WinRate+bd.EarlyTrading+bd.TradeSize+bd.Timing+bd.Selectivity, 0, 100)
	return bd
}

// winRateDim rewards settled win rates above the baseline, scaled by how
// many settlements back the number up. Below MinSettled the sample is too
// small to mean anything.
func winRateDim(s Snapshot, p Params) int {
	if s.SettledCount < p.MinSettled || s.SettledCount <= 0 {
		return 0
	}
	wr := float64(s.WinCount) / float64(s.SettledCount)
	excess := wr - p.BaselineWinRate
	if excess <= 0 {
		return 0
	}
	span := 1 - p.BaselineWinRate
	if span <= 0 {
		return 0
	}
	raw := excess / span * 30
	confidence := float64(s.SettledCount) / float64(p.ConfidenceSettled)
	if confidence > 1 {
		confidence = 1
	}
	return clamp(round(raw*confidence), 0, 30)
}

// earlyTradingDim: fraction of trades placed inside the pre-move window of
// a later price spike. Half of all trades pre-move saturates the dimension.
func earlyTradingDim(s Snapshot) int {
	if s.TotalTrades <= 0 {
		return 0
	}
	ratio := float64(s.PreMoveTrades) / float64(s.TotalTrades)
	return clamp(round(ratio/0.5*25), 0, 25)
}

// tradeSizeDim: average trade size relative to the population average,
// saturating at SizeCapMultiple times the population.
func tradeSizeDim(s Snapshot, p Params) int {
	if s.TotalTrades <= 0 || s.PopulationAvgTradeCents <= 0 {
		return 0
	}
	avg := float64(s.TotalVolumeCents) / float64(s.TotalTrades)
	ratio := avg / float64(s.PopulationAvgTradeCents)
	if ratio <= 1 {
		return 0
	}
	mult := p.SizeCapMultiple
	if mult <= 1 {
		mult = 10
	}
	return clamp(round((ratio-1)/(mult-1)*20), 0, 20)
}

// timingDim: fraction of trades filled near the market's local price
// extrema.
func timingDim(s Snapshot) int {
	if s.TotalTrades <= 0 {
		return 0
	}
	ratio := float64(s.NearExtremaTrades) / float64(s.TotalTrades)
	return clamp(round(ratio/0.5*15), 0, 15)
}

// selectivityDim: concentration into few categories. Needs a handful of
// trades before concentration says anything.
func selectivityDim(s Snapshot) int {
	if s.TotalTrades < 3 || s.DistinctCategories <= 0 {
		return 0
	}
	switch s.DistinctCategories {
	case 1:
		return 10
	case 2:
		return 6
	case 3:
		return 3
	default:
		return 0
	}
}

func round(v float64) int {
	return int(math.Round(v))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
