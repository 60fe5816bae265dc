package ingest

// Policy holds the whale classification knobs. The threshold is the
// trader-facing classification bar; the alert path applies its own,
// separate threshold when matching subscriptions.
type Policy struct {
	WhaleThresholdCents int64
	BandLowCents        int
	BandHighCents       int
	ExcludedCategories  map[string]struct{}
}

func NewPolicy(thresholdCents int64, bandLow, bandHigh int, excluded []string) Policy {
	set := make(map[string]struct{}, len(excluded))
	for _, c := range excluded {
		set[c] = struct{}{}
	}
	if bandLow <= 0 {
		bandLow = 5
	}
	if bandHigh <= 0 {
		bandHigh = 95
	}
	return Policy{
		WhaleThresholdCents: thresholdCents,
		BandLowCents:        bandLow,
		BandHighCents:       bandHigh,
		ExcludedCategories:  set,
	}
}

// IsWhale classifies one trade. The amount bound is inclusive; the price
// band is exclusive at both ends, so a fill exactly at 5 or 95 cents sits
// in the near-settlement band and is not a whale signal.
func (p Policy) IsWhale(amountCents int64, priceCents int, category string) bool {
	if amountCents < p.WhaleThresholdCents {
		return false
	}
	if priceCents <= p.BandLowCents || priceCents >= p.BandHighCents {
		return false
	}
	if _, excluded := p.ExcludedCategories[category]; excluded {
		return false
	}
	return true
}
