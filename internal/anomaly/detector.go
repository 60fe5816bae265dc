package anomaly

import (
	"context"
	"time"

	"go.uber.org/zap"

	"polyscope/internal/events"
	"polyscope/internal/models"
	"polyscope/internal/repository"
)

// PriceSpikeDetector walks recent per-market price history and records
// moves at or above the configured threshold. Anomalies are keyed by
// (market, window end), so re-scanning the same history is a no-op.
type PriceSpikeDetector struct {
	Repo   repository.Repository
	Bus    *events.Bus
	Logger *zap.Logger

	ThresholdBps int
	Lookback     time.Duration
}

func (d *PriceSpikeDetector) thresholdBps() int {
	if d.ThresholdBps > 0 {
		return d.ThresholdBps
	}
	return 2000
}

func (d *PriceSpikeDetector) lookback() time.Duration {
	if d.Lookback > 0 {
		return d.Lookback
	}
	return 24 * time.Hour
}

func (d *PriceSpikeDetector) ScanOnce(ctx context.Context) error {
	if d == nil || d.Repo == nil {
		return nil
	}
	since := time.Now().UTC().Add(-d.lookback())
	marketIDs, err := d.Repo.ListPricePointMarketIDs(ctx, since)
	if err != nil {
		return err
	}
	for _, id := range marketIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := d.scanMarket(ctx, id, since); err != nil {
			d.logWarn("anomaly scan failed", err, zap.String("market", id))
		}
	}
	return nil
}

func (d *PriceSpikeDetector) scanMarket(ctx context.Context, marketID string, since time.Time) error {
	points, err := d.Repo.ListPricePoints(ctx, marketID, since)
	if err != nil {
		return err
	}
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		bps := changeBps(prev.PriceCents, cur.PriceCents)
		if bps < d.thresholdBps() {
			continue
		}
		item := &models.PriceAnomaly{
			MarketID:         marketID,
			PriceBeforeCents: prev.PriceCents,
			PriceAfterCents:  cur.PriceCents,
			ChangeBps:        bps,
			WindowStart:      prev.SampledAt,
			WindowEnd:        cur.SampledAt,
			DetectedAt:       time.Now().UTC(),
		}
		inserted, err := d.Repo.UpsertPriceAnomaly(ctx, item)
		if err != nil {
			return err
		}
		if inserted && d.Bus != nil {
			d.Bus.Publish(events.Event{
				Kind: events.KindPriceSpike,
				Spike: &events.SpikeEvent{
					MarketID:         marketID,
					PriceBeforeCents: prev.PriceCents,
					PriceAfterCents:  cur.PriceCents,
					ChangeBps:        bps,
					WindowEnd:        cur.SampledAt,
				},
			})
		}
	}
	return nil
}

// changeBps is the relative move in basis points against the starting
// price. A start price of zero cannot produce a meaningful ratio.
func changeBps(before, after int) int {
	if before <= 0 {
		return 0
	}
	diff := after - before
	if diff < 0 {
		diff = -diff
	}
	return diff * 10_000 / before
}

func (d *PriceSpikeDetector) logWarn(msg string, err error, fields ...zap.Field) {
	if d != nil && d.Logger != nil {
		d.Logger.Warn(msg, append(fields, zap.Error(err))...)
	}
}
