package scoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"polyscope/internal/events"
	"polyscope/internal/models"
	"polyscope/internal/repository"
)

// Updater periodically recomputes suspicion scores for recently active
// addresses and persists score + is_suspicious. A score crossing the high
// threshold upward publishes a score_crossed event for the alert path.
type Updater struct {
	Repo     repository.Repository
	Bus      *events.Bus
	Logger   *zap.Logger
	Params   Params
	Interval time.Duration

	// ActiveWindow bounds which addresses get recomputed per tick.
	ActiveWindow time.Duration
	BatchSize    int

	SuspicionThreshold int
	HighThreshold      int
}

func (u *Updater) Run(ctx context.Context) error {
	if u == nil || u.Repo == nil {
		return nil
	}
	interval := u.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	// First run immediately so scores are fresh shortly after boot.
	_ = u.UpdateOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = u.UpdateOnce(ctx)
		}
	}
}

func (u *Updater) UpdateOnce(ctx context.Context) error {
	if u == nil || u.Repo == nil {
		return nil
	}
	window := u.ActiveWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	since := time.Now().UTC().Add(-window)

	addrs, err := u.Repo.ListRecentlyActiveAddresses(ctx, since, u.BatchSize)
	if err != nil {
		u.logWarn("list active addresses failed", err)
		return err
	}
	if len(addrs) == 0 {
		return nil
	}

	popAvg, err := u.Repo.PopulationAvgTradeCents(ctx)
	if err != nil {
		u.logWarn("population avg failed", err)
	}

	for i := range addrs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := u.updateAddress(ctx, &addrs[i], popAvg); err != nil {
			u.logWarn("score update failed", err, zap.String("address", addrs[i].Address))
		}
	}
	return nil
}

// Recompute recomputes and persists the score for a single address, used by
// the settlement path to refresh affected addresses right away.
func (u *Updater) Recompute(ctx context.Context, addr string) error {
	if u == nil || u.Repo == nil {
		return nil
	}
	item, err := u.Repo.GetAddress(ctx, addr)
	if err != nil || item == nil {
		return err
	}
	popAvg, err := u.Repo.PopulationAvgTradeCents(ctx)
	if err != nil {
		u.logWarn("population avg failed", err)
	}
	return u.updateAddress(ctx, item, popAvg)
}

func (u *Updater) updateAddress(ctx context.Context, item *models.Address, popAvg int64) error {
	stats, err := u.Repo.AddressTradeStats(ctx, item.Address)
	if err != nil {
		return err
	}
	bd := Score(Snapshot{
		TotalTrades:             item.TotalTrades,
		TotalVolumeCents:        item.TotalVolumeCents,
		WinCount:                item.WinCount,
		SettledCount:            item.SettledCount,
		PreMoveTrades:           stats.PreMoveTrades,
		NearExtremaTrades:       stats.NearExtremaTrades,
		DistinctCategories:      stats.DistinctCategories,
		PopulationAvgTradeCents: popAvg,
	}, u.Params)

	prev := item.SuspicionScore
	item.SuspicionScore = bd.Total
	item.IsSuspicious = bd.Total >= u.suspicionThreshold()
	if err := u.Repo.SaveAddress(ctx, item); err != nil {
		return err
	}

	high := u.highThreshold()
	if u.Bus != nil && prev < high && bd.Total >= high {
		u.Bus.Publish(events.Event{
			Kind: events.KindScoreCrossed,
			Score: &events.ScoreEvent{
				Address:   item.Address,
				Score:     bd.Total,
				PrevScore: prev,
				Threshold: high,
				At:        time.Now().UTC(),
			},
		})
	}
	return nil
}

func (u *Updater) suspicionThreshold() int {
	if u.SuspicionThreshold > 0 {
		return u.SuspicionThreshold
	}
	return 50
}

func (u *Updater) highThreshold() int {
	if u.HighThreshold > 0 {
		return u.HighThreshold
	}
	return 80
}

func (u *Updater) logWarn(msg string, err error, fields ...zap.Field) {
	if u != nil && u.Logger != nil {
		u.Logger.Warn(msg, append(fields, zap.Error(err))...)
	}
}
