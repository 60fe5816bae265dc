package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MarkPreMoveTrades flags trades placed inside the pre-move window before a
// detected price spike. It runs after ingestion because it needs subsequent
// price history; re-running over the same anomalies is harmless since the
// update only flips unflagged rows.
func (i *TradeIngestor) MarkPreMoveTrades(ctx context.Context, since time.Time) error {
	if i == nil || i.Repo == nil {
		return nil
	}
	minWindow := i.Cfg.PreMoveWindowMin
	if minWindow <= 0 {
		minWindow = 24 * time.Hour
	}
	maxWindow := i.Cfg.PreMoveWindowMax
	if maxWindow <= minWindow {
		maxWindow = 72 * time.Hour
	}

	anomalies, err := i.Repo.ListRecentAnomalies(ctx, since)
	if err != nil {
		return err
	}
	var flagged int64
	for _, a := range anomalies {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		from := a.WindowStart.Add(-maxWindow)
		to := a.WindowStart.Add(-minWindow)
		n, err := i.Repo.MarkTradesSuspicious(ctx, a.MarketID, from, to)
		if err != nil {
			i.logWarn("pre-move flagging failed", err, zap.String("market", a.MarketID))
			continue
		}
		flagged += n
	}
	if flagged > 0 {
		i.logInfo("flagged pre-move trades", zap.Int64("count", flagged), zap.Int("anomalies", len(anomalies)))
	}
	return nil
}
