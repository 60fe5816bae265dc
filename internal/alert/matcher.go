package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"polyscope/internal/events"
	"polyscope/internal/models"
	"polyscope/internal/repository"
)

// Matcher consumes bus events and resolves them against active
// subscriptions. Each matched (subscription, trigger) pair is handed to the
// notifier exactly once; the notifier's dedup key absorbs replays.
type Matcher struct {
	Repo     repository.Repository
	Notifier *Notifier
	Logger   *zap.Logger

	// LargeTradeThresholdCents is the alert-trigger bar, independent of
	// the ingestor's whale classification threshold.
	LargeTradeThresholdCents int64
}

func (m *Matcher) Run(ctx context.Context, bus *events.Bus) error {
	if m == nil || m.Repo == nil || bus == nil {
		return nil
	}
	trades := bus.Subscribe(events.KindTradeStored, 128)
	scores := bus.Subscribe(events.KindScoreCrossed, 32)
	spikes := bus.Subscribe(events.KindPriceSpike, 32)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-trades:
			if ev.Trade != nil {
				m.HandleTrade(ctx, ev.Trade)
			}
		case ev := <-scores:
			if ev.Score != nil {
				m.HandleScore(ctx, ev.Score)
			}
		case ev := <-spikes:
			if ev.Spike != nil {
				m.HandleSpike(ctx, ev.Spike)
			}
		}
	}
}

func (m *Matcher) largeTradeThreshold() int64 {
	if m.LargeTradeThresholdCents > 0 {
		return m.LargeTradeThresholdCents
	}
	return 10_000
}

func (m *Matcher) HandleTrade(ctx context.Context, ev *events.TradeEvent) {
	if ev.AmountCents < m.largeTradeThreshold() {
		return
	}
	targets := []target{
		{models.SubscriptionTypeAddress, ev.Taker},
		{models.SubscriptionTypeAddress, ev.Maker},
		{models.SubscriptionTypeMarket, ev.MarketID},
	}
	targets = m.appendCategoryTarget(ctx, targets, ev.MarketID)

	title := "Large trade detected"
	message := fmt.Sprintf("%s trade at %d¢ on market %s", dollars(ev.AmountCents), ev.PriceCents, ev.MarketID)
	metadata := map[string]any{
		"trade_id":     ev.TradeID,
		"market_id":    ev.MarketID,
		"amount_cents": ev.AmountCents,
		"price_cents":  ev.PriceCents,
		"side":         ev.Side,
	}
	m.notifyMatching(ctx, targets, models.AlertKindLargeTrade, ev.TradeID, title, message, metadata)
}

func (m *Matcher) HandleScore(ctx context.Context, ev *events.ScoreEvent) {
	targets := []target{{models.SubscriptionTypeAddress, ev.Address}}
	// The crossing day is part of the key: recompute churn around the
	// threshold stays quiet, while an address that drops back down and
	// crosses again on a later day notifies again.
	triggerKey := fmt.Sprintf("score:%s:%d:%s", ev.Address, ev.Threshold, ev.At.UTC().Format("2006-01-02"))
	title := "High suspicion address"
	message := fmt.Sprintf("Address %s suspicion score reached %d", ev.Address, ev.Score)
	metadata := map[string]any{
		"address":    ev.Address,
		"score":      ev.Score,
		"prev_score": ev.PrevScore,
	}
	m.notifyMatching(ctx, targets, models.AlertKindHighSuspicion, triggerKey, title, message, metadata)
}

func (m *Matcher) HandleSpike(ctx context.Context, ev *events.SpikeEvent) {
	targets := []target{{models.SubscriptionTypeMarket, ev.MarketID}}
	targets = m.appendCategoryTarget(ctx, targets, ev.MarketID)
	triggerKey := fmt.Sprintf("spike:%s:%d", ev.MarketID, ev.WindowEnd.Unix())
	title := "Price spike"
	message := fmt.Sprintf("Market %s moved from %d¢ to %d¢ (%d bps)",
		ev.MarketID, ev.PriceBeforeCents, ev.PriceAfterCents, ev.ChangeBps)
	metadata := map[string]any{
		"market_id":    ev.MarketID,
		"change_bps":   ev.ChangeBps,
		"price_before": ev.PriceBeforeCents,
		"price_after":  ev.PriceAfterCents,
	}
	m.notifyMatching(ctx, targets, models.AlertKindPriceSpike, triggerKey, title, message, metadata)
}

type target struct {
	targetType string
	targetID   string
}

// appendCategoryTarget expands a market event so category subscriptions on
// the market's category match too.
func (m *Matcher) appendCategoryTarget(ctx context.Context, targets []target, marketID string) []target {
	market, err := m.Repo.GetMarketByConditionID(ctx, marketID)
	if err != nil {
		m.logWarn("market lookup failed", err, zap.String("market", marketID))
		return targets
	}
	if market != nil && market.Category != "" {
		targets = append(targets, target{models.SubscriptionTypeCategory, market.Category})
	}
	return targets
}

func (m *Matcher) notifyMatching(ctx context.Context, targets []target, kind, triggerKey, title, message string, metadata map[string]any) {
	seen := map[uint]struct{}{}
	for _, tg := range targets {
		if tg.targetID == "" {
			continue
		}
		subs, err := m.Repo.ListActiveSubscriptionsForTarget(ctx, tg.targetType, tg.targetID)
		if err != nil {
			m.logWarn("subscription lookup failed", err, zap.String("target", tg.targetID))
			continue
		}
		for _, sub := range subs {
			if _, dup := seen[sub.ID]; dup {
				continue
			}
			seen[sub.ID] = struct{}{}
			if !subscribedTo(sub, kind) {
				continue
			}
			if _, err := m.Notifier.Notify(ctx, sub, kind, triggerKey, title, message, metadata); err != nil {
				m.logWarn("notify failed", err,
					zap.Uint("subscription", sub.ID),
					zap.String("kind", kind))
			}
		}
	}
}

func subscribedTo(sub models.AlertSubscription, kind string) bool {
	if len(sub.AlertKinds) == 0 {
		return false
	}
	var kinds []string
	if err := json.Unmarshal(sub.AlertKinds, &kinds); err != nil {
		return false
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func dollars(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func (m *Matcher) logWarn(msg string, err error, fields ...zap.Field) {
	if m != nil && m.Logger != nil {
		m.Logger.Warn(msg, append(fields, zap.Error(err))...)
	}
}
