package aggregate

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"polyscope/internal/models"
	"polyscope/internal/repository"
)

// Aggregator owns all mutation of the per-address counters. Trades and
// settlements both funnel through it; per-address updates run under a keyed
// lock so concurrent legs for the same wallet never lose an update.
type Aggregator struct {
	Repo   repository.Repository
	Logger *zap.Logger

	locks *keyedMutex
}

func New(repo repository.Repository, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		Repo:   repo,
		Logger: logger,
		locks:  newKeyedMutex(64),
	}
}

// ApplyTrade updates both legs of a fill: the taker and the maker each get
// one trade counted. The ingestor dedupes by trade id before calling, so a
// given trade reaches this point at most once.
func (a *Aggregator) ApplyTrade(ctx context.Context, trade models.Trade) error {
	if a == nil || a.Repo == nil {
		return nil
	}
	for _, addr := range []string{trade.TakerAddress, trade.MakerAddress} {
		if err := a.applyTradeLeg(ctx, addr, trade); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) applyTradeLeg(ctx context.Context, addr string, trade models.Trade) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	unlock := a.locks.Lock(addr)
	defer unlock()

	item, err := a.Repo.GetAddress(ctx, addr)
	if err != nil {
		return err
	}
	if item == nil {
		item = &models.Address{
			Address:      addr,
			FirstSeenAt:  trade.EventTime,
			LastActiveAt: trade.EventTime,
		}
	}

	item.TotalTrades++
	item.TotalVolumeCents += trade.AmountCents
	if trade.EventTime.Before(item.FirstSeenAt) || item.FirstSeenAt.IsZero() {
		item.FirstSeenAt = trade.EventTime
	}
	if trade.EventTime.After(item.LastActiveAt) {
		item.LastActiveAt = trade.EventTime
	}

	return a.Repo.SaveAddress(ctx, item)
}

// ApplySettlement moves an address's win/loss counters for one market
// resolution. The ledger insert is the idempotency gate: when the
// (address, market, settlement) row already exists, nothing happens.
func (a *Aggregator) ApplySettlement(ctx context.Context, addr, marketID, settlementID string, won bool) (bool, error) {
	if a == nil || a.Repo == nil {
		return false, nil
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false, nil
	}
	unlock := a.locks.Lock(addr)
	defer unlock()

	inserted, err := a.Repo.InsertAddressSettlement(ctx, &models.AddressSettlement{
		Address:      addr,
		MarketID:     marketID,
		SettlementID: settlementID,
		Won:          won,
		AppliedAt:    time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}

	item, err := a.Repo.GetAddress(ctx, addr)
	if err != nil {
		return false, err
	}
	if item == nil {
		// Ledger row exists but the aggregate is gone; log and move on.
		if a.Logger != nil {
			a.Logger.Warn("settlement for unknown address", zap.String("address", addr), zap.String("market", marketID))
		}
		return false, nil
	}

	item.SettledCount++
	if won {
		item.WinCount++
	} else {
		item.LossCount++
	}
	if err := a.Repo.SaveAddress(ctx, item); err != nil {
		return false, err
	}
	return true, nil
}
