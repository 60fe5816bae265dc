package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"polyscope/internal/aggregate"
	"polyscope/internal/client/datafeed"
	"polyscope/internal/events"
	"polyscope/internal/models"
	"polyscope/internal/repository"
	"polyscope/internal/scoring"
)

// ResolutionFeed is the settlement side of the upstream feed.
type ResolutionFeed interface {
	GetResolutions(ctx context.Context, cursor string, limit int) ([]datafeed.RawResolution, error)
}

// SettlementSyncService pulls market resolutions and turns them into
// per-address win/loss outcomes. Every address that traded a resolved
// market is settled on its most recent side and rescored immediately.
type SettlementSyncService struct {
	Feed   ResolutionFeed
	Repo   repository.Repository
	Agg    *aggregate.Aggregator
	Scores *scoring.Updater
	Bus    *events.Bus
	Logger *zap.Logger

	BatchSize int
}

type SettlementSyncResult struct {
	Resolutions int
	Addresses   int
}

const settlementSyncSource = "settlement_sync"

func (s *SettlementSyncService) SyncOnce(ctx context.Context) (SettlementSyncResult, error) {
	if s == nil || s.Repo == nil || s.Feed == nil {
		return SettlementSyncResult{}, nil
	}
	batch := s.BatchSize
	if batch <= 0 {
		batch = 100
	}

	state, err := s.Repo.GetSyncState(ctx, settlementSyncSource)
	if err != nil {
		return SettlementSyncResult{}, err
	}
	if state == nil {
		state = &models.SyncState{Service: settlementSyncSource, Status: models.SyncStatusIdle}
	}
	cursor := ""
	if state.Cursor != nil {
		cursor = *state.Cursor
	}

	now := time.Now().UTC()
	state.Status = models.SyncStatusRunning
	state.LastRunAt = &now
	state.LastError = nil
	if err := s.Repo.SaveSyncState(ctx, state); err != nil {
		return SettlementSyncResult{}, err
	}

	result := SettlementSyncResult{}
	fail := func(err error) (SettlementSyncResult, error) {
		msg := err.Error()
		state.Status = models.SyncStatusError
		state.LastError = &msg
		_ = s.Repo.SaveSyncState(ctx, state)
		return result, err
	}

	resolutions, err := s.Feed.GetResolutions(ctx, cursor, batch)
	if err != nil {
		return fail(err)
	}

	var maxResolvedAt time.Time
	for i := range resolutions {
		if ctx.Err() != nil {
			break
		}
		res := resolutions[i]
		if res.ConditionID == "" || res.SettlementID == "" {
			continue
		}
		applied, err := s.applyResolution(ctx, res)
		if err != nil {
			return fail(err)
		}
		result.Resolutions++
		result.Addresses += applied
		if res.ResolvedAt.After(maxResolvedAt) {
			maxResolvedAt = res.ResolvedAt
		}
	}

	if !maxResolvedAt.IsZero() {
		cur := maxResolvedAt.UTC().Format(time.RFC3339Nano)
		state.Cursor = &cur
	}
	state.ProcessedTotal += int64(result.Resolutions)
	state.LastBatchSize = result.Resolutions
	state.Status = models.SyncStatusIdle
	if err := s.Repo.SaveSyncState(ctx, state); err != nil {
		return result, err
	}
	return result, nil
}

// applyResolution settles one market: the market row is flagged resolved,
// then every trading address gets a win or loss depending on whether its
// settled side matches the winner. Returns how many addresses were newly
// settled; replays count zero because the settlement ledger deduplicates.
func (s *SettlementSyncService) applyResolution(ctx context.Context, res datafeed.RawResolution) (int, error) {
	if err := s.Repo.MarkMarketResolved(ctx, res.ConditionID, res.WinningSide); err != nil {
		return 0, err
	}
	rows, err := s.Repo.ListTradeAddressesByMarket(ctx, res.ConditionID)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, row := range rows {
		won := row.Side == res.WinningSide
		inserted, err := s.Agg.ApplySettlement(ctx, row.Address, res.ConditionID, res.SettlementID, won)
		if err != nil {
			return applied, err
		}
		if !inserted {
			continue
		}
		applied++
		if s.Scores != nil {
			if err := s.Scores.Recompute(ctx, row.Address); err != nil {
				s.logWarn("rescore after settlement failed", err, zap.String("address", row.Address))
			}
		}
	}

	if s.Bus != nil && applied > 0 {
		s.Bus.Publish(events.Event{
			Kind: events.KindSettlementApplied,
			Settlement: &events.SettlementEvent{
				MarketID:     res.ConditionID,
				SettlementID: res.SettlementID,
				WinningSide:  res.WinningSide,
				Addresses:    applied,
			},
		})
	}
	return applied, nil
}

func (s *SettlementSyncService) logWarn(msg string, err error, fields ...zap.Field) {
	if s != nil && s.Logger != nil {
		s.Logger.Warn(msg, append(fields, zap.Error(err))...)
	}
}
