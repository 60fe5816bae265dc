package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"polyscope/internal/category"
	"polyscope/internal/client/datafeed"
	"polyscope/internal/models"
	"polyscope/internal/repository"
)

// MarketFeed is the catalog side of the upstream feed.
type MarketFeed interface {
	GetMarkets(ctx context.Context, params datafeed.MarketParams) ([]datafeed.RawMarket, error)
}

// MarketSyncService mirrors the upstream market catalog. The page offset
// lives in SyncState so an interrupted sync resumes where it stopped, and
// every synced market gets a price-history sample for the anomaly scan.
type MarketSyncService struct {
	Feed   MarketFeed
	Repo   repository.Repository
	Logger *zap.Logger

	PageLimit int
	MaxPages  int
	Resume    bool
}

type MarketSyncResult struct {
	Pages      int
	Markets    int
	NextOffset int
	Done       bool
}

const marketSyncSource = "market_sync"

func (s *MarketSyncService) SyncOnce(ctx context.Context) (MarketSyncResult, error) {
	if s == nil || s.Repo == nil || s.Feed == nil {
		return MarketSyncResult{}, nil
	}
	limit := s.PageLimit
	if limit <= 0 {
		limit = 200
	}
	maxPages := s.MaxPages
	if maxPages <= 0 {
		maxPages = 5
	}

	offset := 0
	state, err := s.Repo.GetSyncState(ctx, marketSyncSource)
	if err != nil {
		return MarketSyncResult{}, err
	}
	if state == nil {
		state = &models.SyncState{Service: marketSyncSource, Status: models.SyncStatusIdle}
	}
	if s.Resume && state.Cursor != nil {
		if parsed, err := strconv.Atoi(*state.Cursor); err == nil {
			offset = parsed
		}
	}

	now := time.Now().UTC()
	state.Status = models.SyncStatusRunning
	state.LastRunAt = &now
	state.LastError = nil
	if err := s.Repo.SaveSyncState(ctx, state); err != nil {
		return MarketSyncResult{}, err
	}

	result := MarketSyncResult{}
	for page := 0; page < maxPages; page++ {
		if ctx.Err() != nil {
			break
		}
		raws, err := s.Feed.GetMarkets(ctx, datafeed.MarketParams{Offset: offset, Limit: limit})
		if err != nil {
			msg := err.Error()
			state.Status = models.SyncStatusError
			state.LastError = &msg
			_ = s.Repo.SaveSyncState(ctx, state)
			return result, err
		}
		if len(raws) == 0 {
			result.Done = true
			break
		}

		items, points := s.convert(raws, now)
		offset += len(raws)
		cur := strconv.Itoa(offset)
		err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
			if err := s.Repo.UpsertMarketsTx(ctx, tx, items); err != nil {
				return err
			}
			state.Cursor = &cur
			state.ProcessedTotal += int64(len(items))
			state.LastBatchSize = len(items)
			return s.Repo.SaveSyncStateTx(ctx, tx, state)
		})
		if err != nil {
			msg := err.Error()
			state.Status = models.SyncStatusError
			state.LastError = &msg
			_ = s.Repo.SaveSyncState(ctx, state)
			return result, err
		}
		if err := s.Repo.UpsertPricePoints(ctx, points); err != nil {
			s.logWarn("price point upsert failed", err)
		}

		result.Pages++
		result.Markets += len(items)
		result.NextOffset = offset
		if len(raws) < limit {
			result.Done = true
			break
		}
	}

	if result.Done {
		// Start over from the top next run.
		zero := "0"
		state.Cursor = &zero
	}
	state.Status = models.SyncStatusIdle
	if err := s.Repo.SaveSyncState(ctx, state); err != nil {
		return result, err
	}
	return result, nil
}

func (s *MarketSyncService) convert(raws []datafeed.RawMarket, now time.Time) ([]models.Market, []models.MarketPricePoint) {
	items := make([]models.Market, 0, len(raws))
	points := make([]models.MarketPricePoint, 0, len(raws))
	for _, raw := range raws {
		if raw.ConditionID == "" {
			continue
		}
		item := models.Market{
			ConditionID: raw.ConditionID,
			Title:       raw.Title,
			Question:    raw.Question,
			Category:    category.Categorize(raw.Title, raw.Question),
			EndDate:     raw.EndDate,
			Active:      raw.Active,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if raw.Country != "" {
			country := raw.Country
			item.Country = &country
		}
		if cents, err := datafeed.PriceToCents(raw.Price); err == nil {
			item.CurrentPriceCents = &cents
			points = append(points, models.MarketPricePoint{
				MarketID:   raw.ConditionID,
				PriceCents: cents,
				SampledAt:  now,
			})
		}
		if cents, err := datafeed.ToCents(raw.Volume24h); err == nil {
			item.Volume24hCents = cents
		}
		if cents, err := datafeed.ToCents(raw.VolumeTotal); err == nil {
			item.VolumeTotalCents = cents
		}
		if rawJSON, err := json.Marshal(raw); err == nil {
			item.RawJSON = rawJSON
		}
		items = append(items, item)
	}
	return items, points
}

func (s *MarketSyncService) logWarn(msg string, err error, fields ...zap.Field) {
	if s != nil && s.Logger != nil {
		s.Logger.Warn(msg, append(fields, zap.Error(err))...)
	}
}
