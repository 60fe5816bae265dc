package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"polyscope/internal/aggregate"
	"polyscope/internal/client/datafeed"
	"polyscope/internal/events"
	"polyscope/internal/models"
	"polyscope/internal/repository"
)

// Feed is the upstream trade source. The production implementation is
// datafeed.Client; tests use a scripted fake.
type Feed interface {
	GetTrades(ctx context.Context, params datafeed.TradeParams) (*datafeed.TradesPage, error)
}

type Config struct {
	Source         string
	Interval       time.Duration
	BatchSize      int
	MaxRunDuration time.Duration
	RetryMax       int
	RetryBaseDelay time.Duration

	Policy Policy

	// A whale trade by an address already scoring at or above this is
	// provisionally flagged suspicious at insert time.
	HighScoreThreshold int

	PreMoveWindowMin time.Duration
	PreMoveWindowMax time.Duration
}

// TradeIngestor pulls trade batches from the feed and turns them into
// normalized rows, one committed batch at a time. The cursor in SyncState
// advances in the same transaction as the batch, so a crash resumes from
// the last committed position and trade-id dedupe absorbs the overlap.
type TradeIngestor struct {
	Feed   Feed
	Repo   repository.Repository
	Agg    *aggregate.Aggregator
	Bus    *events.Bus
	Logger *zap.Logger
	Cfg    Config

	runMu sync.Mutex
}

func (i *TradeIngestor) source() string {
	if i.Cfg.Source != "" {
		return i.Cfg.Source
	}
	return "trade_ingest"
}

func (i *TradeIngestor) Run(ctx context.Context) error {
	if i == nil || i.Repo == nil || i.Feed == nil {
		return nil
	}
	interval := i.Cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	_ = i.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = i.RunOnce(ctx)
		}
	}
}

// RunOnce executes one ingestion run. Runs are single-flight per ingestor:
// a tick that fires while the previous run is still going is skipped.
func (i *TradeIngestor) RunOnce(ctx context.Context) error {
	if i == nil || i.Repo == nil || i.Feed == nil {
		return nil
	}
	if !i.runMu.TryLock() {
		return nil
	}
	defer i.runMu.Unlock()

	now := time.Now().UTC()
	state, err := i.Repo.GetSyncState(ctx, i.source())
	if err != nil {
		return err
	}
	if state == nil {
		state = &models.SyncState{Service: i.source(), Status: models.SyncStatusIdle}
	}

	state.Status = models.SyncStatusRunning
	state.LastRunAt = &now
	state.LastError = nil
	if err := i.Repo.SaveSyncState(ctx, state); err != nil {
		return err
	}

	runErr := i.pullBatches(ctx, state)
	if runErr != nil && !IsTransient(runErr) {
		msg := runErr.Error()
		state.Status = models.SyncStatusError
		state.LastError = &msg
		_ = i.Repo.SaveSyncState(ctx, state)
		i.logWarn("ingest run failed", runErr, zap.String("source", i.source()), zap.Stringp("cursor", state.Cursor))
		return runErr
	}

	state.Status = models.SyncStatusIdle
	if runErr != nil {
		// Retry budget exhausted on a transient failure: stay resumable,
		// record the message, let the next tick try again.
		msg := runErr.Error()
		state.LastError = &msg
	}
	if err := i.Repo.SaveSyncState(ctx, state); err != nil {
		return err
	}
	return runErr
}

func (i *TradeIngestor) pullBatches(ctx context.Context, state *models.SyncState) error {
	deadline := time.Now().UTC().Add(i.maxRunDuration())
	cursor := ""
	if state.Cursor != nil {
		cursor = *state.Cursor
	}

	categories := map[string]string{}
	malformed := 0

	for {
		// Budget and cancellation checks only at batch boundaries; a
		// committed batch is never torn.
		if ctx.Err() != nil {
			return nil
		}
		if time.Now().UTC().After(deadline) {
			i.logInfo("ingest run hit wall-clock budget", zap.String("source", i.source()))
			return nil
		}

		page, err := i.fetchWithRetry(ctx, cursor)
		if err != nil {
			return err
		}
		if page == nil || len(page.Trades) == 0 {
			break
		}

		batch, maxTS, skipped := i.normalizeBatch(ctx, page.Trades, categories)
		malformed += skipped

		inserted, err := i.commitBatch(ctx, state, batch, maxTS)
		if err != nil {
			return err
		}

		for _, tr := range inserted {
			if i.Agg != nil {
				if err := i.Agg.ApplyTrade(ctx, tr); err != nil {
					i.logWarn("aggregate apply failed", err, zap.String("trade", tr.TradeID))
				}
			}
			i.publishTrade(tr)
		}

		if page.NextCursor != "" {
			cursor = page.NextCursor
		} else if !maxTS.IsZero() {
			cursor = maxTS.Format(time.RFC3339Nano)
		} else {
			break
		}
		if len(page.Trades) < i.batchSize() {
			break
		}
	}

	if malformed > 0 {
		i.logInfo("skipped malformed records", zap.Int("count", malformed), zap.String("source", i.source()))
	}
	return nil
}

func (i *TradeIngestor) fetchWithRetry(ctx context.Context, cursor string) (*datafeed.TradesPage, error) {
	retryMax := i.Cfg.RetryMax
	if retryMax <= 0 {
		retryMax = 3
	}
	delay := i.Cfg.RetryBaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt <= retryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &TransientError{Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay *= 2
		}
		page, err := i.Feed.GetTrades(ctx, datafeed.TradeParams{Cursor: cursor, Limit: i.batchSize()})
		if err == nil {
			return page, nil
		}
		lastErr = classifyFeedError(err)
		if !IsTransient(lastErr) {
			return nil, lastErr
		}
		i.logWarn("feed fetch failed, retrying", lastErr, zap.Int("attempt", attempt+1))
	}
	return nil, lastErr
}

// normalizeBatch converts raw records to rows in event-timestamp order,
// dropping malformed records and already-stored trade ids.
func (i *TradeIngestor) normalizeBatch(ctx context.Context, raws []datafeed.RawTrade, categories map[string]string) ([]models.Trade, time.Time, int) {
	sort.SliceStable(raws, func(a, b int) bool {
		return raws[a].Timestamp.Before(raws[b].Timestamp)
	})

	ids := make([]string, 0, len(raws))
	for _, r := range raws {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	existing, err := i.Repo.ExistingTradeIDs(ctx, ids)
	if err != nil {
		i.logWarn("dedupe lookup failed", err)
		existing = map[string]struct{}{}
	}

	var maxTS time.Time
	malformed := 0
	batch := make([]models.Trade, 0, len(raws))
	for _, raw := range raws {
		if _, dup := existing[raw.ID]; dup {
			if raw.Timestamp.After(maxTS) {
				maxTS = raw.Timestamp
			}
			continue
		}
		tr, err := i.normalize(raw)
		if err != nil {
			malformed++
			i.logWarn("skipping malformed record", err)
			continue
		}
		tr.IsWhale = i.Cfg.Policy.IsWhale(tr.AmountCents, tr.PriceCents, i.marketCategory(ctx, tr.MarketID, categories))
		if tr.IsWhale {
			tr.IsSuspicious = i.highScoreAddress(ctx, tr.TakerAddress) || i.highScoreAddress(ctx, tr.MakerAddress)
		}
		if tr.EventTime.After(maxTS) {
			maxTS = tr.EventTime
		}
		batch = append(batch, tr)
	}
	return batch, maxTS, malformed
}

func (i *TradeIngestor) normalize(raw datafeed.RawTrade) (models.Trade, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return models.Trade{}, &MalformedError{TradeID: raw.ID, Err: fmt.Errorf("missing trade id")}
	}
	if strings.TrimSpace(raw.Market) == "" {
		return models.Trade{}, &MalformedError{TradeID: raw.ID, Err: fmt.Errorf("missing market")}
	}
	side := strings.ToUpper(strings.TrimSpace(raw.Side))
	if side != models.TradeSideYes && side != models.TradeSideNo {
		return models.Trade{}, &MalformedError{TradeID: raw.ID, Err: fmt.Errorf("bad side %q", raw.Side)}
	}
	priceCents, err := datafeed.PriceToCents(raw.Price)
	if err != nil {
		return models.Trade{}, &MalformedError{TradeID: raw.ID, Err: err}
	}
	if priceCents < 0 || priceCents > 100 {
		return models.Trade{}, &MalformedError{TradeID: raw.ID, Err: fmt.Errorf("price %d out of range", priceCents)}
	}
	amountCents, err := datafeed.ToCents(raw.Amount)
	if err != nil {
		return models.Trade{}, &MalformedError{TradeID: raw.ID, Err: err}
	}
	if amountCents < 0 {
		return models.Trade{}, &MalformedError{TradeID: raw.ID, Err: fmt.Errorf("negative amount %d", amountCents)}
	}
	if raw.Timestamp.IsZero() {
		return models.Trade{}, &MalformedError{TradeID: raw.ID, Err: fmt.Errorf("missing timestamp")}
	}
	return models.Trade{
		TradeID:      raw.ID,
		MarketID:     raw.Market,
		MakerAddress: strings.TrimSpace(raw.Maker),
		TakerAddress: strings.TrimSpace(raw.Taker),
		Side:         side,
		PriceCents:   priceCents,
		AmountCents:  amountCents,
		EventTime:    raw.Timestamp.UTC(),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// commitBatch writes the batch and the advanced cursor in one transaction.
func (i *TradeIngestor) commitBatch(ctx context.Context, state *models.SyncState, batch []models.Trade, maxTS time.Time) ([]models.Trade, error) {
	if len(batch) == 0 {
		if !maxTS.IsZero() {
			cur := maxTS.Format(time.RFC3339Nano)
			state.Cursor = &cur
			if err := i.Repo.SaveSyncState(ctx, state); err != nil {
				return nil, &PersistenceError{Err: err}
			}
		}
		return nil, nil
	}

	cur := maxTS.Format(time.RFC3339Nano)
	err := i.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := i.Repo.InsertTradesTx(ctx, tx, batch); err != nil {
			return err
		}
		state.Cursor = &cur
		state.ProcessedTotal += int64(len(batch))
		state.LastBatchSize = len(batch)
		return i.Repo.SaveSyncStateTx(ctx, tx, state)
	})
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return batch, nil
}

func (i *TradeIngestor) publishTrade(tr models.Trade) {
	if i.Bus == nil {
		return
	}
	ev := &events.TradeEvent{
		TradeID:     tr.TradeID,
		MarketID:    tr.MarketID,
		Maker:       tr.MakerAddress,
		Taker:       tr.TakerAddress,
		Side:        tr.Side,
		PriceCents:  tr.PriceCents,
		AmountCents: tr.AmountCents,
		EventTime:   tr.EventTime,
		IsWhale:     tr.IsWhale,
	}
	i.Bus.Publish(events.Event{Kind: events.KindTradeStored, Trade: ev})
	if tr.IsWhale {
		i.Bus.Publish(events.Event{Kind: events.KindWhaleTrade, Trade: ev})
	}
}

func (i *TradeIngestor) marketCategory(ctx context.Context, marketID string, cache map[string]string) string {
	if cat, ok := cache[marketID]; ok {
		return cat
	}
	cat := ""
	market, err := i.Repo.GetMarketByConditionID(ctx, marketID)
	if err != nil {
		i.logWarn("market lookup failed", err, zap.String("market", marketID))
	} else if market != nil {
		cat = market.Category
	}
	cache[marketID] = cat
	return cat
}

func (i *TradeIngestor) highScoreAddress(ctx context.Context, addr string) bool {
	if addr == "" {
		return false
	}
	threshold := i.Cfg.HighScoreThreshold
	if threshold <= 0 {
		threshold = 80
	}
	item, err := i.Repo.GetAddress(ctx, addr)
	if err != nil || item == nil {
		return false
	}
	return item.SuspicionScore >= threshold
}

func (i *TradeIngestor) batchSize() int {
	if i.Cfg.BatchSize > 0 {
		return i.Cfg.BatchSize
	}
	return 500
}

func (i *TradeIngestor) maxRunDuration() time.Duration {
	if i.Cfg.MaxRunDuration > 0 {
		return i.Cfg.MaxRunDuration
	}
	return 2 * time.Minute
}

func (i *TradeIngestor) logWarn(msg string, err error, fields ...zap.Field) {
	if i != nil && i.Logger != nil {
		i.Logger.Warn(msg, append(fields, zap.Error(err))...)
	}
}

func (i *TradeIngestor) logInfo(msg string, fields ...zap.Field) {
	if i != nil && i.Logger != nil {
		i.Logger.Info(msg, fields...)
	}
}
