package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"polyscope/internal/models"
	"polyscope/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Sync checkpoints --------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, service string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	service = strings.TrimSpace(service)
	if service == "" {
		return nil, nil
	}
	var item models.SyncState
	err := s.db.WithContext(ctx).Model(&models.SyncState{}).Where("service = ?", service).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	return saveSyncState(s.db.WithContext(ctx), state)
}

func (s *Store) SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	if s == nil || tx == nil || state == nil {
		return nil
	}
	return saveSyncState(tx.WithContext(ctx), state)
}

func saveSyncState(db *gorm.DB, state *models.SyncState) error {
	state.UpdatedAt = time.Now().UTC()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service"}},
		UpdateAll: true,
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SyncState
	if err := s.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Order("service asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Trades ------------------------------------------------------------------

func (s *Store) ExistingTradeIDs(ctx context.Context, tradeIDs []string) (map[string]struct{}, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	tradeIDs = cleanStrings(tradeIDs)
	if len(tradeIDs) == 0 {
		return map[string]struct{}{}, nil
	}
	var found []string
	if err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("trade_id IN ?", tradeIDs).
		Pluck("trade_id", &found).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(found))
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *Store) InsertTradesTx(ctx context.Context, tx *gorm.DB, items []models.Trade) error {
	if s == nil || tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_id"}},
		DoNothing: true,
	}).CreateInBatches(items, 200).Error
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyTradeFilters(s.db.WithContext(ctx).Model(&models.Trade{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "event_time")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Trade
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyTradeFilters(s.db.WithContext(ctx).Model(&models.Trade{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyTradeFilters(query *gorm.DB, params repository.ListTradesParams) *gorm.DB {
	if params.MarketID != nil && strings.TrimSpace(*params.MarketID) != "" {
		query = query.Where("market_id = ?", strings.TrimSpace(*params.MarketID))
	}
	if params.Address != nil && strings.TrimSpace(*params.Address) != "" {
		addr := strings.TrimSpace(*params.Address)
		query = query.Where("maker_address = ? OR taker_address = ?", addr, addr)
	}
	if params.WhaleOnly {
		query = query.Where("is_whale = ?", true)
	}
	if params.Suspicious != nil {
		query = query.Where("is_suspicious = ?", *params.Suspicious)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("event_time >= ?", *params.Since)
	}
	return query
}

func (s *Store) ListWhaleTrades(ctx context.Context, params repository.ListTradesParams) ([]repository.WhaleTradeRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	params.WhaleOnly = true
	trades, err := s.ListTrades(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}

	marketIDs := make([]string, 0, len(trades))
	for _, t := range trades {
		marketIDs = append(marketIDs, t.MarketID)
	}
	marketIDs = cleanStrings(marketIDs)

	var markets []models.Market
	if err := s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("condition_id IN ?", marketIDs).
		Find(&markets).Error; err != nil {
		return nil, err
	}
	marketByID := make(map[string]models.Market, len(markets))
	for _, m := range markets {
		marketByID[m.ConditionID] = m
	}

	predictions, err := s.LatestPredictionsByMarketIDs(ctx, marketIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]repository.WhaleTradeRow, 0, len(trades))
	for _, t := range trades {
		row := repository.WhaleTradeRow{Trade: t}
		if m, ok := marketByID[t.MarketID]; ok {
			market := m
			row.Market = &market
		}
		if p, ok := predictions[t.MarketID]; ok {
			pred := p
			row.Prediction = &pred
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) MarkTradesSuspicious(ctx context.Context, marketID string, from, to time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	marketID = strings.TrimSpace(marketID)
	if marketID == "" {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("market_id = ?", marketID).
		Where("event_time >= ? AND event_time <= ?", from, to).
		Where("is_suspicious = ?", false).
		Update("is_suspicious", true)
	return res.RowsAffected, res.Error
}

func (s *Store) ListTradeAddressesByMarket(ctx context.Context, marketID string) ([]repository.TradeAddressRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	marketID = strings.TrimSpace(marketID)
	if marketID == "" {
		return nil, nil
	}
	// Maker holds the opposite side of the fill. The most recent leg per
	// address decides which side it is settled on.
	var rows []repository.TradeAddressRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (address) address, side FROM (
			SELECT taker_address AS address, side, event_time
			FROM trades WHERE market_id = ?
			UNION ALL
			SELECT maker_address AS address,
			       CASE WHEN side = 'YES' THEN 'NO' ELSE 'YES' END AS side,
			       event_time
			FROM trades WHERE market_id = ?
		) legs
		ORDER BY address, event_time DESC
	`, marketID, marketID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- Address aggregates ------------------------------------------------------

func (s *Store) GetAddress(ctx context.Context, addr string) (*models.Address, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, nil
	}
	var item models.Address
	err := s.db.WithContext(ctx).Model(&models.Address{}).Where("address = ?", addr).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveAddress(ctx context.Context, item *models.Address) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Address) == "" {
		return nil
	}
	item.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_trades",
			"total_volume_cents",
			"win_count",
			"loss_count",
			"settled_count",
			"suspicion_score",
			"is_suspicious",
			"first_seen_at",
			"last_active_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListAddresses(ctx context.Context, params repository.ListAddressesParams) ([]models.Address, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyAddressFilters(s.db.WithContext(ctx).Model(&models.Address{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "last_active_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Address
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAddresses(ctx context.Context, params repository.ListAddressesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyAddressFilters(s.db.WithContext(ctx).Model(&models.Address{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyAddressFilters(query *gorm.DB, params repository.ListAddressesParams) *gorm.DB {
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		query = query.Where("address ILIKE ?", "%"+strings.TrimSpace(*params.Search)+"%")
	}
	if params.Suspicious != nil {
		query = query.Where("is_suspicious = ?", *params.Suspicious)
	}
	if params.MinScore != nil {
		query = query.Where("suspicion_score >= ?", *params.MinScore)
	}
	if params.MinTrades != nil {
		query = query.Where("total_trades >= ?", *params.MinTrades)
	}
	return query
}

func (s *Store) ListRecentlyActiveAddresses(ctx context.Context, since time.Time, limit int) ([]models.Address, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 200)
	var items []models.Address
	if err := s.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("last_active_at >= ?", since).
		Order("last_active_at desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) AddressOverview(ctx context.Context) (repository.AddressOverview, error) {
	if s == nil || s.db == nil {
		return repository.AddressOverview{}, nil
	}
	var out repository.AddressOverview
	err := s.db.WithContext(ctx).
		Model(&models.Address{}).
		Select(`
			COUNT(*) AS total_addresses,
			COUNT(*) FILTER (WHERE is_suspicious) AS suspicious_count,
			COALESCE(SUM(total_volume_cents),0) AS total_volume_cents,
			COALESCE(AVG(suspicion_score),0) AS avg_score
		`).
		Scan(&out).Error
	return out, err
}

func (s *Store) AddressTradeStats(ctx context.Context, addr string) (repository.AddressTradeStats, error) {
	if s == nil || s.db == nil {
		return repository.AddressTradeStats{}, nil
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return repository.AddressTradeStats{}, nil
	}
	var out repository.AddressTradeStats

	if err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("maker_address = ? OR taker_address = ?", addr, addr).
		Where("is_suspicious = ?", true).
		Count(&out.PreMoveTrades).Error; err != nil {
		return out, err
	}

	// A trade counts as near-extrema when its fill price sits within 10
	// cents of the market's observed price floor or ceiling.
	if err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM trades t
		JOIN (
			SELECT market_id, MIN(price_cents) AS lo, MAX(price_cents) AS hi
			FROM market_price_points
			GROUP BY market_id
		) p ON p.market_id = t.market_id
		WHERE (t.maker_address = ? OR t.taker_address = ?)
		  AND (t.price_cents <= p.lo + 10 OR t.price_cents >= p.hi - 10)
	`, addr, addr).Scan(&out.NearExtremaTrades).Error; err != nil {
		return out, err
	}

	if err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(DISTINCT m.category)
		FROM trades t
		JOIN markets m ON m.condition_id = t.market_id
		WHERE t.maker_address = ? OR t.taker_address = ?
	`, addr, addr).Scan(&out.DistinctCategories).Error; err != nil {
		return out, err
	}

	return out, nil
}

func (s *Store) PopulationAvgTradeCents(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var avg int64
	err := s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(total_volume_cents) / NULLIF(SUM(total_trades), 0), 0)
		FROM addresses
	`).Scan(&avg).Error
	return avg, err
}

func (s *Store) InsertAddressSettlement(ctx context.Context, item *models.AddressSettlement) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}, {Name: "market_id"}, {Name: "settlement_id"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// --- Markets -----------------------------------------------------------------

func (s *Store) UpsertMarketsTx(ctx context.Context, tx *gorm.DB, items []models.Market) error {
	if s == nil || tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "condition_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title",
			"question",
			"category",
			"country",
			"end_date",
			"current_price_cents",
			"volume24h_cents",
			"volume_total_cents",
			"active",
			"raw_json",
			"updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}

func (s *Store) GetMarketByConditionID(ctx context.Context, conditionID string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	conditionID = strings.TrimSpace(conditionID)
	if conditionID == "" {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).Model(&models.Market{}).Where("condition_id = ?", conditionID).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Market{})
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	if params.Resolved != nil {
		query = query.Where("resolved = ?", *params.Resolved)
	}
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		query = query.Where("title ILIKE ?", "%"+strings.TrimSpace(*params.Search)+"%")
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "updated_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Market
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkMarketResolved(ctx context.Context, conditionID string, winningSide string) error {
	if s == nil || s.db == nil {
		return nil
	}
	conditionID = strings.TrimSpace(conditionID)
	if conditionID == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("condition_id = ?", conditionID).
		Updates(map[string]any{
			"resolved":     true,
			"active":       false,
			"winning_side": winningSide,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// --- Alert subscriptions -----------------------------------------------------

func (s *Store) UpsertSubscription(ctx context.Context, item *models.AlertSubscription) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "target_type"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"label",
			"alert_kinds",
			"active",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSubscriptionByID(ctx context.Context, id uint) (*models.AlertSubscription, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.AlertSubscription
	err := s.db.WithContext(ctx).Model(&models.AlertSubscription{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSubscriptions(ctx context.Context, params repository.ListSubscriptionsParams) ([]models.AlertSubscription, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.AlertSubscription{})
	if params.UserID != nil && strings.TrimSpace(*params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*params.UserID))
	}
	if params.TargetType != nil && strings.TrimSpace(*params.TargetType) != "" {
		query = query.Where("target_type = ?", strings.TrimSpace(*params.TargetType))
	}
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.AlertSubscription
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteSubscription(ctx context.Context, userID string, id uint) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("id = ?", id).
		Delete(&models.AlertSubscription{}).Error
}

func (s *Store) ListActiveSubscriptionsForTarget(ctx context.Context, targetType, targetID string) ([]models.AlertSubscription, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.AlertSubscription
	if err := s.db.WithContext(ctx).
		Model(&models.AlertSubscription{}).
		Where("target_type = ?", strings.TrimSpace(targetType)).
		Where("target_id = ?", strings.TrimSpace(targetID)).
		Where("active = ?", true).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Notifications -----------------------------------------------------------

func (s *Store) InsertNotification(ctx context.Context, item *models.AlertNotification) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "alert_kind"}, {Name: "trigger_key"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ListNotifications(ctx context.Context, params repository.ListNotificationsParams) ([]models.AlertNotification, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.AlertNotification{})
	if params.UserID != nil && strings.TrimSpace(*params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*params.UserID))
	}
	if params.Unread != nil {
		query = query.Where("read = ?", !*params.Unread)
	}
	if params.AlertKind != nil && strings.TrimSpace(*params.AlertKind) != "" {
		query = query.Where("alert_kind = ?", strings.TrimSpace(*params.AlertKind))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.AlertNotification
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.AlertNotification{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("read = ?", false).
		Count(&total).Error
	return total, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID string, id uint) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.AlertNotification{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("id = ?", id).
		Update("read", true).Error
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.AlertNotification{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("read = ?", false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// --- Predictions -------------------------------------------------------------

func (s *Store) LatestPredictionsByMarketIDs(ctx context.Context, marketIDs []string) (map[string]models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	marketIDs = cleanStrings(marketIDs)
	if len(marketIDs) == 0 {
		return map[string]models.Prediction{}, nil
	}
	var items []models.Prediction
	err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (market_id) *
		FROM predictions
		WHERE market_id IN ?
		ORDER BY market_id, generated_at DESC
	`, marketIDs).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Prediction, len(items))
	for _, p := range items {
		out[p.MarketID] = p
	}
	return out, nil
}

// --- Price history & anomalies -----------------------------------------------

func (s *Store) UpsertPricePoints(ctx context.Context, items []models.MarketPricePoint) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}, {Name: "sampled_at"}},
		DoUpdates: clause.AssignmentColumns([]string{"price_cents"}),
	}).CreateInBatches(items, 200).Error
}

func (s *Store) ListPricePointMarketIDs(ctx context.Context, since time.Time) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.MarketPricePoint{}).
		Where("sampled_at >= ?", since).
		Distinct().
		Pluck("market_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) ListPricePoints(ctx context.Context, marketID string, since time.Time) ([]models.MarketPricePoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	marketID = strings.TrimSpace(marketID)
	if marketID == "" {
		return nil, nil
	}
	var items []models.MarketPricePoint
	if err := s.db.WithContext(ctx).
		Model(&models.MarketPricePoint{}).
		Where("market_id = ?", marketID).
		Where("sampled_at >= ?", since).
		Order("sampled_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertPriceAnomaly(ctx context.Context, item *models.PriceAnomaly) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}, {Name: "window_end"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ListRecentAnomalies(ctx context.Context, since time.Time) ([]models.PriceAnomaly, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PriceAnomaly
	if err := s.db.WithContext(ctx).
		Model(&models.PriceAnomaly{}).
		Where("window_end >= ?", since).
		Order("window_end desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
