package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"polyscope/internal/models"
)

// Repository is the storage surface shared by the ingest pipeline, the
// scoring engine, the alert path, and the HTTP handlers. The gorm
// implementation lives in repository/gorm; tests use an in-memory stub.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Sync checkpoints
	GetSyncState(ctx context.Context, service string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)

	// Trades
	ExistingTradeIDs(ctx context.Context, tradeIDs []string) (map[string]struct{}, error)
	InsertTradesTx(ctx context.Context, tx *gorm.DB, items []models.Trade) error
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
	CountTrades(ctx context.Context, params ListTradesParams) (int64, error)
	ListWhaleTrades(ctx context.Context, params ListTradesParams) ([]WhaleTradeRow, error)
	MarkTradesSuspicious(ctx context.Context, marketID string, from, to time.Time) (int64, error)
	ListTradeAddressesByMarket(ctx context.Context, marketID string) ([]TradeAddressRow, error)

	// Address aggregates
	GetAddress(ctx context.Context, addr string) (*models.Address, error)
	SaveAddress(ctx context.Context, item *models.Address) error
	ListAddresses(ctx context.Context, params ListAddressesParams) ([]models.Address, error)
	CountAddresses(ctx context.Context, params ListAddressesParams) (int64, error)
	ListRecentlyActiveAddresses(ctx context.Context, since time.Time, limit int) ([]models.Address, error)
	AddressOverview(ctx context.Context) (AddressOverview, error)
	AddressTradeStats(ctx context.Context, addr string) (AddressTradeStats, error)
	PopulationAvgTradeCents(ctx context.Context) (int64, error)

	// Settlement ledger; returns false when the row already existed.
	InsertAddressSettlement(ctx context.Context, item *models.AddressSettlement) (bool, error)

	// Markets
	UpsertMarketsTx(ctx context.Context, tx *gorm.DB, items []models.Market) error
	GetMarketByConditionID(ctx context.Context, conditionID string) (*models.Market, error)
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)
	MarkMarketResolved(ctx context.Context, conditionID string, winningSide string) error

	// Alert subscriptions
	UpsertSubscription(ctx context.Context, item *models.AlertSubscription) error
	GetSubscriptionByID(ctx context.Context, id uint) (*models.AlertSubscription, error)
	ListSubscriptions(ctx context.Context, params ListSubscriptionsParams) ([]models.AlertSubscription, error)
	DeleteSubscription(ctx context.Context, userID string, id uint) error
	ListActiveSubscriptionsForTarget(ctx context.Context, targetType, targetID string) ([]models.AlertSubscription, error)

	// Notifications; insert returns false when the dedup key already existed.
	InsertNotification(ctx context.Context, item *models.AlertNotification) (bool, error)
	ListNotifications(ctx context.Context, params ListNotificationsParams) ([]models.AlertNotification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, userID string, id uint) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)

	// Predictions (read-only enrichment)
	LatestPredictionsByMarketIDs(ctx context.Context, marketIDs []string) (map[string]models.Prediction, error)

	// Price history & anomalies
	UpsertPricePoints(ctx context.Context, items []models.MarketPricePoint) error
	ListPricePointMarketIDs(ctx context.Context, since time.Time) ([]string, error)
	ListPricePoints(ctx context.Context, marketID string, since time.Time) ([]models.MarketPricePoint, error)
	UpsertPriceAnomaly(ctx context.Context, item *models.PriceAnomaly) (bool, error)
	ListRecentAnomalies(ctx context.Context, since time.Time) ([]models.PriceAnomaly, error)
}

// WhaleTradeRow is a whale trade joined with the latest AI prediction for
// its market, when one exists.
type WhaleTradeRow struct {
	Trade      models.Trade
	Market     *models.Market
	Prediction *models.Prediction
}

// TradeAddressRow pairs an address that traded in a market with the side it
// held the most recent position on.
type TradeAddressRow struct {
	Address string
	Side    string
}

// AddressTradeStats are the per-address behavioral inputs the scorer needs
// beyond the Address counters themselves.
type AddressTradeStats struct {
	PreMoveTrades      int64
	NearExtremaTrades  int64
	DistinctCategories int64
}

type AddressOverview struct {
	TotalAddresses   int64
	SuspiciousCount  int64
	TotalVolumeCents int64
	AvgScore         float64
}

type ListTradesParams struct {
	Limit      int
	Offset     int
	MarketID   *string
	Address    *string
	WhaleOnly  bool
	Suspicious *bool
	Since      *time.Time
	OrderBy    string
	Asc        *bool
}

type ListAddressesParams struct {
	Limit      int
	Offset     int
	Search     *string
	Suspicious *bool
	MinScore   *int
	MinTrades  *int64
	OrderBy    string
	Asc        *bool
}

type ListMarketsParams struct {
	Limit    int
	Offset   int
	Category *string
	Resolved *bool
	Active   *bool
	Search   *string
	OrderBy  string
	Asc      *bool
}

type ListSubscriptionsParams struct {
	Limit      int
	Offset     int
	UserID     *string
	TargetType *string
	Active     *bool
}

type ListNotificationsParams struct {
	Limit     int
	Offset    int
	UserID    *string
	Unread    *bool
	AlertKind *string
	Since     *time.Time
}
