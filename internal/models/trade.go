package models

import "time"

const (
	TradeSideYes = "YES"
	TradeSideNo  = "NO"
)

// Trade is one executed fill. TradeID is the upstream identifier and the
// dedupe key for ingestion; re-syncing the same page must not duplicate rows.
type Trade struct {
	ID           uint      `gorm:"primaryKey;autoIncrement;comment:internal id"`
	TradeID      string    `gorm:"type:text;uniqueIndex;not null;comment:upstream trade id"`
	MarketID     string    `gorm:"type:text;index;not null;comment:condition id of the market"`
	MakerAddress string    `gorm:"type:text;index;not null;comment:maker wallet"`
	TakerAddress string    `gorm:"type:text;index;not null;comment:taker wallet"`
	Side         string    `gorm:"type:text;not null;comment:YES or NO"`
	PriceCents   int       `gorm:"not null;comment:fill price in cents 0-100"`
	AmountCents  int64     `gorm:"not null;comment:notional in cents"`
	EventTime    time.Time `gorm:"type:timestamptz;index;not null;comment:execution time upstream"`
	IsWhale      bool      `gorm:"not null;default:false;index;comment:large-trade classification"`
	IsSuspicious bool      `gorm:"not null;default:false;index;comment:behavioral flag"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null"`
}

func (Trade) TableName() string {
	return "trades"
}
