package models

import "time"

// PriceAnomaly records one detected price spike. Unique per
// (market, window end) so re-running the detector over the same history
// upserts instead of duplicating.
type PriceAnomaly struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	MarketID         string    `gorm:"type:text;not null;uniqueIndex:uniq_market_window,priority:1;comment:condition id"`
	PriceBeforeCents int       `gorm:"not null;comment:price at window start"`
	PriceAfterCents  int       `gorm:"not null;comment:price at window end"`
	ChangeBps        int       `gorm:"not null;comment:absolute move in basis points"`
	WindowStart      time.Time `gorm:"type:timestamptz;not null;comment:move start"`
	WindowEnd        time.Time `gorm:"type:timestamptz;not null;uniqueIndex:uniq_market_window,priority:2;comment:move end"`
	DetectedAt       time.Time `gorm:"type:timestamptz;not null;comment:detector run time"`
}

func (PriceAnomaly) TableName() string {
	return "price_anomalies"
}
