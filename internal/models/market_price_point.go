package models

import "time"

// MarketPricePoint is one sample of a market's YES price history.
type MarketPricePoint struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	MarketID   string    `gorm:"type:text;not null;uniqueIndex:uniq_market_ts,priority:1;comment:condition id"`
	PriceCents int       `gorm:"not null;comment:YES price in cents"`
	SampledAt  time.Time `gorm:"type:timestamptz;not null;uniqueIndex:uniq_market_ts,priority:2;comment:sample time"`
}

func (MarketPricePoint) TableName() string {
	return "market_price_points"
}
