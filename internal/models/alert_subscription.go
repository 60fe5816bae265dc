package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SubscriptionTypeAddress  = "address"
	SubscriptionTypeMarket   = "market"
	SubscriptionTypeCategory = "category"
)

const (
	AlertKindLargeTrade    = "large_trade"
	AlertKindHighSuspicion = "high_suspicion_address"
	AlertKindPriceSpike    = "price_spike"
)

// AlertSubscription is one user's watch on an address, market, or category.
// AlertKinds is a JSONB string array of the kinds the user opted into.
type AlertSubscription struct {
	ID         uint           `gorm:"primaryKey;autoIncrement"`
	UserID     string         `gorm:"type:text;not null;uniqueIndex:uniq_user_target,priority:1;comment:owning user"`
	TargetType string         `gorm:"type:text;not null;uniqueIndex:uniq_user_target,priority:2;comment:address market or category"`
	TargetID   string         `gorm:"type:text;not null;uniqueIndex:uniq_user_target,priority:3;comment:watched identifier"`
	Label      *string        `gorm:"type:text;comment:user-facing label"`
	AlertKinds datatypes.JSON `gorm:"type:jsonb;not null;comment:enabled alert kinds"`
	Active     bool           `gorm:"not null;default:true;index;comment:paused when false"`
	CreatedAt  time.Time      `gorm:"type:timestamptz;not null"`
	UpdatedAt  time.Time      `gorm:"type:timestamptz;not null"`
}

func (AlertSubscription) TableName() string {
	return "alert_subscriptions"
}
