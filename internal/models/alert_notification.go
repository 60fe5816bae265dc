package models

import (
	"time"

	"gorm.io/datatypes"
)

// AlertNotification is one delivered alert. The unique index on
// (subscription, kind, trigger key) makes inserts idempotent: replaying the
// same trigger inside its identity window is silently dropped at the database.
type AlertNotification struct {
	ID             uint           `gorm:"primaryKey;autoIncrement"`
	UserID         string         `gorm:"type:text;index;not null;comment:recipient user"`
	SubscriptionID uint           `gorm:"not null;uniqueIndex:uniq_sub_trigger,priority:1;comment:matched subscription"`
	AlertKind      string         `gorm:"type:text;not null;uniqueIndex:uniq_sub_trigger,priority:2;comment:alert kind"`
	TriggerKey     string         `gorm:"type:text;not null;uniqueIndex:uniq_sub_trigger,priority:3;comment:dedup identity of the trigger"`
	Title          string         `gorm:"type:text;not null;comment:short headline"`
	Message        string         `gorm:"type:text;not null;comment:human-readable body"`
	Metadata       datatypes.JSON `gorm:"type:jsonb;comment:structured trigger details"`
	Read           bool           `gorm:"not null;default:false;index;comment:seen by user"`
	CreatedAt      time.Time      `gorm:"type:timestamptz;index;not null"`
}

func (AlertNotification) TableName() string {
	return "alert_notifications"
}
