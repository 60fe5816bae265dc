package models

import "time"

const (
	SyncStatusIdle    = "idle"
	SyncStatusRunning = "running"
	SyncStatusError   = "error"
)

// SyncState is the per-service resumable checkpoint. Cursor carries the max
// event timestamp (or page offset) of the last committed batch and is only
// advanced in the same transaction as the batch itself.
type SyncState struct {
	Service        string     `gorm:"primaryKey;type:text;comment:owning service name"`
	Cursor         *string    `gorm:"type:text;comment:resume cursor"`
	Status         string     `gorm:"type:text;not null;default:idle;comment:idle running or error"`
	LastError      *string    `gorm:"type:text;comment:most recent failure"`
	LastRunAt      *time.Time `gorm:"type:timestamptz;comment:last attempt start"`
	ProcessedTotal int64      `gorm:"not null;default:0;comment:records processed lifetime"`
	LastBatchSize  int        `gorm:"not null;default:0;comment:records in last committed batch"`
	UpdatedAt      time.Time  `gorm:"type:timestamptz;not null"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
