package models

import "time"

// Prediction is an AI consensus row for a market, read-only from this
// service's point of view. The latest row per market enriches whale trades.
type Prediction struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	MarketID       string    `gorm:"type:text;index;not null;comment:condition id"`
	Outcome        string    `gorm:"type:text;not null;comment:predicted side"`
	ProbabilityBps int       `gorm:"not null;comment:predicted probability in basis points"`
	Model          string    `gorm:"type:text;comment:producing model name"`
	Rationale      *string   `gorm:"type:text;comment:short reasoning summary"`
	GeneratedAt    time.Time `gorm:"type:timestamptz;index;not null;comment:prediction time"`
}

func (Prediction) TableName() string {
	return "predictions"
}
