package models

import (
	"time"

	"gorm.io/datatypes"
)

// Market mirrors one prediction market from the upstream catalog.
// Prices and volumes are stored as integer cents to keep arithmetic exact.
type Market struct {
	ID                uint           `gorm:"primaryKey;autoIncrement;comment:internal id"`
	ConditionID       string         `gorm:"type:text;uniqueIndex;not null;comment:upstream condition id"`
	Title             string         `gorm:"type:text;not null;comment:market title"`
	Question          string         `gorm:"type:text;comment:full market question"`
	Category          string         `gorm:"type:text;index;comment:assigned category"`
	Country           *string        `gorm:"type:text;comment:country tag when present"`
	EndDate           *time.Time     `gorm:"type:timestamptz;comment:scheduled end date"`
	CurrentPriceCents *int           `gorm:"comment:latest YES price in cents"`
	Volume24hCents    int64          `gorm:"not null;default:0;comment:24h volume in cents"`
	VolumeTotalCents  int64          `gorm:"not null;default:0;comment:lifetime volume in cents"`
	Resolved          bool           `gorm:"not null;default:false;index;comment:settled flag"`
	WinningSide       *string        `gorm:"type:text;comment:YES or NO once resolved"`
	Active            bool           `gorm:"not null;default:true;comment:tradeable flag"`
	RawJSON           datatypes.JSON `gorm:"type:jsonb;comment:raw upstream payload"`
	CreatedAt         time.Time      `gorm:"type:timestamptz;not null"`
	UpdatedAt         time.Time      `gorm:"type:timestamptz;not null"`
}

func (Market) TableName() string {
	return "markets"
}
