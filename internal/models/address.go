package models

import "time"

// Address holds the running behavioral aggregate for one wallet.
// Win rate and average trade size are derived on read rather than stored,
// so the counters are the single source of truth.
type Address struct {
	ID               uint      `gorm:"primaryKey;autoIncrement;comment:internal id"`
	Address          string    `gorm:"type:text;uniqueIndex;not null;comment:wallet address"`
	TotalTrades      int64     `gorm:"not null;default:0;comment:trade leg count"`
	TotalVolumeCents int64     `gorm:"not null;default:0;comment:cumulative notional in cents"`
	WinCount         int64     `gorm:"not null;default:0;comment:settled wins"`
	LossCount        int64     `gorm:"not null;default:0;comment:settled losses"`
	SettledCount     int64     `gorm:"not null;default:0;comment:settled positions total"`
	SuspicionScore   int       `gorm:"not null;default:0;index;comment:behavioral score 0-100"`
	IsSuspicious     bool      `gorm:"not null;default:false;index;comment:score over threshold"`
	FirstSeenAt      time.Time `gorm:"type:timestamptz;not null;comment:earliest trade seen"`
	LastActiveAt     time.Time `gorm:"type:timestamptz;index;not null;comment:latest trade seen"`
	UpdatedAt        time.Time `gorm:"type:timestamptz;not null"`
}

func (Address) TableName() string {
	return "addresses"
}

// WinRate returns wins over settled positions in [0,1]. Zero when nothing
// has settled yet.
func (a *Address) WinRate() float64 {
	if a == nil || a.SettledCount <= 0 {
		return 0
	}
	return float64(a.WinCount) / float64(a.SettledCount)
}

// AvgTradeSizeCents returns the mean notional per trade leg in cents.
func (a *Address) AvgTradeSizeCents() int64 {
	if a == nil || a.TotalTrades <= 0 {
		return 0
	}
	return a.TotalVolumeCents / a.TotalTrades
}
