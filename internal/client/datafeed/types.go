package datafeed

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawTrade is one upstream trade with money fields as decimal USD strings.
// Conversion to integer cents happens at this boundary; nothing past the
// client touches floats.
type RawTrade struct {
	ID        string    `json:"id"`
	Market    string    `json:"market"`
	Maker     string    `json:"maker"`
	Taker     string    `json:"taker"`
	Side      string    `json:"side"`
	Price     string    `json:"price"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

type TradesPage struct {
	Trades     []RawTrade `json:"trades"`
	NextCursor string     `json:"next_cursor"`
}

type RawMarket struct {
	ConditionID string     `json:"condition_id"`
	Title       string     `json:"title"`
	Question    string     `json:"question"`
	Country     string     `json:"country"`
	EndDate     *time.Time `json:"end_date"`
	Price       string     `json:"price"`
	Volume24h   string     `json:"volume_24h"`
	VolumeTotal string     `json:"volume_total"`
	Active      bool       `json:"active"`
}

type RawResolution struct {
	ConditionID  string    `json:"condition_id"`
	SettlementID string    `json:"settlement_id"`
	WinningSide  string    `json:"winning_side"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// ToCents converts a decimal USD string to integer cents exactly.
// Values with sub-cent precision are rejected rather than rounded.
func ToCents(val string) (int64, error) {
	d, err := decimal.NewFromString(val)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", val, err)
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("sub-cent precision in %q", val)
	}
	return shifted.IntPart(), nil
}

// PriceToCents converts a probability price string ("0.42") to cents.
func PriceToCents(val string) (int, error) {
	cents, err := ToCents(val)
	if err != nil {
		return 0, err
	}
	return int(cents), nil
}
