package models

import "time"

// AddressSettlement is the settlement idempotency ledger. One row per
// (address, market, settlement) guarantees win/loss counters move at most
// once however many times a resolution is replayed.
type AddressSettlement struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	Address      string    `gorm:"type:text;not null;uniqueIndex:uniq_addr_settlement,priority:1;comment:wallet address"`
	MarketID     string    `gorm:"type:text;not null;uniqueIndex:uniq_addr_settlement,priority:2;comment:condition id"`
	SettlementID string    `gorm:"type:text;not null;uniqueIndex:uniq_addr_settlement,priority:3;comment:resolution event id"`
	Won          bool      `gorm:"not null;comment:position ended on winning side"`
	AppliedAt    time.Time `gorm:"type:timestamptz;not null;comment:when counters were moved"`
}

func (AddressSettlement) TableName() string {
	return "address_settlements"
}
