package db

import (
	"polyscope/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Market{},
		&models.Trade{},
		&models.Address{},
		&models.AddressSettlement{},
		&models.SyncState{},
		&models.AlertSubscription{},
		&models.AlertNotification{},
		&models.Prediction{},
		&models.MarketPricePoint{},
		&models.PriceAnomaly{},
	)
}
