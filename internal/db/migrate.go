package db

import (
	"coinflip/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.GameStats{},
		&models.GameRound{},
		&models.Payout{},
		&models.SystemSetting{},
	)
}
