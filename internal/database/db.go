package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"affiliate-ledger/internal/database/models"
)

func NewConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

// MigrateLedgerDB creates or updates every table the ledger owns.
func MigrateLedgerDB(db *gorm.DB) error {
	tables := []interface{}{
		&models.Affiliate{},
		&models.CommissionRecord{},
		&models.OrderReceipt{},
		&models.OverrideCredit{},
		&models.MilestoneAward{},
	}
	for _, t := range tables {
		if err := db.AutoMigrate(t); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", t, err)
		}
	}
	log.Printf("Ledger schema migrated (%d tables)", len(tables))
	return nil
}
