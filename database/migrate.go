package database

import (
	"fmt"

	"hercules_backend/internal/logger"
	"hercules_backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the pool. TranslateError turns driver unique-violation
// errors into gorm.ErrDuplicatedKey, which the repositories rely on.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. uuid-ossp backs the uuid_generate_v4 primary
// key defaults.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("creating uuid extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.BillingRecord{},
		&models.SalesDocument{},
		&models.InvoiceCounter{},
		&models.WebhookEvent{},
		&models.FoodProduct{},
		&models.FoodLogEntry{},
		&models.WeightEntry{},
	)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("database migrations applied")
	return nil
}
