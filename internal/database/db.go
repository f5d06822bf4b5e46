package database

import (
	"fmt"

	"invoicing-backend/internal/config"
	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Init opens the Postgres connection, runs migrations and stores the handle in DB.
func Init(cfg *config.Config) (*gorm.DB, error) {
	log := logger.WithComponent("database")

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	DB = db
	log.Info().Msg("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.ChildInvoiceItem{},
		&models.Payment{},
		&models.AuditLog{},
		&models.DocumentSequence{},
		&models.DomainEvent{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate hatası: %w", err)
	}
	return nil
}
