package database

import (
	"fmt"
	"log"
	"strings"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.Config) {
	var err error

	switch strings.ToLower(strings.TrimSpace(cfg.DBDriver)) {
	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	default:
		DB, err = gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}

	log.Println("Database initialized successfully")
}

// Migrate runs the schema migration for all models. Split out so tests can
// run it against their own connection.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Contact{},
		&models.Message{},
		&models.Template{},
		&models.Group{},
		&models.GroupContact{},
		&models.Campaign{},
		&models.CampaignContact{},
		&models.CampaignGroup{},
	)
}
