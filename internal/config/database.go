package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"transit_editor/internal/models"
)

var (
	// DB is the globally accessible database handle
	DB *gorm.DB
)

// DSN builds the postgres connection string from DB_* environment variables.
func DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "password"),
		getEnv("DB_NAME", "transit"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
		getEnv("DB_TIMEZONE", "UTC"),
	)
}

// InitDB opens the database and migrates the network tables.
func InitDB() error {
	db, err := gorm.Open(postgres.Open(DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Editor{}, &models.Stop{}, &models.Route{}); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	logrus.WithField("database", getEnv("DB_NAME", "transit")).Info("database ready")

	DB = db
	return nil
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}
