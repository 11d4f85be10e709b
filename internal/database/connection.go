package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Initialize(databaseURL string, logLevel string) (*gorm.DB, error) {
	// Configure GORM
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(GormLogLevel(logLevel)),
		TranslateError: true,
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(databaseURL), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// GormLogLevel maps the application log level onto GORM's coarser levels.
func GormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return logger.Info
	case "info", "warn", "warning":
		return logger.Warn
	case "error":
		return logger.Error
	case "fatal", "panic", "silent":
		return logger.Silent
	}
	return logger.Warn
}
