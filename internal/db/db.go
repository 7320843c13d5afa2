package db

import (
	"docflow/internal/config"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database selected by cfg.DBDriver
func Connect(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dsn := fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v sslmode=disable",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBPort,
		)
		dialector = postgres.Open(dsn)
	}

	level := logger.Info
	if cfg.IsProduction() {
		level = logger.Error
	}

	db, err := Open(dialector, level, log)
	if err != nil {
		return nil, fmt.Errorf("error connecting to db: %w", err)
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("Success connecting to db")

	return db, nil
}

// Open opens dialector with SQL statements logged through log
func Open(dialector gorm.Dialector, level logger.LogLevel, log zerolog.Logger) (*gorm.DB, error) {
	sqlLog := log.With().Str("component", "gorm").Logger()
	newLogger := logger.New(
		&sqlLog, // zerolog.Logger implements Printf
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return gorm.Open(dialector, &gorm.Config{Logger: newLogger})
}

func Close(db *gorm.DB, log zerolog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Error().Err(err).Msg("failed to get db handle")
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close db")
		return
	}
	log.Info().Msg("Closing DB")
}
