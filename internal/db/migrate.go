package db

import (
	"docflow/internal/domain"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	err := db.AutoMigrate(
		&domain.User{},
		&domain.Document{},
		&domain.Comment{},
		&domain.Approval{},
		&domain.ChatMessage{},
		&domain.Workflow{},
		&domain.WorkflowStep{},
	)
	if err != nil {
		return err
	}

	log.Info().Msg("Database schema migrated successfully")
	return nil
}
