package db

import (
	"encoding/json"
	"fmt"

	"github.com/zulandar/herald/internal/config"
	"github.com/zulandar/herald/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.TriggerDefinition{},
		&models.DeliveryRecord{},
		&models.Message{},
		&models.DialogueTemplate{},
		&models.UserProfile{},
		&models.UserRole{},
		&models.UserFact{},
		&models.RateWindowEntry{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedTemplates upserts DialogueTemplate rows from configuration.
func SeedTemplates(db *gorm.DB, templates []config.TemplateConfig) error {
	for _, tc := range templates {
		blocks := make([]models.ContentBlock, 0, len(tc.Blocks))
		for _, bc := range tc.Blocks {
			block := models.ContentBlock{
				Speaker: bc.Speaker,
				Avatar:  bc.Avatar,
				Text:    bc.Text,
			}
			for _, btn := range bc.Buttons {
				block.Buttons = append(block.Buttons, models.Button{
					Label:  btn.Label,
					Action: btn.Action,
				})
			}
			blocks = append(blocks, block)
		}

		data, err := json.Marshal(blocks)
		if err != nil {
			return fmt.Errorf("db: marshal blocks for template %q: %w", tc.Key, err)
		}

		tpl := models.DialogueTemplate{
			Key:    tc.Key,
			Blocks: string(data),
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"blocks"}),
		}).Create(&tpl)
		if result.Error != nil {
			return fmt.Errorf("db: seed template %q: %w", tc.Key, result.Error)
		}
	}
	return nil
}
