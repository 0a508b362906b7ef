// Package inbox manages the durable message store behind each user's inbox.
package inbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zulandar/herald/internal/models"
	"gorm.io/gorm"
)

// CreateOpts holds optional parameters for creating a message.
type CreateOpts struct {
	TemplateKey string
	Source      string // defaults to "system"
	Priority    int
	ExpiresAt   *time.Time
}

// Create persists a rendered message to a user's inbox.
func Create(db *gorm.DB, userID string, blocks []models.ContentBlock, opts CreateOpts) (*models.Message, error) {
	if userID == "" {
		return nil, fmt.Errorf("inbox: userID is required")
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("inbox: blocks must not be empty")
	}

	content, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("inbox: marshal content: %w", err)
	}

	source := opts.Source
	if source == "" {
		source = models.SourceSystem
	}

	msg := models.Message{
		UserID:      userID,
		TemplateKey: opts.TemplateKey,
		Content:     string(content),
		Source:      source,
		Priority:    opts.Priority,
		Status:      models.StatusUnread,
		CreatedAt:   time.Now(),
		ExpiresAt:   opts.ExpiresAt,
	}
	if err := db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("inbox: create for %s: %w", userID, err)
	}
	return &msg, nil
}

// ListForUser returns a user's messages, newest first. With unreadOnly set,
// only unread messages are returned.
func ListForUser(db *gorm.DB, userID string, unreadOnly bool) ([]models.Message, error) {
	if userID == "" {
		return nil, fmt.Errorf("inbox: userID is required")
	}

	query := db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("status = ?", models.StatusUnread)
	}

	var msgs []models.Message
	if err := query.Order("created_at DESC, id DESC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("inbox: list for %s: %w", userID, err)
	}
	return msgs, nil
}

// MarkRead transitions a message to read.
func MarkRead(db *gorm.DB, messageID uint) error {
	return setStatus(db, messageID, models.StatusRead)
}

// Dismiss transitions a message to dismissed.
func Dismiss(db *gorm.DB, messageID uint) error {
	return setStatus(db, messageID, models.StatusDismissed)
}

func setStatus(db *gorm.DB, messageID uint, status string) error {
	result := db.Model(&models.Message{}).Where("id = ?", messageID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("inbox: set status %d: %w", messageID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("inbox: message not found: %d", messageID)
	}
	return nil
}

// SweepExpired dismisses unread messages whose expiry has passed, returning
// the number swept.
func SweepExpired(db *gorm.DB) (int64, error) {
	result := db.Model(&models.Message{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.StatusUnread, time.Now()).
		Update("status", models.StatusDismissed)
	if result.Error != nil {
		return 0, fmt.Errorf("inbox: sweep expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Blocks decodes a message's rendered content.
func Blocks(msg *models.Message) ([]models.ContentBlock, error) {
	var blocks []models.ContentBlock
	if err := json.Unmarshal([]byte(msg.Content), &blocks); err != nil {
		return nil, fmt.Errorf("inbox: decode content of %d: %w", msg.ID, err)
	}
	return blocks, nil
}
