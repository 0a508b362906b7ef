package models

import "time"

// DialogueTemplate is an ordered sequence of content blocks identified by a
// key. Blocks holds the unrendered []ContentBlock as JSON; tokens in each
// block's text are expanded per recipient at delivery time.
type DialogueTemplate struct {
	Key       string `gorm:"primaryKey;size:64"`
	Blocks    string `gorm:"type:json;not null"`
	UpdatedAt time.Time
}
